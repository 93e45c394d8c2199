package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/influmart/influmart/internal/platform"
	"github.com/influmart/influmart/internal/store"
)

type apiError struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// WriteError escribe una respuesta de error JSON estándar {error, details}.
func WriteError(w http.ResponseWriter, status int, code, details string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rid := w.Header().Get("X-Request-ID")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Error: code, Details: details, RequestID: rid})
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodifica JSON de forma tolerante (NO falla por campos
// desconocidos). Valida Content-Type y limita el body a 1MB.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Content-Type debe ser application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "invalid_json", "json inválido")
		return false
	}
	return true
}

// WriteDomainError mapea errores de dominio a respuestas HTTP.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case store.IsNotFound(err):
		WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case platform.IsUnknownPlatform(err):
		WriteError(w, http.StatusBadRequest, "unknown_platform", err.Error())
	case errors.Is(err, platform.ErrAuthExchange):
		WriteError(w, http.StatusBadGateway, "auth_exchange_failed", err.Error())
	case errors.Is(err, platform.ErrRefreshFailure):
		WriteError(w, http.StatusBadGateway, "refresh_failure", err.Error())
	case errors.Is(err, platform.ErrInvalidResponse):
		WriteError(w, http.StatusBadGateway, "invalid_provider_response", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
