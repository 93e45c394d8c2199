package middlewares

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/influmart/influmart/internal/observability/logger"
)

// WithRecover convierte panics en 500 JSON en vez de tumbar el proceso.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered",
						logger.Any("panic", rec),
						logger.String("stack", string(debug.Stack())),
					)
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error":   "internal_error",
						"details": "unexpected server error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
