package link

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	httpx "github.com/influmart/influmart/internal/http"
	svc "github.com/influmart/influmart/internal/http/services/link"
	"github.com/influmart/influmart/internal/observability/logger"
	"github.com/influmart/influmart/internal/platform"
)

// CallbackController handles the OAuth callback endpoint.
type CallbackController struct {
	service  svc.CallbackService
	errorURL string
}

// NewCallbackController creates a new CallbackController.
func NewCallbackController(service svc.CallbackService, errorURL string) *CallbackController {
	return &CallbackController{service: service, errorURL: errorURL}
}

// Callback handles GET /cb/{platform}?code=<c>&state=<s>.
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

	q := r.URL.Query()

	// Provider-side denial arrives as error params instead of a code.
	if provErr := strings.TrimSpace(q.Get("error")); provErr != "" {
		desc := strings.TrimSpace(q.Get("error_description"))
		log.Warn("provider returned error", logger.String("error", provErr), logger.String("description", desc))
		c.fail(w, r, "provider_error", provErr+" "+desc)
		return
	}

	res, err := c.service.Callback(ctx, svc.CallbackRequest{
		Platform: chi.URLParam(r, "platform"),
		Code:     strings.TrimSpace(q.Get("code")),
		State:    strings.TrimSpace(q.Get("state")),
	})
	if err != nil {
		log.Warn("callback failed", logger.Err(err))
		c.fail(w, r, errorCode(err), err.Error())
		return
	}

	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

// fail redirects to the configured error path when one exists; otherwise it
// answers 500 {error, details}.
func (c *CallbackController) fail(w http.ResponseWriter, r *http.Request, code, details string) {
	if c.errorURL != "" {
		u, err := url.Parse(c.errorURL)
		if err == nil {
			q := u.Query()
			q.Set("error", code)
			q.Set("details", details)
			u.RawQuery = q.Encode()
			http.Redirect(w, r, u.String(), http.StatusFound)
			return
		}
	}
	httpx.WriteError(w, http.StatusInternalServerError, code, details)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, svc.ErrCallbackMissingCode):
		return "missing_code"
	case errors.Is(err, svc.ErrCallbackMissingState):
		return "missing_state"
	case errors.Is(err, svc.ErrCallbackInvalidState):
		return "invalid_state"
	case platform.IsUnknownPlatform(err):
		return "unknown_platform"
	case errors.Is(err, platform.ErrAuthExchange):
		return "auth_exchange_failed"
	case errors.Is(err, platform.ErrInvalidResponse):
		return "invalid_provider_response"
	default:
		return "internal_error"
	}
}
