package link

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	httpx "github.com/influmart/influmart/internal/http"
	svc "github.com/influmart/influmart/internal/http/services/link"
	"github.com/influmart/influmart/internal/observability/logger"
	"github.com/influmart/influmart/internal/pending"
	"github.com/influmart/influmart/internal/platform"
)

// StartController handles the linking start endpoint.
type StartController struct {
	service svc.StartService
}

// NewStartController creates a new StartController.
func NewStartController(service svc.StartService) *StartController {
	return &StartController{service: service}
}

// StartGET handles GET /{platform}/auth?userId=<id>. Any extra query
// parameter is staged as a registration field.
func (c *StartController) StartGET(w http.ResponseWriter, r *http.Request) {
	fields := make(pending.Registration)
	for k, vs := range r.URL.Query() {
		if k == "userId" || len(vs) == 0 {
			continue
		}
		fields[k] = vs[0]
	}
	c.start(w, r, r.URL.Query().Get("userId"), fields)
}

// StartPOST handles POST /{platform}/auth with a JSON body
// {"userId": ..., <staged fields>...}. Responde {authUrl} en vez de
// redirigir: el front decide cuándo navegar al consent.
func (c *StartController) StartPOST(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !httpx.ReadJSON(w, r, &body) {
		return
	}
	userID, _ := body["userId"].(string)
	delete(body, "userId")

	res, ok := c.resolve(w, r, userID, pending.Registration(body))
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"authUrl": res.RedirectURL})
}

func (c *StartController) start(w http.ResponseWriter, r *http.Request, userID string, fields pending.Registration) {
	res, ok := c.resolve(w, r, userID, fields)
	if !ok {
		return
	}
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

func (c *StartController) resolve(w http.ResponseWriter, r *http.Request, userID string, fields pending.Registration) (*svc.StartResult, bool) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"))

	res, err := c.service.Start(ctx, svc.StartRequest{
		Platform: chi.URLParam(r, "platform"),
		UserID:   userID,
		Fields:   fields,
	})
	if err != nil {
		log.Warn("start failed", logger.Err(err))
		switch {
		case errors.Is(err, svc.ErrStartMissingUserID):
			httpx.WriteError(w, http.StatusBadRequest, "missing_user_id", "userId required")
		case platform.IsUnknownPlatform(err):
			httpx.WriteError(w, http.StatusBadRequest, "unknown_platform", err.Error())
		default:
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
		}
		return nil, false
	}
	return res, true
}
