// Package accounts contains the controller for account read/update/delete.
package accounts

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httpx "github.com/influmart/influmart/internal/http"
	svc "github.com/influmart/influmart/internal/http/services/accounts"
	"github.com/influmart/influmart/internal/observability/logger"
)

// Controller handles the /accounts/{id} endpoints.
type Controller struct {
	service svc.Service
}

// NewController creates the accounts controller.
func NewController(service svc.Service) *Controller {
	return &Controller{service: service}
}

// Get handles GET /accounts/{id}: the cache-fronted enriched view.
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	view, err := c.service.Get(ctx, id)
	if err != nil {
		logger.From(ctx).Warn("account read failed",
			logger.Layer("controller"), logger.AccountID(id), logger.Err(err))
		httpx.WriteDomainError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

// Update handles PATCH /accounts/{id} with a partial field map body.
func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var fields map[string]any
	if !httpx.ReadJSON(w, r, &fields) {
		return
	}
	if len(fields) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "empty_update", "no fields to update")
		return
	}

	if err := c.service.Update(ctx, id, fields); err != nil {
		logger.From(ctx).Warn("account update failed",
			logger.Layer("controller"), logger.AccountID(id), logger.Err(err))
		httpx.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /accounts/{id} (soft delete).
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := c.service.Delete(ctx, id); err != nil {
		logger.From(ctx).Warn("account delete failed",
			logger.Layer("controller"), logger.AccountID(id), logger.Err(err))
		httpx.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
