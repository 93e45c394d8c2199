// Package health expone el endpoint de liveness/readiness.
package health

import (
	"context"
	"net/http"
	"time"

	httpx "github.com/influmart/influmart/internal/http"
	"github.com/influmart/influmart/internal/observability/logger"
)

// Pinger es cualquier dependencia con chequeo de conectividad.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller responde /healthz chequeando las dependencias registradas.
type Controller struct {
	deps map[string]Pinger
}

// NewController crea el health controller. deps mapea nombre → dependencia.
func NewController(deps map[string]Pinger) *Controller {
	return &Controller{deps: deps}
}

// Healthz handles GET /healthz.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(c.deps))
	healthy := true
	for name, dep := range c.deps {
		if err := dep.Ping(ctx); err != nil {
			logger.From(ctx).Warn("health check failed",
				logger.Component("health"), logger.String("dependency", name), logger.Err(err))
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	httpx.WriteJSON(w, status, map[string]any{"status": overall, "checks": checks})
}
