// Package router arma el árbol de rutas del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httpx "github.com/influmart/influmart/internal/http"
	acctctrl "github.com/influmart/influmart/internal/http/controllers/accounts"
	healthctrl "github.com/influmart/influmart/internal/http/controllers/health"
	linkctrl "github.com/influmart/influmart/internal/http/controllers/link"
	mw "github.com/influmart/influmart/internal/http/middlewares"
)

// Deps contiene los controllers y handlers a montar.
type Deps struct {
	Link     *linkctrl.Controllers
	Accounts *acctctrl.Controller
	Health   *healthctrl.Controller
	Metrics  http.Handler
}

// New construye el router con el middleware chain estándar.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		httpx.WithMetrics(routePattern),
	)

	r.Get("/healthz", d.Health.Healthz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	// Flujo de vinculación.
	r.Get("/{platform}/auth", d.Link.Start.StartGET)
	r.Post("/{platform}/auth", d.Link.Start.StartPOST)
	r.Get("/cb/{platform}", d.Link.Callback.Callback)

	// Cuentas vinculadas.
	r.Route("/accounts/{id}", func(r chi.Router) {
		r.Get("/", d.Accounts.Get)
		r.Patch("/", d.Accounts.Update)
		r.Delete("/", d.Accounts.Delete)
	})

	return r
}

// routePattern agrupa métricas por ruta declarada (sin ids concretos).
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}
