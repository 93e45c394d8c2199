// Package metrics defines the service's Prometheus metrics. Standalone so
// both the HTTP layer and the domain services can import it without cycles.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LinkStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "link_flows_started_total",
		Help: "Flujos de vinculación iniciados, por plataforma",
	}, []string{"platform"})

	LinkCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "link_flows_completed_total",
		Help: "Callbacks de vinculación completados con cuenta creada",
	}, []string{"platform"})

	LinkFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "link_flows_failed_total",
		Help: "Callbacks de vinculación fallidos, por plataforma y motivo",
	}, []string{"platform", "reason"})

	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "token_refreshes_total",
		Help: "Refrescos de token por plataforma y resultado",
	}, []string{"platform", "result"}) // result: refreshed|noop|failed

	EnrichmentCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrichment_cache_total",
		Help: "Lecturas del cache de enriquecimiento por resultado",
	}, []string{"result"}) // result: hit|stale|miss
)

// Register registra las métricas de negocio en el registry dado (o el
// default si es nil). Tolera doble registro.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		LinkStarted, LinkCompleted, LinkFailed, TokenRefreshes, EnrichmentCache,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
