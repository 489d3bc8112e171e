// Package htsmetrics collects Prometheus metrics for the server:
// request counts, ticket-cache effectiveness, and the cost centers of
// ticket issuance (index builds and header-boundary resolutions).
package htsmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "htsget"

// Metrics owns a private registry so that tests can run collectors
// side by side.
type Metrics struct {
	registry *prometheus.Registry

	Requests            *prometheus.CounterVec
	CacheHits           *prometheus.CounterVec
	CacheMisses         *prometheus.CounterVec
	IndexBuilds         *prometheus.CounterVec
	BoundaryResolutions *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests served, by route and response status.",
		}, []string{"route", "status"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_cache_hits_total",
			Help:      "Ticket requests answered from the per-handler cache.",
		}, []string{"route"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_cache_misses_total",
			Help:      "Ticket requests that required computing a new ticket.",
		}, []string{"route"}),
		IndexBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_builds_total",
			Help:      "Secondary indexes built on demand, by index format.",
		}, []string{"format"}),
		BoundaryResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "header_boundary_resolutions_total",
			Help:      "Header-boundary computations, by resolution path.",
		}, []string{"path"}),
	}
	m.registry.MustRegister(
		m.Requests,
		m.CacheHits,
		m.CacheMisses,
		m.IndexBuilds,
		m.BoundaryResolutions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
