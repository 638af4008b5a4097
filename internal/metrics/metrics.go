// Package metrics exposes Prometheus counters for recommendations and recorded outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sources of appended records.
const (
	SourceWeb = "web"
	SourceAPI = "api"
	SourceCLI = "cli"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Recommendations *prometheus.CounterVec
	RecordsAppended *prometheus.CounterVec
	StoreErrors     *prometheus.CounterVec
}

// New creates a Metrics with its own registry, including Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Recommendations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wonderpick_recommendations_total",
				Help: "Recommendations served, by kind (default or data).",
			},
			[]string{"kind"},
		),
		RecordsAppended: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wonderpick_records_appended_total",
				Help: "Outcome records appended to storage, by source.",
			},
			[]string{"source"},
		),
		StoreErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wonderpick_store_errors_total",
				Help: "Storage failures, by operation.",
			},
			[]string{"op"},
		),
	}
}

// ObserveRecommendation counts one served recommendation.
func (m *Metrics) ObserveRecommendation(isDefault bool) {
	kind := "data"
	if isDefault {
		kind = "default"
	}
	m.Recommendations.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
