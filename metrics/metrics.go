// Package metrics exposes Prometheus metrics for endpoint bookkeeping
// fetches, prefix injection, and query execution.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes recorded by ObserveRequest.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the editor's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	PrefixesLoaded   prometheus.Gauge
	ExamplesLoaded   prometheus.Gauge
	PrefixesInjected prometheus.Counter
	QueriesRun       *prometheus.CounterVec
}

// New creates Metrics registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sparqled",
				Subsystem: "endpoint",
				Name:      "requests_total",
				Help:      "Total number of SPARQL requests sent to the endpoint",
			},
			[]string{"kind", "outcome"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sparqled",
				Subsystem: "endpoint",
				Name:      "request_duration_seconds",
				Help:      "SPARQL request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),

		PrefixesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sparqled",
				Subsystem: "prefixes",
				Name:      "known",
				Help:      "Number of prefixes in the merged prefix table",
			},
		),

		ExamplesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sparqled",
				Subsystem: "examples",
				Name:      "loaded",
				Help:      "Number of example queries currently loaded",
			},
		),

		PrefixesInjected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sparqled",
				Subsystem: "prefixes",
				Name:      "injected_total",
				Help:      "Total number of PREFIX declarations injected into query buffers",
			},
		),

		QueriesRun: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sparqled",
				Subsystem: "queries",
				Name:      "run_total",
				Help:      "Total number of user queries executed, by HTTP status class",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.PrefixesLoaded,
		m.ExamplesLoaded,
		m.PrefixesInjected,
		m.QueriesRun,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler serving the registry in Prometheus format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one endpoint request.
func (m *Metrics) ObserveRequest(kind string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.RequestsTotal.WithLabelValues(kind, outcome).Inc()
	m.RequestDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// SetPrefixes records the size of the merged prefix table.
func (m *Metrics) SetPrefixes(n int) {
	if m == nil {
		return
	}
	m.PrefixesLoaded.Set(float64(n))
}

// SetExamples records the number of loaded example queries.
func (m *Metrics) SetExamples(n int) {
	if m == nil {
		return
	}
	m.ExamplesLoaded.Set(float64(n))
}

// AddInjected records n injected PREFIX declarations.
func (m *Metrics) AddInjected(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PrefixesInjected.Add(float64(n))
}

// ObserveQuery records a user query execution by status class ("2xx", "4xx", ...).
func (m *Metrics) ObserveQuery(statusCode int) {
	if m == nil {
		return
	}
	class := "error"
	if statusCode >= 100 && statusCode < 600 {
		class = string(rune('0'+statusCode/100)) + "xx"
	}
	m.QueriesRun.WithLabelValues(class).Inc()
}
