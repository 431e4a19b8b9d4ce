// Package metrics exposes Prometheus counters for imports and exports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Row outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeCreated  = "created"
	OutcomeUpdated  = "updated"
	OutcomeFailed   = "failed"
)

// ImportMetrics records import and export activity.
type ImportMetrics struct {
	registry     *prometheus.Registry
	rows         *prometheus.CounterVec
	runs         *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	exportedRows *prometheus.CounterVec
}

// NewImportMetrics registers collectors on a private registry.
func NewImportMetrics() *ImportMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &ImportMetrics{
		registry: registry,
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "memberimport_rows_total",
			Help: "Rows processed by catalog, mode and outcome",
		}, []string{"catalog", "mode", "outcome"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "memberimport_runs_total",
			Help: "Test and import runs by catalog and mode",
		}, []string{"catalog", "mode"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memberimport_run_duration_seconds",
			Help:    "Duration of test and import runs",
			Buckets: prometheus.DefBuckets,
		}, []string{"catalog", "mode"}),
		exportedRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "memberimport_exported_rows_total",
			Help: "Members written by exports, by format",
		}, []string{"format"}),
	}
}

// ObserveRun records one run.
func (m *ImportMetrics) ObserveRun(catalog, mode string, started time.Time) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(catalog, mode).Inc()
	m.duration.WithLabelValues(catalog, mode).Observe(time.Since(started).Seconds())
}

// AddRows counts n rows with the given outcome.
func (m *ImportMetrics) AddRows(catalog, mode, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(catalog, mode, outcome).Add(float64(n))
}

// AddExported counts exported members.
func (m *ImportMetrics) AddExported(format string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.exportedRows.WithLabelValues(format).Add(float64(n))
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *ImportMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *ImportMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
