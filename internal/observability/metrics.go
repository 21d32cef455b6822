package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector holds all Prometheus metrics for ociq.
// Uses a custom registry, no global state.
type MetricsCollector struct {
	Registry *prometheus.Registry

	// Query pipeline metrics. The outcome label is "ok" or one of the
	// envelope error kinds.
	QueriesTotal  *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	// Validation metrics.
	ValidationViolationsTotal prometheus.Counter

	// Admin HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// System metrics.
	ActiveQueries prometheus.Gauge
}

// NewMetricsCollector creates a MetricsCollector with all metrics registered
// on a custom prometheus.Registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	m := &MetricsCollector{
		Registry: reg,

		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ociq",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total queries executed, by outcome.",
		}, []string{"outcome"}),

		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ociq",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "End-to-end query duration in seconds, by outcome.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"outcome"}),

		ValidationViolationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ociq",
			Subsystem: "validation",
			Name:      "violations_total",
			Help:      "Total whitelist violations reported across denied queries.",
		}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ociq",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		}, []string{"method", "path", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ociq",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		ActiveQueries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ociq",
			Name:      "active_queries",
			Help:      "Number of queries currently executing.",
		}),
	}

	// Register all collectors.
	reg.MustRegister(
		m.QueriesTotal,
		m.QueryDuration,
		m.ValidationViolationsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ActiveQueries,
	)

	return m
}
