package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the perimeter pipeline.
type Metrics struct {
	// Decision metrics
	checksTotal   *prometheus.CounterVec
	checkLatency  *prometheus.HistogramVec
	checkFailures *prometheus.CounterVec

	// Pipeline metrics
	pipelineOutcomes  *prometheus.CounterVec
	pipelineDuration  *prometheus.HistogramVec
	documentsFiltered *prometheus.CounterVec

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance with all pipeline metrics registered
// on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingate_checks_total",
				Help: "Authorization checks by perimeter and outcome",
			},
			[]string{"perimeter", "outcome"},
		),

		checkLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fingate_check_duration_seconds",
				Help:    "Decision point check latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"perimeter"},
		),

		checkFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingate_check_failures_total",
				Help: "Fail-closed denials caused by decision point faults",
			},
			[]string{"perimeter"},
		),

		pipelineOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingate_pipeline_outcomes_total",
				Help: "Pipeline terminal states by outcome and rejecting perimeter",
			},
			[]string{"outcome", "perimeter"},
		),

		pipelineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fingate_pipeline_duration_seconds",
				Help:    "End-to-end pipeline latency in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"outcome"},
		),

		documentsFiltered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingate_documents_filtered_total",
				Help: "Documents retained or dropped by the data protection perimeter",
			},
			[]string{"result"},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingate_http_requests_total",
				Help: "HTTP requests by path and status code",
			},
			[]string{"path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fingate_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.checksTotal,
		m.checkLatency,
		m.checkFailures,
		m.pipelineOutcomes,
		m.pipelineDuration,
		m.documentsFiltered,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	return m
}

// RecordCheck records a single perimeter authorization check. All methods are
// nil-safe so callers can run without metrics wired.
func (m *Metrics) RecordCheck(perimeter string, allowed bool, failClosed bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.checksTotal.WithLabelValues(perimeter, outcome).Inc()
	m.checkLatency.WithLabelValues(perimeter).Observe(duration.Seconds())
	if failClosed {
		m.checkFailures.WithLabelValues(perimeter).Inc()
	}
}

// RecordPipeline records a pipeline run reaching a terminal state. perimeter
// names the rejecting gate, or "none" for delivered responses.
func (m *Metrics) RecordPipeline(outcome, perimeter string, duration time.Duration) {
	if m == nil {
		return
	}
	if perimeter == "" {
		perimeter = "none"
	}
	m.pipelineOutcomes.WithLabelValues(outcome, perimeter).Inc()
	m.pipelineDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordDocuments records data-protection filtering results.
func (m *Metrics) RecordDocuments(retained, dropped int) {
	if m == nil {
		return
	}
	m.documentsFiltered.WithLabelValues("retained").Add(float64(retained))
	m.documentsFiltered.WithLabelValues("dropped").Add(float64(dropped))
}

// RecordHTTPRequest records an HTTP request against the serve surface.
func (m *Metrics) RecordHTTPRequest(path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(path, status).Inc()
	m.httpRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// Handler returns an HTTP handler exposing the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
