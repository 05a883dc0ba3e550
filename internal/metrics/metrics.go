// Package metrics exposes pipeline and HTTP counters through Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randomtoy/readingd/internal/domain"
	"github.com/randomtoy/readingd/internal/ports"
)

const namespace = "readingd"

// Metrics implements ports.PipelineMetrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	submissions  *prometheus.CounterVec
	pollAttempts *prometheus.CounterVec
	resolutions  *prometheus.CounterVec
	resolveTime  prometheus.Histogram
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var _ ports.PipelineMetrics = (*Metrics)(nil)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "submissions_total",
				Help:      "Reading submissions by outcome mode.",
			},
			[]string{"mode"},
		),
		pollAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "poll_attempts_total",
				Help:      "Status reads by observed job status.",
			},
			[]string{"status"},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "results_total",
				Help:      "Reading results by error code; empty code means success.",
			},
			[]string{"code"},
		),
		resolveTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "resolve_duration_seconds",
				Help:      "Time from submission to a final reading result.",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 11), // 100ms to ~100s
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.submissions,
		m.pollAttempts,
		m.resolutions,
		m.resolveTime,
		m.httpRequests,
		m.httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Submitted(mode string) {
	m.submissions.WithLabelValues(mode).Inc()
}

func (m *Metrics) PollAttempt(status string) {
	m.pollAttempts.WithLabelValues(status).Inc()
}

func (m *Metrics) Resolved(code domain.ErrorCode, elapsed time.Duration) {
	label := string(code)
	if label == "" {
		label = "ok"
	}
	m.resolutions.WithLabelValues(label).Inc()
	m.resolveTime.Observe(elapsed.Seconds())
}

// ObserveHTTP records one handled request. route is the router pattern, not
// the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
