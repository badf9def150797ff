package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Script run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeTimeout   = "timeout"
	OutcomeErrored   = "errored"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Script metrics
	ScriptRuns     *prometheus.CounterVec
	ScriptDuration *prometheus.HistogramVec
	ScriptTests    *prometheus.CounterVec
	ScriptsBusy    prometheus.Gauge

	// Outbound requests sent by scripts
	TransportSends    *prometheus.CounterVec
	TransportDuration prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for the JSON API
type MetricsSnapshot struct {
	TotalRequests  int64   `json:"totalRequests"`
	TotalErrors    int64   `json:"totalErrors"`
	ScriptRuns     int64   `json:"scriptRuns"`
	ScriptTimeouts int64   `json:"scriptTimeouts"`
	ScriptErrors   int64   `json:"scriptErrors"`
	TestsPassed    int64   `json:"testsPassed"`
	TestsFailed    int64   `json:"testsFailed"`
	TestsSkipped   int64   `json:"testsSkipped"`
	Busy           int64   `json:"busy"`
	AvgRunSeconds  float64 `json:"avgRunSeconds"`
	UptimeSeconds  float64 `json:"uptimeSeconds"`
	totalRunTime   float64
}

// NewMetrics creates a metrics collector backed by its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scripting_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scripting_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scripting_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scripting_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		ScriptRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scripting_runs_total",
				Help: "Total number of script runs by outcome",
			},
			[]string{"outcome"},
		),
		ScriptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scripting_run_duration_seconds",
				Help:    "Script run duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		ScriptTests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scripting_test_results_total",
				Help: "Total number of recorded script tests by status",
			},
			[]string{"status", "category"},
		),
		ScriptsBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scripting_runs_in_flight",
				Help: "Number of script runs currently executing",
			},
		),

		TransportSends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scripting_send_requests_total",
				Help: "Total number of requests sent from scripts",
			},
			[]string{"method", "status"},
		),
		TransportDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scripting_send_request_duration_seconds",
				Help:    "Duration of requests sent from scripts",
				Buckets: prometheus.DefBuckets,
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scripting_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scripting_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "scripting_uptime_seconds",
			Help: "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordScriptRun records a finished script run.
func (m *Metrics) RecordScriptRun(outcome string, duration time.Duration) {
	m.ScriptRuns.WithLabelValues(outcome).Inc()
	m.ScriptDuration.WithLabelValues(outcome).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.ScriptRuns++
	m.snapshot.totalRunTime += duration.Seconds()
	switch outcome {
	case OutcomeTimeout:
		m.snapshot.ScriptTimeouts++
	case OutcomeErrored:
		m.snapshot.ScriptErrors++
	}
	m.mu.Unlock()
}

// RecordTestResult records one test result reported by a script.
func (m *Metrics) RecordTestResult(status, category string) {
	m.ScriptTests.WithLabelValues(status, category).Inc()

	m.mu.Lock()
	switch status {
	case "passed":
		m.snapshot.TestsPassed++
	case "failed":
		m.snapshot.TestsFailed++
	case "skipped":
		m.snapshot.TestsSkipped++
	}
	m.mu.Unlock()
}

// SetBusy tracks a run entering (true) or leaving (false) execution.
func (m *Metrics) SetBusy(busy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if busy {
		m.ScriptsBusy.Inc()
		m.snapshot.Busy++
		return
	}
	m.ScriptsBusy.Dec()
	m.snapshot.Busy--
}

// RecordSend records a request sent on behalf of a script.
func (m *Metrics) RecordSend(method, status string, duration time.Duration) {
	m.TransportSends.WithLabelValues(method, status).Inc()
	m.TransportDuration.Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// Snapshot returns the current values for the JSON API.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.ScriptRuns > 0 {
		s.AvgRunSeconds = s.totalRunTime / float64(s.ScriptRuns)
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
