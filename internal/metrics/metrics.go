package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported on /metrics
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuthEvents      *prometheus.CounterVec
	TestEvents      *prometheus.CounterVec
}

// New registers every collector on a dedicated registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidate_auth_events_total",
				Help: "Candidate access-code events by outcome",
			},
			[]string{"event"},
		),
		TestEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "test_instance_events_total",
				Help: "Test lifecycle events by test type",
			},
			[]string{"event", "test_type"},
		),
	}

	m.registry.MustRegister(
		prometheus.NewGoCollector(),
		m.RequestCounter,
		m.RequestDuration,
		m.AuthEvents,
		m.TestEvents,
	)
	return m
}

// Auth event labels
const (
	AuthCodeIssued    = "code_issued"
	AuthCodeValidated = "code_validated"
	AuthCodeRejected  = "code_rejected"
	AuthLockout       = "lockout"
)

// Test event labels
const (
	TestCreated   = "created"
	TestStarted   = "started"
	TestSubmitted = "submitted"
)

// IncAuth counts a candidate authentication event. Safe on a nil receiver.
func (m *Metrics) IncAuth(event string) {
	if m == nil {
		return
	}
	m.AuthEvents.WithLabelValues(event).Inc()
}

// IncTest counts a test lifecycle event. Safe on a nil receiver.
func (m *Metrics) IncTest(event, testType string) {
	if m == nil {
		return
	}
	m.TestEvents.WithLabelValues(event, testType).Inc()
}

// Middleware records request count and latency per route template
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		m.RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// HTTPHandler returns the plain net/http handler, for a separate metrics listener
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
