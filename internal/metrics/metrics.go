package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the console's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	BackendRequestsTotal   *prometheus.CounterVec
	BackendRequestDuration *prometheus.HistogramVec
	LoginsTotal            *prometheus.CounterVec
	SessionEventsTotal     *prometheus.CounterVec
	SessionsCached         prometheus.Gauge
}

// New creates and registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BackendRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_backend_requests_total",
				Help: "Requests sent to the school backend",
			},
			[]string{"endpoint", "outcome"},
		),
		BackendRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_backend_request_duration_seconds",
				Help:    "Backend request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		SessionEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_session_events_total",
				Help: "Session lifecycle events",
			},
			[]string{"kind"},
		),
		SessionsCached: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "console_sessions_cached",
			Help: "Session managers held in memory",
		}),
	}

	m.registry.MustRegister(
		m.BackendRequestsTotal,
		m.BackendRequestDuration,
		m.LoginsTotal,
		m.SessionEventsTotal,
		m.SessionsCached,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveBackend records one backend call. A nil receiver is a no-op so
// callers can run without metrics in tests.
func (m *Metrics) ObserveBackend(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.BackendRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveLogin counts a login attempt.
func (m *Metrics) ObserveLogin(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// ObserveSessionEvent counts a session lifecycle event.
func (m *Metrics) ObserveSessionEvent(kind string) {
	if m == nil {
		return
	}
	m.SessionEventsTotal.WithLabelValues(kind).Inc()
}

// SetSessionsCached reports the session cache size.
func (m *Metrics) SetSessionsCached(n int) {
	if m == nil {
		return
	}
	m.SessionsCached.Set(float64(n))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
