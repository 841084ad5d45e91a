// Package metrics exposes authentication counters for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	authAttempts       *prometheus.CounterVec
	rateLimited        *prometheus.CounterVec
	sessionValidations *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warden",
			Name:      "auth_attempts_total",
			Help:      "Register and login attempts by outcome.",
		}, []string{"action", "result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warden",
			Name:      "rate_limited_total",
			Help:      "Attempts refused by a rate limiter.",
		}, []string{"action"}),
		sessionValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warden",
			Name:      "session_validations_total",
			Help:      "Session token validations by status.",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warden",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "warden",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.authAttempts,
		m.rateLimited,
		m.sessionValidations,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// AuthAttempt counts one register or login outcome.
func (m *Metrics) AuthAttempt(action, result string) {
	m.authAttempts.WithLabelValues(action, result).Inc()
}

// RateLimited counts a refused attempt.
func (m *Metrics) RateLimited(action string) {
	m.rateLimited.WithLabelValues(action).Inc()
}

// SessionValidation counts a validation by its status name.
func (m *Metrics) SessionValidation(status string) {
	m.sessionValidations.WithLabelValues(status).Inc()
}

// ObserveRequest records a served HTTP request.
func (m *Metrics) ObserveRequest(method string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
