package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes Prometheus instruments for the HTTP surface and the
// realtime credential protocol.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
	redemptions     *prometheus.CounterVec
	liveConnections prometheus.Gauge
	credentialPush  prometheus.Counter
}

// NewMetrics initializes a dedicated registry with all instruments.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "checkin_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_http_request_errors_total",
			Help: "Requests rejected with a domain error, by code.",
		}, []string{"path", "method", "code"}),
		redemptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "checkin_redemptions_total",
			Help: "Credential redemption attempts by outcome.",
		}, []string{"outcome"}),
		liveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "checkin_live_connections",
			Help: "Currently connected realtime clients.",
		}),
		credentialPush: factory.NewCounter(prometheus.CounterOpts{
			Name: "checkin_credential_pushes_total",
			Help: "Presence credentials pushed over the realtime channel.",
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest observes one completed HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError counts a request rejected with a domain error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.requestErrors.WithLabelValues(path, method, code).Inc()
}

// RecordRedemption counts one redemption attempt outcome.
func (m *Metrics) RecordRedemption(outcome string) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(outcome).Inc()
}

// ConnectionOpened increments the live connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.liveConnections.Inc()
}

// ConnectionClosed decrements the live connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.liveConnections.Dec()
}

// RecordCredentialPush counts one presence credential delivery.
func (m *Metrics) RecordCredentialPush() {
	if m == nil {
		return
	}
	m.credentialPush.Inc()
}
