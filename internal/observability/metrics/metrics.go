// Package metrics exposes the application's prometheus instruments.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the domain and HTTP instruments. A nil *Metrics is
// safe to call; recording is skipped.
type Metrics struct {
	orderTransitions *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	activations      *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers the instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendaro_order_transitions_total",
			Help: "Order status transitions applied, by target status.",
		}, []string{"status"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendaro_webhook_events_total",
			Help: "Inbound payment webhook events, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendaro_subscription_activations_total",
			Help: "Seller subscription activations, by tier.",
		}, []string{"tier"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendaro_http_requests_total",
			Help: "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vendaro_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.orderTransitions,
		m.webhookEvents,
		m.activations,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) RecordOrderTransition(status string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordWebhookEvent(kind, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordActivation(tier string) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(tier).Inc()
}

func (m *Metrics) recordHTTP(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}
