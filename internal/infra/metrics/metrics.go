package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	webhookEventsTotal  *prometheus.CounterVec
	fulfillmentTotal    *prometheus.CounterVec
	checkoutTotal       *prometheus.CounterVec
}

func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		webhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_events_total",
				Help: "Payment webhook deliveries by event type and outcome",
			},
			[]string{"type", "outcome"},
		),
		fulfillmentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfillment_results_total",
				Help: "Fulfillment branch results by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		checkoutTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_sessions_total",
				Help: "Checkout sessions by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
	}

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.webhookEventsTotal,
		m.fulfillmentTotal,
		m.checkoutTotal,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) WebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) Fulfillment(kind, outcome string) {
	if m == nil {
		return
	}
	m.fulfillmentTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Checkout(mode, outcome string) {
	if m == nil {
		return
	}
	m.checkoutTotal.WithLabelValues(mode, outcome).Inc()
}
