package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout session outcomes.
const (
	CheckoutResultCreated  = "created"
	CheckoutResultRejected = "rejected"
	CheckoutResultFailed   = "failed"
)

// Metrics records checkout, reconcile and HTTP traffic counters.
type Metrics struct {
	checkoutSessions  *prometheus.CounterVec
	webhookEvents     *prometheus.CounterVec
	reconcileDuration prometheus.Histogram
	httpRequests      *prometheus.CounterVec
}

// New registers the storefront metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	checkoutSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Checkout session attempts by result.",
	}, []string{"result"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Provider webhook events by type and outcome.",
	}, []string{"type", "outcome"})
	reconcileDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconcile_duration_seconds",
		Help:    "Duration of completion reconciliation in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	reg.MustRegister(checkoutSessions, webhookEvents, reconcileDuration, httpRequests)
	return &Metrics{
		checkoutSessions:  checkoutSessions,
		webhookEvents:     webhookEvents,
		reconcileDuration: reconcileDuration,
		httpRequests:      httpRequests,
	}
}

// IncCheckoutSession counts one checkout attempt with the given result.
func (m *Metrics) IncCheckoutSession(result string) {
	if m == nil || m.checkoutSessions == nil {
		return
	}
	m.checkoutSessions.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncWebhookEvent counts one processed webhook event.
func (m *Metrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveReconcile records how long a reconcile took.
func (m *Metrics) ObserveReconcile(duration time.Duration) {
	if m == nil || m.reconcileDuration == nil {
		return
	}
	m.reconcileDuration.Observe(duration.Seconds())
}

// IncHTTPRequest counts one served request.
func (m *Metrics) IncHTTPRequest(method, route string, status int) {
	if m == nil || m.httpRequests == nil {
		return
	}
	m.httpRequests.WithLabelValues(normalizeLabel(method), normalizeLabel(route), strconv.Itoa(status)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
