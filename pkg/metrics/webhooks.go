package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records counters for inbound payment provider events.
type WebhookMetrics struct {
	received   *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	rejected   prometheus.Counter
	skipped    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Webhook events accepted after signature verification.",
	}, []string{"type"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_duplicate",
		Help: "Webhook events skipped because the ledger already recorded them.",
	}, []string{"type"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_rejected",
		Help: "Webhook deliveries that failed signature verification.",
	})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_skipped",
		Help: "Webhook events acknowledged but left unprocessed.",
	}, []string{"type", "reason"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_handle_duration_seconds",
		Help:    "Duration of webhook event handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
	reg.MustRegister(received, duplicates, rejected, skipped, duration)
	return &WebhookMetrics{
		received:   received,
		duplicates: duplicates,
		rejected:   rejected,
		skipped:    skipped,
		duration:   duration,
	}
}

// IncReceived counts an accepted event of the given type.
func (m *WebhookMetrics) IncReceived(eventType string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDuplicate counts a redelivery skipped by the ledger.
func (m *WebhookMetrics) IncDuplicate(eventType string) {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncRejected counts a delivery with an invalid signature.
func (m *WebhookMetrics) IncRejected() {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.Inc()
}

// IncSkipped counts an event acknowledged but not processed.
func (m *WebhookMetrics) IncSkipped(eventType, reason string) {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(eventType), reason).Inc()
}

// ObserveHandle records how long handling an event took.
func (m *WebhookMetrics) ObserveHandle(eventType string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(eventType)).Observe(d.Seconds())
}
