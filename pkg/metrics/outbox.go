package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks publisher outcomes per event type.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewOutboxMetrics registers the outbox publisher counters on reg.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "printdock_outbox_published_total",
		Help: "Outbox events published to Pub/Sub.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "printdock_outbox_failed_total",
		Help: "Outbox publish failures; terminal failures go to the DLQ.",
	}, []string{"event_type", "terminal"})
	reg.MustRegister(published, failed)
	return &OutboxMetrics{published: published, failed: failed}
}

// ObservePublished counts a successful publish.
func (m *OutboxMetrics) ObservePublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(jobLabel(eventType)).Inc()
}

// ObserveFailed counts a failed publish attempt.
func (m *OutboxMetrics) ObserveFailed(eventType string, terminal bool) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(jobLabel(eventType), strconv.FormatBool(terminal)).Inc()
}
