package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"personfinder/pkg/platform/outbox"
)

type Metrics struct {
	EventsPublished *prometheus.CounterVec
	PublishFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "personfinder_outbox_events_published_total",
			Help: "Outbox events delivered to the publisher, by event type",
		}, []string{"type"}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "personfinder_outbox_publish_failures_total",
			Help: "Events in batches the publisher rejected",
		}),
	}
}

func (m *Metrics) IncrementPublished(eventType outbox.EventType) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(string(eventType)).Inc()
}

func (m *Metrics) IncrementFailure(n int) {
	if m == nil {
		return
	}
	m.PublishFailures.Add(float64(n))
}
