package lifecycle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Transitions   *prometheus.CounterVec
	SweepDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "personfinder_lifecycle_transitions_total",
			Help: "Persons moved by the expiry sweep",
		}, []string{"domain", "state"}), // state: "past_due", "tombstoned"

		SweepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "personfinder_lifecycle_sweep_duration_seconds",
			Help:    "Duration of one expiry sweep over a domain",
			Buckets: prometheus.DefBuckets,
		}, []string{"domain"}),
	}
}

func (m *Metrics) ObserveSweep(domain string, marked, tombstoned int, d time.Duration) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(domain, "past_due").Add(float64(marked))
	m.Transitions.WithLabelValues(domain, "tombstoned").Add(float64(tombstoned))
	m.SweepDuration.WithLabelValues(domain).Observe(d.Seconds())
}
