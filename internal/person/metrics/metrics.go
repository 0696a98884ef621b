package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics observes the note log and projection.
type Metrics struct {
	NotesAppended    *prometheus.CounterVec
	StatusTransition *prometheus.CounterVec
	Subscriptions    *prometheus.CounterVec
	Moderation       *prometheus.CounterVec
}

// New creates and registers the person metrics.
func New() *Metrics {
	return &Metrics{
		NotesAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "personfinder_notes_appended_total",
			Help: "Notes stored by outcome",
		}, []string{"domain", "outcome"}), // outcome: "accepted", "quarantined", "imported"

		StatusTransition: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "personfinder_status_transitions_total",
			Help: "Specially logged projection transitions",
		}, []string{"domain", "transition"}),

		Subscriptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "personfinder_subscription_changes_total",
			Help: "Subscription changes by action",
		}, []string{"domain", "action"}),

		Moderation: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "personfinder_moderation_actions_total",
			Help: "Moderation actions on notes",
		}, []string{"domain", "action"}),
	}
}

func (m *Metrics) IncrementNotes(domain, outcome string) {
	if m != nil {
		m.NotesAppended.WithLabelValues(domain, outcome).Inc()
	}
}

func (m *Metrics) IncrementTransition(domain, transition string) {
	if m != nil {
		m.StatusTransition.WithLabelValues(domain, transition).Inc()
	}
}

func (m *Metrics) IncrementSubscription(domain, action string) {
	if m != nil {
		m.Subscriptions.WithLabelValues(domain, action).Inc()
	}
}

func (m *Metrics) IncrementModeration(domain, action string) {
	if m != nil {
		m.Moderation.WithLabelValues(domain, action).Inc()
	}
}
