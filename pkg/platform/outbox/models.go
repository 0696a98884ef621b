// Package outbox carries domain events from a transaction to the message bus.
//
// Services append events inside the same per-person transaction that changed
// the records; a relay later reads pending entries and publishes them.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names what happened.
type EventType string

const (
	// EventNoteAdded is emitted once per subscription when a visible note is accepted.
	EventNoteAdded EventType = "note_added"
	// EventBelievedDead marks a transition into believed_dead.
	EventBelievedDead EventType = "status_believed_dead"
	// EventReportedAlive marks a transition into an alive-class status.
	EventReportedAlive EventType = "status_alive"
	// EventPersonTombstoned is emitted by the expiry sweep.
	EventPersonTombstoned EventType = "person_tombstoned"
	// EventImportCompleted summarises one write batch.
	EventImportCompleted EventType = "import_completed"
)

// Event is transport agnostic; Payload must be JSON serialisable.
type Event struct {
	ID          uuid.UUID      `json:"id"`
	Type        EventType      `json:"type"`
	Domain      string         `json:"domain"`
	AggregateID string         `json:"aggregate_id"`
	Payload     map[string]any `json:"payload,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewEvent fills the id and timestamp.
func NewEvent(eventType EventType, domain, aggregateID string, now time.Time, payload map[string]any) Event {
	return Event{
		ID:          uuid.New(),
		Type:        eventType,
		Domain:      domain,
		AggregateID: aggregateID,
		Payload:     payload,
		CreatedAt:   now,
	}
}

// Store is the outbox table.
type Store interface {
	Append(ctx context.Context, event Event) error
	Pending(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}
