package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"personfinder/pkg/platform/outbox"
	txcontext "personfinder/pkg/platform/tx"
)

// Store implements outbox.Store on the outbox table. Append joins the
// transaction carried by ctx so events commit with the records they describe.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL outbox store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes an event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event outbox.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = txcontext.Or(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		"person",
		event.AggregateID,
		string(event.Type),
		payload,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Pending returns unpublished entries, oldest first. Rows are locked with
// SKIP LOCKED when called inside a transaction so relays do not collide.
func (s *Store) Pending(ctx context.Context, limit int) ([]outbox.Event, error) {
	query := `
		SELECT payload FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	if _, ok := txcontext.From(ctx); ok {
		query += ` FOR UPDATE SKIP LOCKED`
	}
	rows, err := txcontext.Or(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		var event outbox.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			return nil, fmt.Errorf("decode outbox entry: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return events, nil
}

func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, eventID := range ids {
		raw[i] = eventID.String()
	}
	_, err := txcontext.Or(ctx, s.db).ExecContext(ctx,
		`UPDATE outbox SET published_at = $2 WHERE id = ANY($1::uuid[])`,
		pq.Array(raw), at)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
