package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"personfinder/pkg/platform/outbox"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 100
)

// Relay polls the outbox and hands pending events to a Publisher. Delivery is
// at least once: a batch is marked only after the publisher accepts it.
type Relay struct {
	store     outbox.Store
	publisher Publisher
	interval  time.Duration
	batch     int
	now       func() time.Time
	logger    *slog.Logger
	metrics   *Metrics
}

type RelayOption func(*Relay)

func WithPollInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithClock(now func() time.Time) RelayOption {
	return func(r *Relay) {
		r.now = now
	}
}

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) RelayOption {
	return func(r *Relay) {
		r.metrics = m
	}
}

func NewRelay(store outbox.Store, publisher Publisher, opts ...RelayOption) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		interval:  defaultPollInterval,
		batch:     defaultBatchSize,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled. Failures are logged and retried on the
// next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "outbox relay started",
		"poll_interval", r.interval,
		"batch_size", r.batch,
	)
	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Flush publishes pending batches until the outbox is drained or a batch
// fails. It returns how many events were published.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	published := 0
	for {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		n, err := r.publishBatch(ctx)
		published += n
		if err != nil {
			return published, err
		}
		if n < r.batch {
			return published, nil
		}
	}
}

func (r *Relay) publishBatch(ctx context.Context) (int, error) {
	events, err := r.store.Pending(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	if err := r.publisher.Publish(ctx, events); err != nil {
		r.metrics.IncrementFailure(len(events))
		r.logger.WarnContext(ctx, "failed to publish outbox batch",
			"events", len(events),
			"error", err,
		)
		return 0, err
	}

	ids := make([]uuid.UUID, len(events))
	for i, event := range events {
		ids[i] = event.ID
	}
	if err := r.store.MarkPublished(ctx, ids, r.now()); err != nil {
		// The batch is out; it will be published again on the next pass.
		r.logger.ErrorContext(ctx, "failed to mark outbox batch published",
			"events", len(events),
			"error", err,
		)
		return 0, err
	}
	for _, event := range events {
		r.metrics.IncrementPublished(event.Type)
	}
	r.logger.DebugContext(ctx, "outbox batch published", "events", len(events))
	return len(events), nil
}
