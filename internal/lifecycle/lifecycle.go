// Package lifecycle retires expired person records.
//
// A person is ACTIVE until its expiry date passes, PAST_DUE (flagged
// is_expired and hidden from the live listing) during the grace period, and
// TOMBSTONED afterwards: notes, photos and subscriptions are deleted and the
// content fields cleared, but the row keeps its id so mirrors observe the
// deletion.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"personfinder/internal/person/models"
	"personfinder/internal/person/store"
	id "personfinder/pkg/domain"
	dErrors "personfinder/pkg/domain-errors"
	"personfinder/pkg/platform/outbox"
	"personfinder/pkg/platform/sentinel"
	"personfinder/pkg/requestcontext"
)

const defaultBatchSize = 100

// SweepResult counts what one sweep changed.
type SweepResult struct {
	Marked     int
	Tombstoned int
}

type Manager struct {
	store     store.Store
	tx        store.TxRunner
	events    outbox.Store
	grace     time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics
}

type Option func(*Manager)

// WithGracePeriod sets how long a past-due person stays recoverable before
// the cascade runs. Zero tombstones on the first sweep after expiry.
func WithGracePeriod(d time.Duration) Option {
	return func(m *Manager) { m.grace = d }
}

func WithBatchSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

func New(st store.Store, tx store.TxRunner, events outbox.Store, opts ...Option) *Manager {
	m := &Manager{
		store:     st,
		tx:        tx,
		events:    events,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DeleteExpired runs one sweep over domain. It is safe to run repeatedly and
// concurrently with itself: each person is re-checked under its own lock and
// already tombstoned records are left alone.
func (m *Manager) DeleteExpired(ctx context.Context, domain string) (SweepResult, error) {
	if err := id.ValidateDomain(domain); err != nil {
		return SweepResult{}, err
	}
	start := time.Now()
	now := requestcontext.Now(ctx)
	var result SweepResult

	// Past the grace period: the cascade removes each person from the
	// candidate set, so paging from the start always makes progress.
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		batch, err := m.store.ListPastDue(ctx, domain, now.Add(-m.grace), m.batchSize)
		if err != nil {
			return result, dErrors.Wrap(err, dErrors.CodeStorage, "list past-due persons")
		}
		var progressed int
		for _, p := range batch {
			done, err := m.tombstone(ctx, domain, p.ID, now)
			if err != nil {
				return result, err
			}
			if done {
				progressed++
			}
		}
		result.Tombstoned += progressed
		if len(batch) < m.batchSize {
			break
		}
	}

	// Inside the grace period: flag only.
	if m.grace > 0 {
		pending, err := m.store.ListPastDue(ctx, domain, now, 0)
		if err != nil {
			return result, dErrors.Wrap(err, dErrors.CodeStorage, "list past-due persons")
		}
		for _, p := range pending {
			if p.IsExpired {
				continue
			}
			marked, err := m.markExpired(ctx, domain, p.ID, now)
			if err != nil {
				return result, err
			}
			if marked {
				result.Marked++
			}
		}
	}

	m.metrics.ObserveSweep(domain, result.Marked, result.Tombstoned, time.Since(start))
	if result.Marked > 0 || result.Tombstoned > 0 {
		m.logger.InfoContext(ctx, "expiry sweep completed",
			"domain", domain,
			"marked", result.Marked,
			"tombstoned", result.Tombstoned,
		)
	}
	return result, nil
}

// SweepAll sweeps each domain in turn and keeps going past failures.
func (m *Manager) SweepAll(ctx context.Context, domains []string) error {
	var errs []error
	for _, d := range domains {
		if _, err := m.DeleteExpired(ctx, d); err != nil {
			m.logger.ErrorContext(ctx, "expiry sweep failed", "domain", d, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) tombstone(ctx context.Context, domain string, personID id.RecordID, now time.Time) (bool, error) {
	var done bool
	err := m.tx.RunInTx(ctx, personID, func(ctx context.Context, st store.Store) error {
		p, err := st.FindPerson(ctx, domain, personID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeStorage, "load person")
		}
		if p.IsTombstoned() || !p.IsPastDue(now.Add(-m.grace)) {
			return nil
		}

		notes, err := st.ListNotes(ctx, domain, personID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeStorage, "list notes")
		}
		photos := photoIDs(p, notes)
		if _, err := st.DeleteNotes(ctx, domain, personID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeStorage, "delete notes")
		}
		if len(photos) > 0 {
			if err := st.DeletePhotos(ctx, domain, photos); err != nil {
				return dErrors.Wrap(err, dErrors.CodeStorage, "delete photos")
			}
		}
		if err := st.DeleteSubscriptions(ctx, domain, personID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeStorage, "delete subscriptions")
		}

		p.Tombstone(now)
		if err := st.UpdatePerson(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeStorage, "tombstone person")
		}

		event := outbox.NewEvent(outbox.EventPersonTombstoned, domain, string(personID), now, map[string]any{
			"person_id":     string(personID),
			"deleted_notes": len(notes),
		})
		if err := m.events.Append(ctx, event); err != nil {
			return dErrors.Wrap(err, dErrors.CodeStorage, "queue tombstone event")
		}
		done = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if done {
		m.logger.DebugContext(ctx, "person tombstoned", "domain", domain, "person_id", personID)
	}
	return done, nil
}

func (m *Manager) markExpired(ctx context.Context, domain string, personID id.RecordID, now time.Time) (bool, error) {
	var marked bool
	err := m.tx.RunInTx(ctx, personID, func(ctx context.Context, st store.Store) error {
		p, err := st.FindPerson(ctx, domain, personID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeStorage, "load person")
		}
		if p.IsExpired || p.IsTombstoned() || !p.IsPastDue(now) {
			return nil
		}
		p.IsExpired = true
		if err := st.UpdatePerson(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeStorage, "mark person expired")
		}
		marked = true
		return nil
	})
	return marked, err
}

// photoIDs collects the person's photo and those referenced by its notes.
func photoIDs(p *models.Person, notes []*models.Note) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	add := func(v *int64) {
		if v == nil {
			return
		}
		if _, ok := seen[*v]; ok {
			return
		}
		seen[*v] = struct{}{}
		ids = append(ids, *v)
	}
	add(p.PhotoID)
	for _, n := range notes {
		add(n.PhotoID)
	}
	return ids
}

// ListLive returns persons not flagged expired.
func (m *Manager) ListLive(ctx context.Context, domain string, limit int) ([]*models.Person, error) {
	persons, err := m.store.ListPersons(ctx, domain, models.ListFilter{Limit: limit})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "list live persons")
	}
	return persons, nil
}

// ListPastDue returns only persons flagged expired, tombstones included.
func (m *Manager) ListPastDue(ctx context.Context, domain string, limit int) ([]*models.Person, error) {
	persons, err := m.store.ListPersons(ctx, domain, models.ListFilter{Expired: true, Limit: limit})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "list past-due persons")
	}
	return persons, nil
}
