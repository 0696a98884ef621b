//go:build integration

package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"personfinder/internal/person/models"
	"personfinder/internal/person/store"
	"personfinder/internal/search/query"
	id "personfinder/pkg/domain"
	"personfinder/pkg/platform/outbox"
	outboxpostgres "personfinder/pkg/platform/outbox/store/postgres"
	"personfinder/pkg/platform/sentinel"
	"personfinder/pkg/testutil/containers"
)

const domain = "haiti"

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	tx       *store.PostgresTx
	outbox   *outboxpostgres.Store
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.tx = store.NewPostgresTx(s.postgres.DB)
	s.outbox = outboxpostgres.New(s.postgres.DB)
	s.now = time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"note_flags", "notes", "subscriptions", "photos", "persons", "outbox")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newPerson(name string) *models.Person {
	return &models.Person{
		Domain:         domain,
		ID:             id.RecordID(domain + "/person." + uuid.NewString()),
		OriginalDomain: domain,
		FullName:       name,
		HomeCity:       "Port-au-Prince",
		EntryDate:      s.now,
	}
}

func (s *PostgresStoreSuite) TestPersonRoundTrip() {
	ctx := context.Background()
	expiry := s.now.Add(30 * 24 * time.Hour)
	p := s.newPerson("Marie Joseph")
	p.ExpiryDate = &expiry
	p.LinkedPersonIDs = []id.RecordID{"haiti/person.2"}

	s.Require().NoError(s.store.CreatePerson(ctx, p))

	got, err := s.store.FindPerson(ctx, domain, p.ID)
	s.Require().NoError(err)
	s.Equal("Marie Joseph", got.FullName)
	s.Equal([]id.RecordID{"haiti/person.2"}, got.LinkedPersonIDs)
	s.Require().NotNil(got.ExpiryDate)
	s.True(expiry.Equal(*got.ExpiryDate))

	s.Run("duplicate ids conflict", func() {
		err := s.store.CreatePerson(ctx, p)
		s.True(errors.Is(err, sentinel.ErrConflict))
	})

	s.Run("ids are scoped by domain", func() {
		_, err := s.store.FindPerson(ctx, "japan", p.ID)
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})
}

func (s *PostgresStoreSuite) TestSearchAndExpiry() {
	ctx := context.Background()
	past := s.now.Add(-time.Hour)

	live := s.newPerson("Jean Baptiste")
	s.Require().NoError(s.store.CreatePerson(ctx, live))
	due := s.newPerson("Jean Louis")
	due.ExpiryDate = &past
	s.Require().NoError(s.store.CreatePerson(ctx, due))

	hits, err := s.store.SearchPersons(ctx, domain, query.Parse("jean"), false, 10)
	s.Require().NoError(err)
	s.Len(hits, 2)

	pastDue, err := s.store.ListPastDue(ctx, domain, s.now, 10)
	s.Require().NoError(err)
	s.Require().Len(pastDue, 1)
	s.Equal(due.ID, pastDue[0].ID)

	due.Tombstone(s.now)
	s.Require().NoError(s.store.UpdatePerson(ctx, due))

	hits, err = s.store.SearchPersons(ctx, domain, query.Parse("jean"), false, 10)
	s.Require().NoError(err)
	s.Require().Len(hits, 1)
	s.Equal(live.ID, hits[0].ID)

	expired, err := s.store.ListPersons(ctx, domain, models.ListFilter{Expired: true})
	s.Require().NoError(err)
	s.Require().Len(expired, 1)
	s.True(expired[0].IsTombstoned())
}

func (s *PostgresStoreSuite) TestNotesKeepInsertionOrder() {
	ctx := context.Background()
	p := s.newPerson("Order Test")
	s.Require().NoError(s.store.CreatePerson(ctx, p))

	for i := range 3 {
		s.Require().NoError(s.store.CreateNote(ctx, &models.Note{
			Domain:         domain,
			ID:             id.RecordID(fmt.Sprintf("%s/note.%d", domain, i)),
			PersonID:       p.ID,
			OriginalDomain: domain,
			Text:           fmt.Sprintf("note %d", i),
			EntryDate:      s.now,
		}))
	}

	notes, err := s.store.ListNotes(ctx, domain, p.ID)
	s.Require().NoError(err)
	s.Require().Len(notes, 3)
	for i, n := range notes {
		s.Equal(fmt.Sprintf("note %d", i), n.Text)
	}
	s.Less(notes[0].Seq, notes[2].Seq)

	deleted, err := s.store.DeleteNotes(ctx, domain, p.ID)
	s.Require().NoError(err)
	s.Equal(3, deleted)
}

func (s *PostgresStoreSuite) TestSubscriptionUpsert() {
	ctx := context.Background()
	p := s.newPerson("Subscribed")
	s.Require().NoError(s.store.CreatePerson(ctx, p))

	sub := &models.Subscription{Domain: domain, PersonID: p.ID, Email: "a@example.org", Language: "fr", CreatedAt: s.now}
	created, err := s.store.UpsertSubscription(ctx, sub)
	s.Require().NoError(err)
	s.True(created)

	sub.Language = "en"
	created, err = s.store.UpsertSubscription(ctx, sub)
	s.Require().NoError(err)
	s.False(created)

	subs, err := s.store.ListSubscriptions(ctx, domain, p.ID)
	s.Require().NoError(err)
	s.Require().Len(subs, 1)
	s.Equal("en", subs[0].Language)

	removed, err := s.store.DeleteSubscription(ctx, domain, p.ID, "a@example.org")
	s.Require().NoError(err)
	s.True(removed)
}

// TestConcurrentUpdatesSerialise verifies that row locks taken inside RunInTx
// make concurrent read-modify-write on one person lossless.
func (s *PostgresStoreSuite) TestConcurrentUpdatesSerialise() {
	ctx := context.Background()
	p := s.newPerson("Contended")
	s.Require().NoError(s.store.CreatePerson(ctx, p))

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.tx.RunInTx(ctx, p.ID, func(ctx context.Context, st store.Store) error {
				current, err := st.FindPerson(ctx, domain, p.ID)
				if err != nil {
					return err
				}
				current.LinkedPersonIDs = append(current.LinkedPersonIDs, id.RecordID(fmt.Sprintf("haiti/person.link%d", i)))
				return st.UpdatePerson(ctx, current)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	got, err := s.store.FindPerson(ctx, domain, p.ID)
	s.Require().NoError(err)
	s.Len(got.LinkedPersonIDs, writers)
}

func (s *PostgresStoreSuite) TestOutboxCommitsWithTransaction() {
	ctx := context.Background()
	p := s.newPerson("Evented")
	s.Require().NoError(s.store.CreatePerson(ctx, p))

	s.Run("rolled back work leaves no events", func() {
		err := s.tx.RunInTx(ctx, p.ID, func(ctx context.Context, _ store.Store) error {
			if err := s.outbox.Append(ctx, outbox.NewEvent(outbox.EventBelievedDead, domain, string(p.ID), s.now, nil)); err != nil {
				return err
			}
			return errors.New("abort")
		})
		s.Require().Error(err)

		pending, err := s.outbox.Pending(ctx, 10)
		s.Require().NoError(err)
		s.Empty(pending)
	})

	s.Run("committed events are pending until marked", func() {
		event := outbox.NewEvent(outbox.EventReportedAlive, domain, string(p.ID), s.now, map[string]any{"status": "believed_alive"})
		err := s.tx.RunInTx(ctx, p.ID, func(ctx context.Context, _ store.Store) error {
			return s.outbox.Append(ctx, event)
		})
		s.Require().NoError(err)

		pending, err := s.outbox.Pending(ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(pending, 1)
		s.Equal(event.ID, pending[0].ID)
		s.Equal("believed_alive", pending[0].Payload["status"])

		s.Require().NoError(s.outbox.MarkPublished(ctx, []uuid.UUID{event.ID}, s.now))
		pending, err = s.outbox.Pending(ctx, 10)
		s.Require().NoError(err)
		s.Empty(pending)
	})
}
