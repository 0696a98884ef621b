package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"personfinder/pkg/platform/outbox"
)

type OutboxStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func (s *OutboxStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func TestOutboxStoreSuite(t *testing.T) {
	suite.Run(t, new(OutboxStoreSuite))
}

func (s *OutboxStoreSuite) TestPendingAndPublish() {
	ctx := context.Background()
	base := time.Date(2010, 1, 13, 0, 0, 0, 0, time.UTC)
	first := outbox.NewEvent(outbox.EventNoteAdded, "haiti", "haiti/person.1", base, nil)
	second := outbox.NewEvent(outbox.EventPersonTombstoned, "haiti", "haiti/person.2", base.Add(time.Minute), nil)
	s.Require().NoError(s.store.Append(ctx, second))
	s.Require().NoError(s.store.Append(ctx, first))

	s.Run("returns pending oldest first", func() {
		pending, err := s.store.Pending(ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(pending, 2)
		s.Equal(first.ID, pending[0].ID)
	})

	s.Run("limit applies", func() {
		pending, err := s.store.Pending(ctx, 1)
		s.Require().NoError(err)
		s.Len(pending, 1)
	})

	s.Run("published entries leave the pending set", func() {
		s.Require().NoError(s.store.MarkPublished(ctx, []uuid.UUID{first.ID}, base.Add(time.Hour)))
		pending, err := s.store.Pending(ctx, 10)
		s.Require().NoError(err)
		s.Require().Len(pending, 1)
		s.Equal(second.ID, pending[0].ID)
		s.Len(s.store.ListAll(), 2)
		s.Len(s.store.ListByType(outbox.EventPersonTombstoned), 1)
	})
}
