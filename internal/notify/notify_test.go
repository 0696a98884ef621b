package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"personfinder/pkg/platform/outbox"
	outboxmemory "personfinder/pkg/platform/outbox/store/memory"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]outbox.Event
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, events []outbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, events)
	return nil
}

func (p *recordingPublisher) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

type RelaySuite struct {
	suite.Suite
	store     *outboxmemory.InMemoryStore
	publisher *recordingPublisher
	base      time.Time
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.store = outboxmemory.NewInMemoryStore()
	s.publisher = &recordingPublisher{}
	s.base = time.Date(2010, 1, 13, 0, 0, 0, 0, time.UTC)
}

func (s *RelaySuite) seed(n int) {
	for i := 0; i < n; i++ {
		event := outbox.NewEvent(outbox.EventNoteAdded, "haiti", "haiti/person.1", s.base.Add(time.Duration(i)*time.Second), nil)
		s.Require().NoError(s.store.Append(context.Background(), event))
	}
}

func (s *RelaySuite) TestFlushDrainsInBatches() {
	s.seed(5)
	relay := NewRelay(s.store, s.publisher, WithBatchSize(2))

	published, err := relay.Flush(context.Background())
	s.Require().NoError(err)
	s.Equal(5, published)
	s.Len(s.publisher.batches, 3)

	pending, err := s.store.Pending(context.Background(), 10)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *RelaySuite) TestBatchesKeepCreationOrder() {
	s.seed(3)
	relay := NewRelay(s.store, s.publisher)

	_, err := relay.Flush(context.Background())
	s.Require().NoError(err)
	s.Require().Len(s.publisher.batches, 1)
	batch := s.publisher.batches[0]
	for i := 1; i < len(batch); i++ {
		s.True(batch[i-1].CreatedAt.Before(batch[i].CreatedAt))
	}
}

func (s *RelaySuite) TestFailedBatchStaysPending() {
	s.seed(2)
	s.publisher.err = errors.New("broker down")
	relay := NewRelay(s.store, s.publisher)

	published, err := relay.Flush(context.Background())
	s.Require().Error(err)
	s.Zero(published)

	pending, err := s.store.Pending(context.Background(), 10)
	s.Require().NoError(err)
	s.Len(pending, 2)

	s.Run("retried once the publisher recovers", func() {
		s.publisher.err = nil
		published, err := relay.Flush(context.Background())
		s.Require().NoError(err)
		s.Equal(2, published)
	})
}

func (s *RelaySuite) TestEmptyOutbox() {
	relay := NewRelay(s.store, s.publisher)
	published, err := relay.Flush(context.Background())
	s.Require().NoError(err)
	s.Zero(published)
	s.Empty(s.publisher.batches)
}

func (s *RelaySuite) TestRunStopsOnCancel() {
	s.seed(1)
	relay := NewRelay(s.store, s.publisher, WithPollInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	s.Eventually(func() bool { return s.publisher.total() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("relay did not stop")
	}
}

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		p.records = append(p.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestKafkaPublisher(t *testing.T) {
	event := outbox.NewEvent(outbox.EventBelievedDead, "haiti", "haiti/person.7", time.Now().UTC(), map[string]any{"status": "believed_dead"})

	t.Run("records are keyed by aggregate id", func(t *testing.T) {
		producer := &fakeProducer{}
		pub := NewKafkaPublisher(producer, "personfinder.events")

		require.NoError(t, pub.Publish(context.Background(), []outbox.Event{event}))
		require.Len(t, producer.records, 1)
		record := producer.records[0]
		assert.Equal(t, "personfinder.events", record.Topic)
		assert.Equal(t, "haiti/person.7", string(record.Key))

		var decoded outbox.Event
		require.NoError(t, json.Unmarshal(record.Value, &decoded))
		assert.Equal(t, event.ID, decoded.ID)
		assert.Equal(t, outbox.EventBelievedDead, decoded.Type)
		assert.Equal(t, "event_type", record.Headers[0].Key)
		assert.Equal(t, string(outbox.EventBelievedDead), string(record.Headers[0].Value))
	})

	t.Run("produce errors are returned", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("not leader")}
		pub := NewKafkaPublisher(producer, "personfinder.events")
		err := pub.Publish(context.Background(), []outbox.Event{event})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not leader")
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		producer := &fakeProducer{}
		pub := NewKafkaPublisher(producer, "personfinder.events")
		require.NoError(t, pub.Publish(context.Background(), nil))
		assert.Empty(t, producer.records)
	})
}

func TestLogPublisherMasksEmail(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	event := outbox.NewEvent(outbox.EventNoteAdded, "haiti", "haiti/person.1", time.Now().UTC(), map[string]any{
		"email": "someone@example.com",
	})

	require.NoError(t, NewLogPublisher(logger).Publish(context.Background(), []outbox.Event{event}))
	assert.Contains(t, buf.String(), "event published")
	assert.NotContains(t, buf.String(), "someone@example.com")
}
