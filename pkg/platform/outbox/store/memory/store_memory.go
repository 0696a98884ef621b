package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"personfinder/pkg/platform/outbox"
)

type entry struct {
	event       outbox.Event
	publishedAt *time.Time
}

type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[uuid.UUID]*entry)}
}

func (s *InMemoryStore) Append(_ context.Context, event outbox.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[event.ID] = &entry{event: event}
	return nil
}

// Pending returns unpublished events, oldest first.
func (s *InMemoryStore) Pending(_ context.Context, limit int) ([]outbox.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []outbox.Event
	for _, e := range s.entries {
		if e.publishedAt == nil {
			out = append(out, e.event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, eventID := range ids {
		if e, ok := s.entries[eventID]; ok {
			published := at
			e.publishedAt = &published
		}
	}
	return nil
}

// ListAll returns every event regardless of state; used by tests.
func (s *InMemoryStore) ListAll() []outbox.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]outbox.Event, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ListByType filters ListAll by event type.
func (s *InMemoryStore) ListByType(eventType outbox.EventType) []outbox.Event {
	var out []outbox.Event
	for _, e := range s.ListAll() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
