package settings

import (
	"context"
	"encoding/json"
	"sync"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]json.RawMessage
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{values: make(map[string]map[string]json.RawMessage)}
}

func (s *InMemoryStore) Load(_ context.Context, domain string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(s.values[domain]))
	for k, v := range s.values[domain] {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out, nil
}

func (s *InMemoryStore) Save(_ context.Context, domain, name string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[domain] == nil {
		s.values[domain] = make(map[string]json.RawMessage)
	}
	s.values[domain][name] = append(json.RawMessage(nil), value...)
	return nil
}
