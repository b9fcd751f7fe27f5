package session

import (
	"context"
	"sync"

	"lendflow/pkg/platform/sentinel"
)

// InMemoryStore keeps session bindings in a map. A later Bind for the same
// session replaces the earlier one: the most recent create wins.
type InMemoryStore struct {
	mu       sync.RWMutex
	bindings map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{bindings: make(map[string]string)}
}

func (s *InMemoryStore) Bind(_ context.Context, sessionID, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[sessionID] = applicationID
	return nil
}

func (s *InMemoryStore) Current(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appID, ok := s.bindings[sessionID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return appID, nil
}
