package application

import (
	"context"
	"sync"

	"lendflow/pkg/platform/sentinel"
)

// InMemoryStore keeps aggregates in a map plus a creation-order index. Copies
// go in and out so callers never share mutable state with the store.
type InMemoryStore struct {
	mu    sync.RWMutex
	apps  map[string]*Application
	order []string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{apps: make(map[string]*Application)}
}

func (s *InMemoryStore) Create(_ context.Context, app *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apps[app.ID]; exists {
		return sentinel.ErrConflict
	}
	s.apps[app.ID] = app.Clone()
	s.order = append(s.order, app.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return app.Clone(), nil
}

func (s *InMemoryStore) Save(_ context.Context, app *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[app.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.apps[app.ID] = app.Clone()
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Application, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.apps[id].Clone())
	}
	return out, nil
}
