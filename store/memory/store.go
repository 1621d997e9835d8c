package memory

import (
	"context"
	"sync"

	"github.com/marben/fractal_explorer/session"
)

// Store implements session.Store in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]session.State
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]session.State),
	}
}

// Save keeps a copy of the state.
func (s *Store) Save(ctx context.Context, id string, st session.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = st
	return nil
}

// Load returns the stored state.
func (s *Store) Load(ctx context.Context, id string) (session.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.data[id]
	if !ok {
		return session.State{}, session.ErrNotFound
	}
	return st, nil
}

// Touch reports whether the state exists; memory sessions never expire.
func (s *Store) Touch(ctx context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data[id]; !ok {
		return session.ErrNotFound
	}
	return nil
}

// Delete removes the state.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns stored session ids.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

var _ session.Store = (*Store)(nil)
