package testutil

import (
	"context"
	"sync"

	"github.com/adityav2131/major-project-sub000/internal/app/store"
)

// ConflictingStore reports store.ErrConflict for the first n units of work
// without running them, then delegates to the wrapped store.
type ConflictingStore struct {
	store.Store

	mu        sync.Mutex
	remaining int
	calls     int
}

// NewConflictingStore wraps st so the next n Atomically calls lose a race.
func NewConflictingStore(st store.Store, n int) *ConflictingStore {
	return &ConflictingStore{Store: st, remaining: n}
}

// Atomically implements store.Store.
func (s *ConflictingStore) Atomically(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	s.calls++
	if s.remaining > 0 {
		s.remaining--
		s.mu.Unlock()
		return store.ErrConflict
	}
	s.mu.Unlock()
	return s.Store.Atomically(ctx, fn)
}

// Calls returns how many units of work were attempted.
func (s *ConflictingStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
