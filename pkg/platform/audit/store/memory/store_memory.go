// Package memory provides an append-only in-memory event store for dev
// setups and tests.
package memory

import (
	"context"
	"sync"

	"medtrace/pkg/platform/audit"
)

// Store keeps custody events in a slice. Append-only; nothing is ever
// removed or rewritten.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

// New constructs an empty in-memory audit store.
func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything appended so far.
func (s *Store) Events() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}
