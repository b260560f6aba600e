// Package timeline holds the ordered message log that the UI renders
// from. It is the single source of truth for conversation turns.
package timeline

import (
	"sync"

	"fieldvoice/internal/domain"
)

// Store is an append-only (except explicit Clear) log of conversation
// turns. Each store belongs to exactly one conversation controller.
type Store struct {
	mu          sync.RWMutex
	turns       []domain.Turn
	subscribers []func([]domain.Turn)
}

func New() *Store {
	return &Store{}
}

// Append adds a turn to the end of the timeline. It never reorders and
// never mutates prior turns. Subscribers are notified synchronously
// before Append returns, so a renderer never observes state older than
// the last committed mutation.
func (s *Store) Append(turn domain.Turn) {
	s.mu.Lock()
	s.turns = append(s.turns, turn)
	snapshot := s.copyLocked()
	subs := s.subscribers
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// Clear empties the timeline. Used only on an explicit session reset,
// e.g. switching work orders.
func (s *Store) Clear() {
	s.mu.Lock()
	s.turns = nil
	subs := s.subscribers
	s.mu.Unlock()

	for _, fn := range subs {
		fn(nil)
	}
}

// Snapshot returns an ordered copy of the timeline for rendering and
// for inclusion as request history. Callers own the returned slice.
func (s *Store) Snapshot() []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Len returns the number of turns currently in the timeline.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Subscribe registers a render callback invoked on every mutation with
// a snapshot of the new timeline. Subscribers must not mutate it.
func (s *Store) Subscribe(fn func([]domain.Turn)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) copyLocked() []domain.Turn {
	if len(s.turns) == 0 {
		return nil
	}
	out := make([]domain.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}
