package session

import (
	"context"
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// InMemory is a volatile core.Session implementation holding items in a
// mutex-guarded ordered slice. Mutations are serialized; reads return
// defensive copies so one writer turn can interleave with concurrent readers
// without exposing partial writes. Best suited for tests and ephemeral runs.
type InMemory struct {
	mu    sync.RWMutex
	id    string
	items []core.RunItem
}

// NewInMemory constructs an empty in-memory session with the given id.
func NewInMemory(id string) *InMemory {
	return &InMemory{id: id}
}

// ID implements core.Session.
func (s *InMemory) ID() string { return s.id }

// Read implements core.Session.
func (s *InMemory) Read(_ context.Context, limit int) ([]core.RunItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit == 0 {
		return []core.RunItem{}, nil
	}

	start := 0
	if limit > 0 && limit < len(s.items) {
		start = len(s.items) - limit
	}

	items := make([]core.RunItem, len(s.items)-start)
	copy(items, s.items[start:])
	return items, nil
}

// Append implements core.Session.
func (s *InMemory) Append(_ context.Context, items ...core.RunItem) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
	return nil
}

// PopLast implements core.Session.
func (s *InMemory) PopLast(_ context.Context) (core.RunItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return nil, false, nil
	}

	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return last, true, nil
}

// Clear implements core.Session.
func (s *InMemory) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return nil
}
