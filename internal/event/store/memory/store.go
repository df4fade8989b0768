// Package memory provides an in-memory event store for tests and local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tokengate/internal/event"
	"tokengate/pkg/platform/sentinel"
)

// Store keeps events in append order.
type Store struct {
	mu     sync.RWMutex
	events []*event.Event
	byID   map[uuid.UUID]*event.Event
}

func New() *Store {
	return &Store{byID: make(map[uuid.UUID]*event.Event)}
}

func (s *Store) Append(_ context.Context, ev *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[ev.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := *ev
	s.events = append(s.events, &stored)
	s.byID[ev.ID] = &stored
	return nil
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *stored
	return &out, nil
}

func (s *Store) List(_ context.Context, filter event.Filter) ([]*event.Event, int, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Newest first, matching the audit view.
	matched := make([]*event.Event, 0, len(s.events))
	for i := len(s.events) - 1; i >= 0; i-- {
		if matches(s.events[i], filter) {
			matched = append(matched, s.events[i])
		}
	}

	total := len(matched)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}

	out := make([]*event.Event, 0, end-filter.Offset)
	for _, ev := range matched[filter.Offset:end] {
		copied := *ev
		out = append(out, &copied)
	}
	return out, total, nil
}

func (s *Store) Resolve(_ context.Context, id uuid.UUID, by string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Resolved {
		return sentinel.ErrInvalidState
	}
	stored.Resolved = true
	stored.ResolvedBy = by
	resolvedAt := at
	stored.ResolvedAt = &resolvedAt
	return nil
}

func matches(ev *event.Event, filter event.Filter) bool {
	if filter.Type != nil && ev.Type != *filter.Type {
		return false
	}
	if filter.Severity != nil && ev.Severity != *filter.Severity {
		return false
	}
	if filter.Resolved != nil && ev.Resolved != *filter.Resolved {
		return false
	}
	return true
}
