package status

import (
	"context"
	"sync"

	"tokengate/internal/compliance"
	"tokengate/pkg/domain"
	"tokengate/pkg/platform/sentinel"
)

// InMemoryStore keeps the informational status cache in memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	statuses map[domain.Address]compliance.Status
}

func New() *InMemoryStore {
	return &InMemoryStore{statuses: make(map[domain.Address]compliance.Status)}
}

func (s *InMemoryStore) Set(_ context.Context, status compliance.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[status.Account] = status
	return nil
}

func (s *InMemoryStore) SetBatch(_ context.Context, statuses []compliance.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, status := range statuses {
		s.statuses[status.Account] = status
	}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, account domain.Address) (*compliance.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[account]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &status, nil
}
