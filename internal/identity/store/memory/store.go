package memory

import (
	"context"
	"sort"
	"sync"

	"tokengate/internal/identity/models"
	"tokengate/pkg/domain"
	"tokengate/pkg/platform/sentinel"
)

// Store keeps verification records in memory. Insertion order of the
// verified set is preserved for deterministic administrative listing.
type Store struct {
	mu      sync.RWMutex
	records map[domain.Address]*models.Identity
	order   []domain.Address
}

func New() *Store {
	return &Store{
		records: make(map[domain.Address]*models.Identity),
	}
}

func (s *Store) Upsert(_ context.Context, identity *models.Identity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(identity), nil
}

func (s *Store) UpsertBatch(_ context.Context, identities []*models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, identity := range identities {
		s.upsertLocked(identity)
	}
	return nil
}

// upsertLocked overwrites any prior record without duplicating the
// verified-set entry.
func (s *Store) upsertLocked(identity *models.Identity) bool {
	cp := *identity
	_, existed := s.records[identity.Account]
	s.records[identity.Account] = &cp
	if !existed {
		s.order = append(s.order, identity.Account)
	}
	return !existed
}

func (s *Store) Get(_ context.Context, account domain.Address) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[account]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *record
	return &cp, nil
}

func (s *Store) Delete(_ context.Context, account domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[account]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, account)
	for i, addr := range s.order {
		if addr == account {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) List(_ context.Context, page models.Page) ([]*models.Identity, int, error) {
	page = page.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.order)
	if page.Offset >= total {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > total {
		end = total
	}
	records := make([]*models.Identity, 0, end-page.Offset)
	for _, addr := range s.order[page.Offset:end] {
		cp := *s.records[addr]
		records = append(records, &cp)
	}
	return records, total, nil
}

func (s *Store) CountByLevel(_ context.Context) ([]models.LevelCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.VerificationLevel]int)
	for _, record := range s.records {
		counts[record.Level]++
	}
	out := make([]models.LevelCount, 0, len(counts))
	for level, count := range counts {
		out = append(out, models.LevelCount{Level: level, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}
