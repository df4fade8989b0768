package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tokengate/internal/identity/models"
	"tokengate/pkg/domain"
	"tokengate/pkg/platform/sentinel"
)

const (
	alice = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob   = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	carol = domain.Address("0xcccccccccccccccccccccccccccccccccccccccc")
)

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = New()
}

func (s *StoreSuite) identity(account domain.Address, level domain.VerificationLevel) *models.Identity {
	return &models.Identity{
		Account:      account,
		Level:        level,
		Jurisdiction: "DE",
		VerifiedAt:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt:    time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *StoreSuite) TestUpsertAndGet() {
	created, err := s.store.Upsert(s.ctx, s.identity(alice, domain.LevelBasic))
	s.Require().NoError(err)
	s.True(created)

	record, err := s.store.Get(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal(domain.LevelBasic, record.Level)
	s.Equal("DE", record.Jurisdiction)
}

func (s *StoreSuite) TestUpsertOverwrites() {
	_, err := s.store.Upsert(s.ctx, s.identity(alice, domain.LevelBasic))
	s.Require().NoError(err)

	created, err := s.store.Upsert(s.ctx, s.identity(alice, domain.LevelAccredited))
	s.Require().NoError(err)
	s.False(created)

	record, err := s.store.Get(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal(domain.LevelAccredited, record.Level)

	_, total, err := s.store.List(s.ctx, models.Page{})
	s.Require().NoError(err)
	s.Equal(1, total)
}

func (s *StoreSuite) TestGetReturnsACopy() {
	_, err := s.store.Upsert(s.ctx, s.identity(alice, domain.LevelBasic))
	s.Require().NoError(err)

	record, err := s.store.Get(s.ctx, alice)
	s.Require().NoError(err)
	record.Level = domain.LevelInstitutional

	fresh, err := s.store.Get(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal(domain.LevelBasic, fresh.Level)
}

func (s *StoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, alice)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *StoreSuite) TestDelete() {
	_, err := s.store.Upsert(s.ctx, s.identity(alice, domain.LevelBasic))
	s.Require().NoError(err)

	s.Require().NoError(s.store.Delete(s.ctx, alice))
	s.True(errors.Is(s.store.Delete(s.ctx, alice), sentinel.ErrNotFound))

	_, total, err := s.store.List(s.ctx, models.Page{})
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *StoreSuite) TestListPreservesInsertionOrder() {
	for _, account := range []domain.Address{carol, alice, bob} {
		_, err := s.store.Upsert(s.ctx, s.identity(account, domain.LevelBasic))
		s.Require().NoError(err)
	}

	records, total, err := s.store.List(s.ctx, models.Page{})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(records, 3)
	s.Equal(carol, records[0].Account)
	s.Equal(alice, records[1].Account)
	s.Equal(bob, records[2].Account)

	s.Run("offset and limit", func() {
		records, total, err := s.store.List(s.ctx, models.Page{Offset: 1, Limit: 1})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Require().Len(records, 1)
		s.Equal(alice, records[0].Account)
	})

	s.Run("offset beyond the set", func() {
		records, total, err := s.store.List(s.ctx, models.Page{Offset: 10})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Empty(records)
	})
}

func (s *StoreSuite) TestUpsertBatch() {
	err := s.store.UpsertBatch(s.ctx, []*models.Identity{
		s.identity(alice, domain.LevelBasic),
		s.identity(bob, domain.LevelInstitutional),
	})
	s.Require().NoError(err)

	_, total, err := s.store.List(s.ctx, models.Page{})
	s.Require().NoError(err)
	s.Equal(2, total)
}

func (s *StoreSuite) TestCountByLevel() {
	for _, fixture := range []struct {
		account domain.Address
		level   domain.VerificationLevel
	}{
		{alice, domain.LevelBasic},
		{bob, domain.LevelAccredited},
		{carol, domain.LevelAccredited},
	} {
		_, err := s.store.Upsert(s.ctx, s.identity(fixture.account, fixture.level))
		s.Require().NoError(err)
	}

	counts, err := s.store.CountByLevel(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.LevelCount{
		{Level: domain.LevelBasic, Count: 1},
		{Level: domain.LevelAccredited, Count: 2},
	}, counts)
}
