//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tokengate/internal/identity/models"
	"tokengate/internal/identity/store/postgres"
	"tokengate/pkg/domain"
	"tokengate/pkg/platform/sentinel"
	"tokengate/pkg/testutil/containers"
)

const (
	alice = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob   = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.T().Cleanup(func() {
		_ = s.postgres.DB.Close()
		_ = s.postgres.Container.Terminate(context.Background())
	})
	s.Require().NoError(s.postgres.Apply(context.Background(), postgres.Schema()))
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "identity_verifications"))
}

func (s *PostgresStoreSuite) identity(account domain.Address, level domain.VerificationLevel) *models.Identity {
	record := &models.Identity{
		Account:      account,
		Level:        level,
		Jurisdiction: "CH",
		VerifiedAt:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt:    time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	for i := range record.IdentityHash {
		record.IdentityHash[i] = byte(i)
	}
	return record
}

func (s *PostgresStoreSuite) TestUpsertRoundTrip() {
	ctx := context.Background()

	created, err := s.store.Upsert(ctx, s.identity(alice, domain.LevelAccredited))
	s.Require().NoError(err)
	s.True(created)

	got, err := s.store.Get(ctx, alice)
	s.Require().NoError(err)
	s.Equal(alice, got.Account)
	s.Equal(domain.LevelAccredited, got.Level)
	s.Equal("CH", got.Jurisdiction)
	s.Equal(s.identity(alice, domain.LevelAccredited).IdentityHash, got.IdentityHash)
	s.True(got.ExpiresAt.Equal(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func (s *PostgresStoreSuite) TestUpsertOverwrites() {
	ctx := context.Background()

	_, err := s.store.Upsert(ctx, s.identity(alice, domain.LevelBasic))
	s.Require().NoError(err)

	created, err := s.store.Upsert(ctx, s.identity(alice, domain.LevelInstitutional))
	s.Require().NoError(err)
	s.False(created)

	got, err := s.store.Get(ctx, alice)
	s.Require().NoError(err)
	s.Equal(domain.LevelInstitutional, got.Level)

	_, total, err := s.store.List(ctx, models.Page{})
	s.Require().NoError(err)
	s.Equal(1, total)
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), bob)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()

	_, err := s.store.Upsert(ctx, s.identity(alice, domain.LevelBasic))
	s.Require().NoError(err)

	s.Require().NoError(s.store.Delete(ctx, alice))
	s.True(errors.Is(s.store.Delete(ctx, alice), sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestUpsertBatchIsTransactional() {
	ctx := context.Background()

	s.Require().NoError(s.store.UpsertBatch(ctx, []*models.Identity{
		s.identity(alice, domain.LevelBasic),
		s.identity(bob, domain.LevelAccredited),
	}))

	_, total, err := s.store.List(ctx, models.Page{})
	s.Require().NoError(err)
	s.Equal(2, total)
}

func (s *PostgresStoreSuite) TestListOrderAndPaging() {
	ctx := context.Background()

	for _, account := range []domain.Address{bob, alice} {
		_, err := s.store.Upsert(ctx, s.identity(account, domain.LevelBasic))
		s.Require().NoError(err)
	}

	records, total, err := s.store.List(ctx, models.Page{Limit: 1})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Require().Len(records, 1)
	// Insertion order via the seq column.
	s.Equal(bob, records[0].Account)

	records, _, err = s.store.List(ctx, models.Page{Offset: 1, Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(alice, records[0].Account)
}

func (s *PostgresStoreSuite) TestCountByLevel() {
	ctx := context.Background()

	_, err := s.store.Upsert(ctx, s.identity(alice, domain.LevelAccredited))
	s.Require().NoError(err)
	_, err = s.store.Upsert(ctx, s.identity(bob, domain.LevelAccredited))
	s.Require().NoError(err)

	counts, err := s.store.CountByLevel(ctx)
	s.Require().NoError(err)
	s.Equal([]models.LevelCount{{Level: domain.LevelAccredited, Count: 2}}, counts)
}
