//go:build integration

package status_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tokengate/internal/compliance"
	"tokengate/internal/compliance/store/status"
	"tokengate/pkg/domain"
	"tokengate/pkg/platform/sentinel"
	"tokengate/pkg/testutil/containers"
)

const (
	alice = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob   = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *status.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = status.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestSetAndGet() {
	ctx := context.Background()
	entry := compliance.Status{
		Account:   alice,
		Compliant: false,
		Note:      "blocked by transfer_limit: exceeds investment cap",
		UpdatedAt: time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC),
	}

	s.Require().NoError(s.store.Set(ctx, entry))

	got, err := s.store.Get(ctx, alice)
	s.Require().NoError(err)
	s.Equal(entry.Account, got.Account)
	s.Equal(entry.Compliant, got.Compliant)
	s.Equal(entry.Note, got.Note)
	s.True(got.UpdatedAt.Equal(entry.UpdatedAt))
}

func (s *RedisStoreSuite) TestSetOverwrites() {
	ctx := context.Background()

	s.Require().NoError(s.store.Set(ctx, compliance.Status{Account: alice, Compliant: false, Note: "pending"}))
	s.Require().NoError(s.store.Set(ctx, compliance.Status{Account: alice, Compliant: true, Note: "cleared"}))

	got, err := s.store.Get(ctx, alice)
	s.Require().NoError(err)
	s.True(got.Compliant)
	s.Equal("cleared", got.Note)
}

func (s *RedisStoreSuite) TestSetBatch() {
	ctx := context.Background()

	s.Require().NoError(s.store.SetBatch(ctx, []compliance.Status{
		{Account: alice, Compliant: true},
		{Account: bob, Compliant: false, Note: "kyc pending"},
	}))

	got, err := s.store.Get(ctx, bob)
	s.Require().NoError(err)
	s.False(got.Compliant)
	s.Equal("kyc pending", got.Note)
}

func (s *RedisStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), alice)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}
