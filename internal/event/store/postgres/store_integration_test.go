//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tokengate/internal/event"
	"tokengate/internal/event/store/postgres"
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
	base     time.Time
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
	s.base = time.Date(2025, 7, 4, 10, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "compliance_events"))
}

func (s *PostgresStoreSuite) event(t event.Type, offset time.Duration) *event.Event {
	return &event.Event{
		ID:         uuid.New(),
		Type:       t,
		From:       alice,
		To:         bob,
		Amount:     25,
		Reason:     "blocked for review",
		Severity:   event.SeverityWarning,
		OccurredAt: s.base.Add(offset),
	}
}

func (s *PostgresStoreSuite) TestAppendAndGet() {
	ctx := context.Background()
	ev := s.event(event.TypeTransferBlocked, 0)

	s.Require().NoError(s.store.Append(ctx, ev))

	got, err := s.store.Get(ctx, ev.ID)
	s.Require().NoError(err)
	s.Equal(ev.ID, got.ID)
	s.Equal(event.TypeTransferBlocked, got.Type)
	s.Equal(alice, got.From)
	s.Equal(domain.Amount(25), got.Amount)
	s.True(got.OccurredAt.Equal(s.base))
	s.False(got.Resolved)
	s.Nil(got.ResolvedAt)
}

func (s *PostgresStoreSuite) TestAmountAboveInt64RoundTrips() {
	ctx := context.Background()
	ev := s.event(event.TypeTransferBlocked, 0)
	ev.Amount = domain.Amount(math.MaxUint64)

	s.Require().NoError(s.store.Append(ctx, ev))

	got, err := s.store.Get(ctx, ev.ID)
	s.Require().NoError(err)
	s.Equal(domain.Amount(math.MaxUint64), got.Amount)
}

func (s *PostgresStoreSuite) TestAppendRejectsDuplicateID() {
	ctx := context.Background()
	ev := s.event(event.TypeTransferBlocked, 0)

	s.Require().NoError(s.store.Append(ctx, ev))
	s.True(errors.Is(s.store.Append(ctx, ev), sentinel.ErrConflict))
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), uuid.New())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestListNewestFirstWithFilters() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ev := s.event(event.TypeTransferBlocked, time.Duration(i)*time.Minute)
		ev.Reason = fmt.Sprintf("event %d", i)
		s.Require().NoError(s.store.Append(ctx, ev))
	}
	expired := s.event(event.TypeVerificationExpired, time.Hour)
	expired.Severity = event.SeverityInfo
	s.Require().NoError(s.store.Append(ctx, expired))

	s.Run("newest first", func() {
		events, total, err := s.store.List(ctx, event.Filter{})
		s.Require().NoError(err)
		s.Equal(4, total)
		s.Require().Len(events, 4)
		s.Equal(event.TypeVerificationExpired, events[0].Type)
		s.Equal("event 2", events[1].Reason)
	})

	s.Run("by type", func() {
		t := event.TypeTransferBlocked
		events, total, err := s.store.List(ctx, event.Filter{Type: &t})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Len(events, 3)
	})

	s.Run("by severity", func() {
		sev := event.SeverityInfo
		_, total, err := s.store.List(ctx, event.Filter{Severity: &sev})
		s.Require().NoError(err)
		s.Equal(1, total)
	})

	s.Run("paging", func() {
		events, total, err := s.store.List(ctx, event.Filter{Offset: 1, Limit: 2})
		s.Require().NoError(err)
		s.Equal(4, total)
		s.Require().Len(events, 2)
		s.Equal("event 2", events[0].Reason)
		s.Equal("event 1", events[1].Reason)
	})
}

func (s *PostgresStoreSuite) TestResolve() {
	ctx := context.Background()
	ev := s.event(event.TypeLimitExceeded, 0)
	s.Require().NoError(s.store.Append(ctx, ev))

	at := s.base.Add(time.Hour)
	s.Require().NoError(s.store.Resolve(ctx, ev.ID, "officer", at))

	got, err := s.store.Get(ctx, ev.ID)
	s.Require().NoError(err)
	s.True(got.Resolved)
	s.Equal("officer", got.ResolvedBy)
	s.Require().NotNil(got.ResolvedAt)
	s.True(got.ResolvedAt.Equal(at))

	s.Run("resolving twice", func() {
		err := s.store.Resolve(ctx, ev.ID, "officer", at)
		s.True(errors.Is(err, sentinel.ErrInvalidState))
	})

	s.Run("unknown event", func() {
		err := s.store.Resolve(ctx, uuid.New(), "officer", at)
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})

	s.Run("resolved filter", func() {
		resolved := true
		_, total, err := s.store.List(ctx, event.Filter{Resolved: &resolved})
		s.Require().NoError(err)
		s.Equal(1, total)
	})
}
