package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tokengate/internal/event"
	"tokengate/pkg/platform/sentinel"
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

func (s *StoreSuite) append(reason string) uuid.UUID {
	ev := &event.Event{
		ID:         uuid.New(),
		Type:       event.TypeTransferBlocked,
		Reason:     reason,
		Severity:   event.SeverityWarning,
		OccurredAt: time.Date(2025, 7, 4, 10, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.store.Append(s.ctx, ev))
	return ev.ID
}

func (s *StoreSuite) TestAppendRejectsDuplicateID() {
	id := s.append("first")

	dup := &event.Event{
		ID:       id,
		Type:     event.TypeTransferBlocked,
		Severity: event.SeverityWarning,
	}
	s.True(errors.Is(s.store.Append(s.ctx, dup), sentinel.ErrConflict))
}

func (s *StoreSuite) TestAppendStoresACopy() {
	ev := &event.Event{
		ID:       uuid.New(),
		Type:     event.TypeTransferBlocked,
		Reason:   "original",
		Severity: event.SeverityWarning,
	}
	s.Require().NoError(s.store.Append(s.ctx, ev))
	ev.Reason = "mutated"

	stored, err := s.store.Get(s.ctx, ev.ID)
	s.Require().NoError(err)
	s.Equal("original", stored.Reason)
}

func (s *StoreSuite) TestListPaging() {
	for i := 0; i < 5; i++ {
		s.append(fmt.Sprintf("event %d", i))
	}

	events, total, err := s.store.List(s.ctx, event.Filter{Offset: 1, Limit: 2})
	s.Require().NoError(err)
	s.Equal(5, total)
	s.Require().Len(events, 2)
	// Newest first: offset 1 skips "event 4".
	s.Equal("event 3", events[0].Reason)
	s.Equal("event 2", events[1].Reason)

	s.Run("offset beyond matches", func() {
		events, total, err := s.store.List(s.ctx, event.Filter{Offset: 9})
		s.Require().NoError(err)
		s.Equal(5, total)
		s.Empty(events)
	})
}

func (s *StoreSuite) TestResolveStateTransitions() {
	id := s.append("needs review")
	at := time.Date(2025, 7, 5, 9, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Resolve(s.ctx, id, "officer", at))
	s.True(errors.Is(s.store.Resolve(s.ctx, id, "officer", at), sentinel.ErrInvalidState))
	s.True(errors.Is(s.store.Resolve(s.ctx, uuid.New(), "officer", at), sentinel.ErrNotFound))
}
