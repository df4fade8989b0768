package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	dErrors "tokengate/pkg/domain-errors"
	"tokengate/pkg/platform/sentinel"
	"tokengate/pkg/requestcontext"
)

// Service records events durably and hands them to the outbox channel for
// fan-out. Recording is fail-open for producers: the store write must
// succeed, but a full outbox never blocks the caller.
type Service struct {
	store  Store
	outbox chan Event
	logger *slog.Logger
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithOutboxSize overrides the fan-out buffer size.
func WithOutboxSize(n int) ServiceOption {
	return func(s *Service) { s.outbox = make(chan Event, n) }
}

func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("event store is required")
	}
	svc := &Service{store: store, outbox: make(chan Event, 256)}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Outbox is the channel the fan-out worker drains.
func (s *Service) Outbox() <-chan Event {
	return s.outbox
}

// Record validates, stamps and persists an event, then enqueues it for
// fan-out without blocking.
func (s *Service) Record(ctx context.Context, ev Event) error {
	if !ev.Type.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid event type")
	}
	if !ev.Severity.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid event severity")
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = requestcontext.Now(ctx)
	}

	if err := s.store.Append(ctx, &ev); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record event")
	}

	select {
	case s.outbox <- ev:
	default:
		if s.logger != nil {
			s.logger.WarnContext(ctx, "event outbox full, skipping fan-out",
				"event_id", ev.ID, "type", string(ev.Type))
		}
	}
	return nil
}

// Get reads one event by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Event, error) {
	ev, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "event not found")
	}
	return ev, nil
}

// List returns filtered events, newest first, with the total match count.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Event, int, error) {
	events, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, total, nil
}

// Resolve marks an event reviewed. Resolving twice fails.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, by string) error {
	if by == "" {
		return dErrors.New(dErrors.CodeValidation, "resolver is required")
	}
	err := s.store.Resolve(ctx, id, by, requestcontext.Now(ctx))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "event not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeConflict, "event already resolved")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve event")
	}
}
