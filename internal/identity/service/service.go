// Package service implements the identity registry: verification records per
// account, expiry-aware reads, and the administrative maintenance operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tokengate/internal/event"
	"tokengate/internal/identity/models"
	"tokengate/internal/identity/ports"
	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
	"tokengate/pkg/platform/sentinel"
	"tokengate/pkg/requestcontext"
)

// Authorizer guards mutating administrative operations.
type Authorizer interface {
	Authorize(ctx context.Context) error
}

// Service is the identity registry.
type Service struct {
	store  ports.Store
	authz  Authorizer
	logger *slog.Logger
	events event.Recorder
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithEvents wires the compliance event log; expiration cleanups are recorded
// there for reporting.
func WithEvents(recorder event.Recorder) Option {
	return func(s *Service) { s.events = recorder }
}

func New(store ports.Store, authz Authorizer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("identity store is required")
	}
	if authz == nil {
		return nil, fmt.Errorf("authorizer is required")
	}
	svc := &Service{store: store, authz: authz}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// AddVerified records a verification, overwriting any prior record for the
// account. Fails synchronously on a null account, level None, or an
// expiration not in the future.
func (s *Service) AddVerified(ctx context.Context, identity models.Identity) error {
	if err := s.authz.Authorize(ctx); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	identity.VerifiedAt = now
	if err := identity.Validate(now); err != nil {
		return err
	}

	created, err := s.store.Upsert(ctx, &identity)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification")
	}
	s.log(ctx, "verification added",
		"account", identity.Account,
		"level", identity.Level.String(),
		"jurisdiction", identity.Jurisdiction,
		"newly_verified", created,
	)
	return nil
}

// BatchVerify applies AddVerified semantics atomically across the list.
// Validation failures reject the whole batch before anything is written.
func (s *Service) BatchVerify(ctx context.Context, identities []models.Identity) error {
	if err := s.authz.Authorize(ctx); err != nil {
		return err
	}
	if len(identities) == 0 {
		return dErrors.New(dErrors.CodeValidation, "batch is empty")
	}
	now := requestcontext.Now(ctx)
	records := make([]*models.Identity, 0, len(identities))
	for i := range identities {
		identities[i].VerifiedAt = now
		if err := identities[i].Validate(now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation,
				fmt.Sprintf("batch entry %d rejected", i))
		}
		records = append(records, &identities[i])
	}

	if err := s.store.UpsertBatch(ctx, records); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store batch verification")
	}
	s.log(ctx, "batch verification added", "count", len(records))
	return nil
}

// RemoveVerification deletes the record for an account. Fails if the account
// has no verification record.
func (s *Service) RemoveVerification(ctx context.Context, account domain.Address) error {
	if err := s.authz.Authorize(ctx); err != nil {
		return err
	}
	if account.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "account address is required")
	}
	if err := s.store.Delete(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "account has no verification record")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove verification")
	}
	s.log(ctx, "verification removed", "account", account)
	return nil
}

// UpdateLevel changes the verification level of a currently verified account.
func (s *Service) UpdateLevel(ctx context.Context, account domain.Address, level domain.VerificationLevel) error {
	if err := s.authz.Authorize(ctx); err != nil {
		return err
	}
	if !level.IsValid() || level == domain.LevelNone {
		return dErrors.New(dErrors.CodeValidation, "verification level must be basic, accredited or institutional")
	}
	record, err := s.store.Get(ctx, account)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "account is not verified")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification")
	}
	if record.Expired(requestcontext.Now(ctx)) {
		return dErrors.New(dErrors.CodeInvalidInput, "verification has expired")
	}
	record.Level = level
	if _, err := s.store.Upsert(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update verification level")
	}
	s.log(ctx, "verification level updated", "account", account, "level", level.String())
	return nil
}

// IsVerified reports whether the account is functionally verified right now.
// Expiration is evaluated against the request clock on every read; the
// stored record stays untouched until an explicit cleanup.
func (s *Service) IsVerified(ctx context.Context, account domain.Address) (bool, error) {
	record, err := s.store.Get(ctx, account)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification")
	}
	return !record.Expired(requestcontext.Now(ctx)), nil
}

// VerificationLevel returns the account's current level, or LevelNone once
// the record is absent or expired.
func (s *Service) VerificationLevel(ctx context.Context, account domain.Address) (domain.VerificationLevel, error) {
	record, err := s.store.Get(ctx, account)
	if errors.Is(err, sentinel.ErrNotFound) {
		return domain.LevelNone, nil
	}
	if err != nil {
		return domain.LevelNone, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification")
	}
	if record.Expired(requestcontext.Now(ctx)) {
		return domain.LevelNone, nil
	}
	return record.Level, nil
}

// Jurisdiction returns the account's registered jurisdiction, or "" once the
// record is absent or expired. Callers treat "" as unverified (fail-closed).
func (s *Service) Jurisdiction(ctx context.Context, account domain.Address) (string, error) {
	record, err := s.store.Get(ctx, account)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification")
	}
	if record.Expired(requestcontext.Now(ctx)) {
		return "", nil
	}
	return record.Jurisdiction, nil
}

// Verification returns the raw stored record for administrative inspection,
// including expired ones.
func (s *Service) Verification(ctx context.Context, account domain.Address) (*models.Identity, error) {
	if err := s.authz.Authorize(ctx); err != nil {
		return nil, err
	}
	record, err := s.store.Get(ctx, account)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "account has no verification record")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification")
	}
	return record, nil
}

// CleanupExpired physically deletes expired records from the supplied account
// list. Callable by anyone: it only removes records whose expiration has
// already passed, so it is side-effect-free for live entries and idempotent.
func (s *Service) CleanupExpired(ctx context.Context, accounts []domain.Address) (int, error) {
	now := requestcontext.Now(ctx)
	removed := 0
	for _, account := range accounts {
		record, err := s.store.Get(ctx, account)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification")
		}
		if !record.Expired(now) {
			continue
		}
		if err := s.store.Delete(ctx, account); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return removed, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete expired verification")
		}
		removed++
		s.recordExpiration(ctx, account)
	}
	if removed > 0 {
		s.log(ctx, "expired verifications cleaned", "removed", removed)
	}
	return removed, nil
}

// List pages through the verified set for administrative listing.
func (s *Service) List(ctx context.Context, page models.Page) ([]*models.Identity, int, error) {
	if err := s.authz.Authorize(ctx); err != nil {
		return nil, 0, err
	}
	records, total, err := s.store.List(ctx, page)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verifications")
	}
	return records, total, nil
}

// Stats aggregates verification counts per level for reporting.
func (s *Service) Stats(ctx context.Context) ([]models.LevelCount, error) {
	counts, err := s.store.CountByLevel(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate verification stats")
	}
	return counts, nil
}

func (s *Service) recordExpiration(ctx context.Context, account domain.Address) {
	if s.events == nil {
		return
	}
	err := s.events.Record(ctx, event.Event{
		Type:     event.TypeVerificationExpired,
		To:       account,
		Reason:   "verification record expired and was removed",
		Severity: event.SeverityWarning,
	})
	if err != nil {
		s.log(ctx, "failed to record expiration event", "account", account, "error", err)
	}
}

func (s *Service) log(ctx context.Context, msg string, attrs ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, msg, attrs...)
}
