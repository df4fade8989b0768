// Package holdingperiod locks freshly acquired tokens for a minimum period
// before they may be transferred onward. A sender with no recorded
// acquisition is never eligible to transfer: the missing timestamp is a
// fail-closed regulatory guarantee, not a gap to paper over.
package holdingperiod

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"tokengate/internal/compliance"
	"tokengate/internal/compliance/ports"
	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
	"tokengate/pkg/requestcontext"
)

// Rule blocks transfers out of accounts that acquired their tokens less than
// the applicable period ago. Mint and burn never check the holding period;
// acquisition is recorded when a receipt lands.
type Rule struct {
	mu       sync.RWMutex
	global   time.Duration
	acquired map[domain.Address]time.Time
	custom   map[domain.Address]time.Duration
	exempt   map[domain.Address]struct{}
	authz    ports.Authorizer
	active   bool
	logger   *slog.Logger
}

type Option func(*Rule)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Rule) { r.logger = logger }
}

func New(globalPeriod time.Duration, authz ports.Authorizer, opts ...Option) (*Rule, error) {
	if globalPeriod <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "holding period must be positive")
	}
	if authz == nil {
		return nil, fmt.Errorf("authorizer is required")
	}
	r := &Rule{
		global:   globalPeriod,
		acquired: make(map[domain.Address]time.Time),
		custom:   make(map[domain.Address]time.Duration),
		exempt:   make(map[domain.Address]struct{}),
		authz:    authz,
		active:   true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// CanTransfer checks the sender's lock. The unlock boundary is inclusive:
// at exactly acquiredAt+period the transfer is allowed.
func (r *Rule) CanTransfer(ctx context.Context, t compliance.Transfer) (bool, error) {
	kind := t.Kind()
	if kind == compliance.KindMint || kind == compliance.KindBurn {
		return true, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, exempt := r.exempt[t.From]; exempt {
		return true, nil
	}
	acquiredAt, ok := r.acquired[t.From]
	if !ok {
		// No recorded acquisition: never eligible.
		return false, nil
	}
	now := requestcontext.Now(ctx)
	return !now.Before(acquiredAt.Add(r.periodLocked(t.From))), nil
}

// TransferExecuted records the recipient's acquisition timestamp. Every
// receipt restarts the clock; the lock follows the tokens, not the first
// purchase. Invoked by the transfer coordinator only.
func (r *Rule) TransferExecuted(ctx context.Context, t compliance.Transfer) error {
	if t.To.IsZero() {
		return nil
	}
	now := requestcontext.Now(ctx)
	r.mu.Lock()
	r.acquired[t.To] = now
	r.mu.Unlock()
	return nil
}

// RecordAcquisition backfills an acquisition timestamp, for bootstrapping
// accounts that acquired tokens before this rule was attached.
func (r *Rule) RecordAcquisition(ctx context.Context, account domain.Address, at time.Time) error {
	if err := r.authz.Authorize(ctx); err != nil {
		return err
	}
	if account.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "account address is required")
	}
	if at.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "acquisition time is required")
	}
	r.mu.Lock()
	r.acquired[account] = at
	r.mu.Unlock()
	return nil
}

// SetCustomPeriod sets a per-account override of the global period.
// A zero duration removes the override.
func (r *Rule) SetCustomPeriod(ctx context.Context, account domain.Address, period time.Duration) error {
	if err := r.authz.Authorize(ctx); err != nil {
		return err
	}
	if account.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "account address is required")
	}
	if period < 0 {
		return dErrors.New(dErrors.CodeValidation, "holding period cannot be negative")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if period == 0 {
		delete(r.custom, account)
		return nil
	}
	r.custom[account] = period
	return nil
}

// SetExempt adds or removes an exemption for an account.
func (r *Rule) SetExempt(ctx context.Context, account domain.Address, exempt bool) error {
	if err := r.authz.Authorize(ctx); err != nil {
		return err
	}
	if account.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "account address is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if exempt {
		r.exempt[account] = struct{}{}
	} else {
		delete(r.exempt, account)
	}
	return nil
}

// UnlockAt returns when the account's tokens become transferable.
// Read-only projection for reporting; exempt accounts are always unlocked.
func (r *Rule) UnlockAt(ctx context.Context, account domain.Address) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, exempt := r.exempt[account]; exempt {
		return requestcontext.Now(ctx), nil
	}
	acquiredAt, ok := r.acquired[account]
	if !ok {
		return time.Time{}, dErrors.New(dErrors.CodeNotFound, "account has no recorded acquisition")
	}
	return acquiredAt.Add(r.periodLocked(account)), nil
}

// TimeRemaining returns how long until the account unlocks, zero if already
// unlocked.
func (r *Rule) TimeRemaining(ctx context.Context, account domain.Address) (time.Duration, error) {
	unlockAt, err := r.UnlockAt(ctx, account)
	if err != nil {
		return 0, err
	}
	remaining := unlockAt.Sub(requestcontext.Now(ctx))
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// periodLocked resolves the applicable period; callers hold the lock.
func (r *Rule) periodLocked(account domain.Address) time.Duration {
	if period, ok := r.custom[account]; ok {
		return period
	}
	return r.global
}

// SetActive toggles rule participation.
func (r *Rule) SetActive(ctx context.Context, active bool) error {
	if err := r.authz.Authorize(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.active = active
	r.mu.Unlock()
	return nil
}

func (r *Rule) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

func (r *Rule) Type() string { return "holding_period" }

func (r *Rule) Description() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("holding period: tokens locked for %s after acquisition", r.global)
}

func (r *Rule) Parameters() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]string{
		"type":             r.Type(),
		"global_period":    r.global.String(),
		"custom_overrides": strconv.Itoa(len(r.custom)),
		"exempt_count":     strconv.Itoa(len(r.exempt)),
		"active":           strconv.FormatBool(r.active),
	}
}
