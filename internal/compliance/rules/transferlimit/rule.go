// Package transferlimit caps what a single recipient may hold and how much
// they may cumulatively invest. Money is integer cents throughout; token
// amounts convert at a configured unit price, so cap checks never round.
package transferlimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"tokengate/internal/compliance"
	"tokengate/internal/compliance/ports"
	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
)

// Config carries the caps. A zero value disables that cap; at least one must
// be configured.
type Config struct {
	// MaxTokensPerInvestor is an absolute balance cap in base units.
	MaxTokensPerInvestor domain.Amount
	// MaxInvestmentCents caps cumulative invested USD per account.
	MaxInvestmentCents domain.Cents
	// UnitPriceCents converts token amounts to cents for the investment
	// cap. Required when MaxInvestmentCents is set.
	UnitPriceCents domain.Cents
}

// Rule checks only the recipient side: senders dispose of holdings freely.
// Both caps apply when both are configured.
type Rule struct {
	mu       sync.RWMutex
	cfg      Config
	custom   map[domain.Address]domain.Amount
	invested map[domain.Address]domain.Cents
	exempt   map[domain.Address]struct{}
	balances ports.BalanceReader
	authz    ports.Authorizer
	active   bool
}

func New(cfg Config, balances ports.BalanceReader, authz ports.Authorizer) (*Rule, error) {
	if cfg.MaxTokensPerInvestor == 0 && cfg.MaxInvestmentCents == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one cap must be configured")
	}
	if cfg.MaxInvestmentCents > 0 && cfg.UnitPriceCents <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "unit price is required for the investment cap")
	}
	if cfg.MaxInvestmentCents < 0 || cfg.UnitPriceCents < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "caps cannot be negative")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance reader is required")
	}
	if authz == nil {
		return nil, fmt.Errorf("authorizer is required")
	}
	return &Rule{
		cfg:      cfg,
		custom:   make(map[domain.Address]domain.Amount),
		invested: make(map[domain.Address]domain.Cents),
		exempt:   make(map[domain.Address]struct{}),
		balances: balances,
		authz:    authz,
		active:   true,
	}, nil
}

// CanTransfer checks the recipient against both configured caps. Burns have
// no recipient and always pass; exempt recipients bypass both caps.
func (r *Rule) CanTransfer(ctx context.Context, t compliance.Transfer) (bool, error) {
	if t.Kind() == compliance.KindBurn {
		return true, nil
	}

	r.mu.RLock()
	_, exempt := r.exempt[t.To]
	tokenCap := r.tokenCapLocked(t.To)
	maxInvested := r.cfg.MaxInvestmentCents
	unitPrice := r.cfg.UnitPriceCents
	invested := r.invested[t.To]
	r.mu.RUnlock()

	if exempt {
		return true, nil
	}

	if tokenCap > 0 {
		balance, err := r.balances.BalanceOf(ctx, t.To)
		if err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read recipient balance")
		}
		resulting, ok := domain.AddAmount(balance, t.Amount)
		if !ok || resulting > tokenCap {
			return false, nil
		}
	}

	if maxInvested > 0 {
		cost, err := domain.Cost(t.Amount, unitPrice)
		if err != nil {
			// A cost that overflows cents cannot fit under any cap.
			return false, nil
		}
		total, ok := domain.AddCents(invested, cost)
		if !ok || total > maxInvested {
			return false, nil
		}
	}

	return true, nil
}

// TransferExecuted records the cumulative invested amount for the recipient.
// The total is bookkeeping in its own right, deliberately independent of
// live balance: selling tokens does not refund invested dollars.
func (r *Rule) TransferExecuted(_ context.Context, t compliance.Transfer) error {
	if t.To.IsZero() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg.MaxInvestmentCents == 0 {
		return nil
	}
	cost, err := domain.Cost(t.Amount, r.cfg.UnitPriceCents)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "invested amount overflows")
	}
	total, ok := domain.AddCents(r.invested[t.To], cost)
	if !ok {
		return dErrors.New(dErrors.CodeInvariantViolation, "invested amount overflows")
	}
	r.invested[t.To] = total
	return nil
}

// Invested returns the cumulative invested cents recorded for an account.
func (r *Rule) Invested(account domain.Address) domain.Cents {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.invested[account]
}

// SetCustomCap sets a per-account token cap override. Zero removes the
// override.
func (r *Rule) SetCustomCap(ctx context.Context, account domain.Address, cap domain.Amount) error {
	if err := r.authz.Authorize(ctx); err != nil {
		return err
	}
	if account.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "account address is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cap == 0 {
		delete(r.custom, account)
		return nil
	}
	r.custom[account] = cap
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

// tokenCapLocked resolves the applicable token cap; callers hold the lock.
func (r *Rule) tokenCapLocked(account domain.Address) domain.Amount {
	if cap, ok := r.custom[account]; ok {
		return cap
	}
	return r.cfg.MaxTokensPerInvestor
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

func (r *Rule) Type() string { return "transfer_limit" }

func (r *Rule) Description() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch {
	case r.cfg.MaxTokensPerInvestor > 0 && r.cfg.MaxInvestmentCents > 0:
		return fmt.Sprintf("transfer limit: at most %d tokens and %d cents invested per account",
			r.cfg.MaxTokensPerInvestor, r.cfg.MaxInvestmentCents)
	case r.cfg.MaxTokensPerInvestor > 0:
		return fmt.Sprintf("transfer limit: at most %d tokens per account", r.cfg.MaxTokensPerInvestor)
	default:
		return fmt.Sprintf("transfer limit: at most %d cents invested per account", r.cfg.MaxInvestmentCents)
	}
}

func (r *Rule) Parameters() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]string{
		"type":                    r.Type(),
		"max_tokens_per_investor": strconv.FormatUint(uint64(r.cfg.MaxTokensPerInvestor), 10),
		"max_investment_cents":    strconv.FormatInt(int64(r.cfg.MaxInvestmentCents), 10),
		"unit_price_cents":        strconv.FormatInt(int64(r.cfg.UnitPriceCents), 10),
		"custom_caps":             strconv.Itoa(len(r.custom)),
		"exempt_count":            strconv.Itoa(len(r.exempt)),
		"active":                  strconv.FormatBool(r.active),
	}
}
