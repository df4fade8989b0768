// Package investorlimit caps the number of distinct non-zero-balance holders,
// satisfying private-placement investor-count ceilings.
package investorlimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"tokengate/internal/compliance"
	"tokengate/internal/compliance/ports"
	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
)

// Rule blocks deposit-style moves that would create a new holder past the
// ceiling. Withdrawal-style moves never block. The investor flag set is the
// authoritative counter: the count is its cardinality by construction, so the
// two can never diverge.
type Rule struct {
	mu        sync.RWMutex
	max       int
	investors map[domain.Address]struct{}
	balances  ports.BalanceReader
	authz     ports.Authorizer
	active    bool
	logger    *slog.Logger
}

type Option func(*Rule)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Rule) { r.logger = logger }
}

func New(maxInvestors int, balances ports.BalanceReader, authz ports.Authorizer, opts ...Option) (*Rule, error) {
	if maxInvestors <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "max investors must be positive")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance reader is required")
	}
	if authz == nil {
		return nil, fmt.Errorf("authorizer is required")
	}
	r := &Rule{
		max:       maxInvestors,
		investors: make(map[domain.Address]struct{}),
		balances:  balances,
		authz:     authz,
		active:    true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// CanTransfer blocks when the recipient would become a new holder and the
// ledger is already at capacity. Burns never block; existing investors and
// accounts that already hold a balance never count as new.
func (r *Rule) CanTransfer(ctx context.Context, t compliance.Transfer) (bool, error) {
	if t.Kind() == compliance.KindBurn {
		return true, nil
	}

	r.mu.RLock()
	_, isInvestor := r.investors[t.To]
	count := len(r.investors)
	max := r.max
	r.mu.RUnlock()

	if isInvestor {
		return true, nil
	}
	balance, err := r.balances.BalanceOf(ctx, t.To)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read recipient balance")
	}
	if balance > 0 {
		// Already a holder, just not flagged yet; receiving more does
		// not add a distinct investor.
		return true, nil
	}
	return count < max, nil
}

// TransferExecuted recalculates investor flags for both parties from their
// resulting balances. Invoked by the transfer coordinator only, strictly
// after the balance mutation.
func (r *Rule) TransferExecuted(ctx context.Context, t compliance.Transfer) error {
	if !t.To.IsZero() {
		balance, err := r.balances.BalanceOf(ctx, t.To)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read recipient balance")
		}
		if balance > 0 {
			r.mu.Lock()
			r.investors[t.To] = struct{}{}
			r.mu.Unlock()
		}
	}
	if !t.From.IsZero() {
		balance, err := r.balances.BalanceOf(ctx, t.From)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read sender balance")
		}
		if balance == 0 {
			r.mu.Lock()
			delete(r.investors, t.From)
			r.mu.Unlock()
		}
	}
	return nil
}

// InitializeInvestorCount re-derives the investor set from the supplied
// account list, for bootstrapping or repair after the counter has been
// managed elsewhere.
func (r *Rule) InitializeInvestorCount(ctx context.Context, accounts []domain.Address) error {
	if err := r.authz.Authorize(ctx); err != nil {
		return err
	}
	fresh := make(map[domain.Address]struct{}, len(accounts))
	for _, account := range accounts {
		if account.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "account list contains the null address")
		}
		balance, err := r.balances.BalanceOf(ctx, account)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
		}
		if balance > 0 {
			fresh[account] = struct{}{}
		}
	}
	r.mu.Lock()
	r.investors = fresh
	count := len(fresh)
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.InfoContext(ctx, "investor count initialized",
			"accounts_scanned", len(accounts), "investors", count)
	}
	return nil
}

// InvestorCount returns the current number of flagged investors.
func (r *Rule) InvestorCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.investors)
}

// IsInvestor reports whether the account is currently flagged.
func (r *Rule) IsInvestor(account domain.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.investors[account]
	return ok
}

// SetActive toggles rule participation. Inactive rules never block.
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

func (r *Rule) Type() string { return "investor_limit" }

func (r *Rule) Description() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("investor limit: at most %d distinct holders", r.max)
}

func (r *Rule) Parameters() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]string{
		"type":              r.Type(),
		"max_investors":     strconv.Itoa(r.max),
		"current_investors": strconv.Itoa(len(r.investors)),
		"active":            strconv.FormatBool(r.active),
	}
}
