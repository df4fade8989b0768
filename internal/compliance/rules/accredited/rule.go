// Package accredited gates receipt of tokens on the recipient's verification
// level. The sender is not checked: it already passed this gate when it first
// acquired its holdings.
package accredited

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

// Rule requires the recipient's verification level to meet a configurable
// minimum. Exempt accounts (issuer, treasury) always pass.
type Rule struct {
	mu       sync.RWMutex
	min      domain.VerificationLevel
	exempt   map[domain.Address]struct{}
	identity ports.IdentityReader
	authz    ports.Authorizer
	active   bool
}

func New(minLevel domain.VerificationLevel, identity ports.IdentityReader, authz ports.Authorizer) (*Rule, error) {
	if !minLevel.IsValid() || minLevel == domain.LevelNone {
		return nil, dErrors.New(dErrors.CodeValidation, "minimum level must be basic, accredited or institutional")
	}
	if identity == nil {
		return nil, fmt.Errorf("identity reader is required")
	}
	if authz == nil {
		return nil, fmt.Errorf("authorizer is required")
	}
	return &Rule{
		min:      minLevel,
		exempt:   make(map[domain.Address]struct{}),
		identity: identity,
		authz:    authz,
		active:   true,
	}, nil
}

// CanTransfer checks the recipient's level against the minimum. Burns have no
// recipient and always pass.
func (r *Rule) CanTransfer(ctx context.Context, t compliance.Transfer) (bool, error) {
	if t.Kind() == compliance.KindBurn {
		return true, nil
	}
	r.mu.RLock()
	_, exempt := r.exempt[t.To]
	min := r.min
	r.mu.RUnlock()
	if exempt {
		return true, nil
	}
	level, err := r.identity.VerificationLevel(ctx, t.To)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read verification level")
	}
	return level.AtLeast(min), nil
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

// IsExempt reports whether the account bypasses the accreditation gate.
func (r *Rule) IsExempt(account domain.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.exempt[account]
	return ok
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

func (r *Rule) Type() string { return "accredited_investor" }

func (r *Rule) Description() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("accredited investor requirement: recipient must be %s or higher", r.min)
}

func (r *Rule) Parameters() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]string{
		"type":          r.Type(),
		"minimum_level": r.min.String(),
		"exempt_count":  strconv.Itoa(len(r.exempt)),
		"active":        strconv.FormatBool(r.active),
	}
}
