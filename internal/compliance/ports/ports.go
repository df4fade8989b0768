// Package ports defines shared interfaces for the compliance module.
// Interfaces are placed here when consumed by multiple rules to avoid
// duplication.
package ports

import (
	"context"

	"tokengate/internal/compliance"
	"tokengate/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// BalanceReader is the read-only view into the ledger that rules use.
// Rules read balances, they never write them.
type BalanceReader interface {
	BalanceOf(ctx context.Context, account domain.Address) (domain.Amount, error)
	TotalSupply(ctx context.Context) (domain.Amount, error)
}

// IdentityReader is the read-only view into the identity registry.
// All three reads are expiry-aware: an expired record answers as unverified.
type IdentityReader interface {
	IsVerified(ctx context.Context, account domain.Address) (bool, error)
	VerificationLevel(ctx context.Context, account domain.Address) (domain.VerificationLevel, error)
	// Jurisdiction returns "" for unverified or expired accounts.
	Jurisdiction(ctx context.Context, account domain.Address) (string, error)
}

// Authorizer guards mutating rule configuration operations.
type Authorizer interface {
	Authorize(ctx context.Context) error
}

// StatusStore persists the informational compliance status cache.
type StatusStore interface {
	Set(ctx context.Context, status compliance.Status) error
	SetBatch(ctx context.Context, statuses []compliance.Status) error
	Get(ctx context.Context, account domain.Address) (*compliance.Status, error)
}
