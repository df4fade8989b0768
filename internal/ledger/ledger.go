// Package ledger abstracts the balance store the compliance layer protects.
// The coordinator is the only mutation path; everything else reads.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
)

// Ledger is the asset register the transfer coordinator mutates. Implementations
// must not perform compliance checks themselves; the coordinator owns that
// ordering.
type Ledger interface {
	BalanceOf(ctx context.Context, account domain.Address) (domain.Amount, error)
	TotalSupply(ctx context.Context) (domain.Amount, error)

	Mint(ctx context.Context, to domain.Address, amount domain.Amount) error
	Burn(ctx context.Context, from domain.Address, amount domain.Amount) error
	Transfer(ctx context.Context, from, to domain.Address, amount domain.Amount) error
}

// Memory is an in-process ledger. It backs tests and single-node deployments;
// a chain-backed implementation satisfies the same interface.
type Memory struct {
	mu       sync.RWMutex
	balances map[domain.Address]domain.Amount
	supply   domain.Amount
}

func NewMemory() *Memory {
	return &Memory{balances: make(map[domain.Address]domain.Amount)}
}

func (m *Memory) BalanceOf(_ context.Context, account domain.Address) (domain.Amount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[account], nil
}

func (m *Memory) TotalSupply(_ context.Context) (domain.Amount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.supply, nil
}

func (m *Memory) Mint(_ context.Context, to domain.Address, amount domain.Amount) error {
	if to.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "cannot mint to the null address")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	newSupply, ok := domain.AddAmount(m.supply, amount)
	if !ok {
		return fmt.Errorf("mint %d to %s: %w", amount, to, domain.ErrAmountOverflow)
	}
	newBalance, ok := domain.AddAmount(m.balances[to], amount)
	if !ok {
		return fmt.Errorf("mint %d to %s: %w", amount, to, domain.ErrAmountOverflow)
	}
	m.supply = newSupply
	m.balances[to] = newBalance
	return nil
}

func (m *Memory) Burn(_ context.Context, from domain.Address, amount domain.Amount) error {
	if from.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "cannot burn from the null address")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	balance := m.balances[from]
	if balance < amount {
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("insufficient balance: have %d, burn %d", balance, amount))
	}
	m.balances[from] = balance - amount
	m.supply -= amount
	if m.balances[from] == 0 {
		delete(m.balances, from)
	}
	return nil
}

func (m *Memory) Transfer(_ context.Context, from, to domain.Address, amount domain.Amount) error {
	if from.IsZero() || to.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "transfer requires two parties")
	}
	// Self-transfers alias the two map keys and must not reach the
	// read-then-write sequence below.
	if from == to {
		return dErrors.New(dErrors.CodeValidation, "sender and recipient must differ")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	balance := m.balances[from]
	if balance < amount {
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("insufficient balance: have %d, send %d", balance, amount))
	}
	newBalance, ok := domain.AddAmount(m.balances[to], amount)
	if !ok {
		return fmt.Errorf("transfer %d from %s to %s: %w", amount, from, to, domain.ErrAmountOverflow)
	}
	m.balances[from] = balance - amount
	m.balances[to] = newBalance
	if m.balances[from] == 0 {
		delete(m.balances, from)
	}
	return nil
}
