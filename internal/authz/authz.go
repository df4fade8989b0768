// Package authz enforces the owner/agent access model for mutating
// administrative operations. The owner is always an implicit agent; agents
// are managed by the owner only.
package authz

import (
	"context"
	"fmt"
	"sync"

	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
	"tokengate/pkg/requestcontext"
)

// Registry tracks the engine owner and the authorized-agent allow-list.
type Registry struct {
	mu     sync.RWMutex
	owner  domain.Address
	agents map[domain.Address]struct{}
}

// New constructs a registry with the given owner.
func New(owner domain.Address) (*Registry, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("owner address is required")
	}
	return &Registry{
		owner:  owner,
		agents: make(map[domain.Address]struct{}),
	}, nil
}

// Owner returns the engine owner address.
func (r *Registry) Owner() domain.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

// AddAgent adds an address to the agent allow-list. Owner only.
func (r *Registry) AddAgent(ctx context.Context, agent domain.Address) error {
	if err := r.AuthorizeOwner(ctx); err != nil {
		return err
	}
	if agent.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "agent address is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent] = struct{}{}
	return nil
}

// RemoveAgent removes an address from the agent allow-list. Owner only.
func (r *Registry) RemoveAgent(ctx context.Context, agent domain.Address) error {
	if err := r.AuthorizeOwner(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[agent]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "agent not registered")
	}
	delete(r.agents, agent)
	return nil
}

// IsAgent reports whether the address may perform agent operations.
// The owner is always an implicit agent.
func (r *Registry) IsAgent(addr domain.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if addr == r.owner {
		return true
	}
	_, ok := r.agents[addr]
	return ok
}

// Authorize verifies the context caller is the owner or an authorized agent.
func (r *Registry) Authorize(ctx context.Context) error {
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !r.IsAgent(caller) {
		return dErrors.New(dErrors.CodeForbidden, "caller is not an authorized agent")
	}
	return nil
}

// AuthorizeOwner verifies the context caller is the owner.
func (r *Registry) AuthorizeOwner(ctx context.Context) error {
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if caller != r.owner {
		return dErrors.New(dErrors.CodeForbidden, "caller is not the owner")
	}
	return nil
}
