// Package aggregator combines the active rules with all-must-pass semantics
// and keeps the informational per-account status cache.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tokengate/internal/compliance"
	"tokengate/internal/compliance/metrics"
	"tokengate/internal/compliance/ports"
	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
	"tokengate/pkg/requestcontext"
)

// Service holds the ordered rule collection. Membership is a set (duplicates
// rejected) but evaluation order is precisely insertion order: audits must be
// able to reproduce which rule blocked a transfer and why.
type Service struct {
	mu      sync.RWMutex
	rules   []compliance.Rule
	status  ports.StatusStore
	authz   ports.Authorizer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(status ports.StatusStore, authz ports.Authorizer, opts ...Option) (*Service, error) {
	if status == nil {
		return nil, fmt.Errorf("status store is required")
	}
	if authz == nil {
		return nil, fmt.Errorf("authorizer is required")
	}
	svc := &Service{status: status, authz: authz}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CanTransfer AND-folds over all active rules in insertion order,
// short-circuiting on the first block. Evaluation is read-only: rules must
// not mutate state here, so the short-circuit position is unobservable.
func (s *Service) CanTransfer(ctx context.Context, t compliance.Transfer) (compliance.Decision, error) {
	if err := t.Validate(); err != nil {
		return compliance.Decision{}, err
	}

	start := time.Now()
	defer func() { s.metrics.ObserveEvaluateLatency(time.Since(start)) }()

	s.mu.RLock()
	rules := make([]compliance.Rule, len(s.rules))
	copy(rules, s.rules)
	s.mu.RUnlock()

	for _, rule := range rules {
		if !rule.Active() {
			continue
		}
		ok, err := rule.CanTransfer(ctx, t)
		if err != nil {
			return compliance.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal,
				fmt.Sprintf("rule %s evaluation failed", rule.Type()))
		}
		if !ok {
			s.metrics.IncrementEvaluation(rule.Type(), "block")
			s.metrics.IncrementBlocked(rule.Type())
			return compliance.Decision{
				Allowed: false,
				Rule:    rule.Type(),
				Reason:  rule.Description(),
			}, nil
		}
		s.metrics.IncrementEvaluation(rule.Type(), "pass")
	}
	return compliance.Decision{Allowed: true}, nil
}

// TransferExecuted fans the executed transfer out to every rule that keeps
// post-transfer bookkeeping, in insertion order. Only the transfer
// coordinator calls this, strictly after the balance mutation.
func (s *Service) TransferExecuted(ctx context.Context, t compliance.Transfer) error {
	s.mu.RLock()
	rules := make([]compliance.Rule, len(s.rules))
	copy(rules, s.rules)
	s.mu.RUnlock()

	for _, rule := range rules {
		hook, ok := rule.(compliance.PostTransferHook)
		if !ok {
			continue
		}
		if err := hook.TransferExecuted(ctx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvariantViolation,
				fmt.Sprintf("rule %s post-transfer update failed", rule.Type()))
		}
	}
	return nil
}

// AddRule appends a rule. The same rule reference cannot be added twice.
func (s *Service) AddRule(ctx context.Context, rule compliance.Rule) error {
	if err := s.authz.Authorize(ctx); err != nil {
		return err
	}
	if rule == nil {
		return dErrors.New(dErrors.CodeValidation, "rule is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rules {
		if existing == rule {
			return dErrors.New(dErrors.CodeConflict, "rule already registered")
		}
	}
	s.rules = append(s.rules, rule)
	s.log(ctx, "rule added", "rule", rule.Type(), "position", len(s.rules)-1)
	return nil
}

// RemoveRule removes a rule reference. Fails if the rule is absent.
func (s *Service) RemoveRule(ctx context.Context, rule compliance.Rule) error {
	if err := s.authz.Authorize(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.rules {
		if existing == rule {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			s.log(ctx, "rule removed", "rule", rule.Type())
			return nil
		}
	}
	return dErrors.New(dErrors.CodeNotFound, "rule not registered")
}

// Rules returns the rule list in evaluation order.
func (s *Service) Rules() []compliance.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]compliance.Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// HasRule reports whether the rule reference is registered.
func (s *Service) HasRule(rule compliance.Rule) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, existing := range s.rules {
		if existing == rule {
			return true
		}
	}
	return false
}

// RuleCount returns the number of registered rules.
func (s *Service) RuleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// UpdateComplianceStatus writes one informational status entry. Owner/agent
// operation; rule implementations never write here.
func (s *Service) UpdateComplianceStatus(ctx context.Context, account domain.Address, compliant bool, note string) error {
	if err := s.authz.Authorize(ctx); err != nil {
		return err
	}
	return s.RecordStatus(ctx, account, compliant, note)
}

// UpdateComplianceStatusBatch writes status entries for several accounts in
// one operation.
func (s *Service) UpdateComplianceStatusBatch(ctx context.Context, statuses []compliance.Status) error {
	if err := s.authz.Authorize(ctx); err != nil {
		return err
	}
	if len(statuses) == 0 {
		return dErrors.New(dErrors.CodeValidation, "status batch is empty")
	}
	now := requestcontext.Now(ctx)
	for i := range statuses {
		if statuses[i].Account.IsZero() {
			return dErrors.New(dErrors.CodeValidation, "status entry missing account")
		}
		statuses[i].UpdatedAt = now
	}
	if err := s.status.SetBatch(ctx, statuses); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write status batch")
	}
	return nil
}

// RecordStatus is the unauthenticated write path reserved for the ledger
// integration point, which runs in-process and is trusted.
func (s *Service) RecordStatus(ctx context.Context, account domain.Address, compliant bool, note string) error {
	if account.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "account address is required")
	}
	status := compliance.Status{
		Account:   account,
		Compliant: compliant,
		Note:      note,
		UpdatedAt: requestcontext.Now(ctx),
	}
	if err := s.status.Set(ctx, status); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write status")
	}
	return nil
}

// ComplianceStatus reads one informational status entry.
func (s *Service) ComplianceStatus(ctx context.Context, account domain.Address) (*compliance.Status, error) {
	status, err := s.status.Get(ctx, account)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no status recorded for account")
	}
	return status, nil
}

func (s *Service) log(ctx context.Context, msg string, attrs ...any) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, msg, attrs...)
}
