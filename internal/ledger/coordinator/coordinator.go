// Package coordinator is the single mutation path into the ledger. It folds
// the compliance check and the balance update into one serialized step so no
// interleaving can observe a checked-but-not-applied state.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tokengate/internal/compliance"
	"tokengate/internal/event"
	"tokengate/internal/ledger"
	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
	"tokengate/pkg/requestcontext"
)

// Aggregator is the slice of the rule aggregator the coordinator drives.
type Aggregator interface {
	CanTransfer(ctx context.Context, t compliance.Transfer) (compliance.Decision, error)
	TransferExecuted(ctx context.Context, t compliance.Transfer) error
	RecordStatus(ctx context.Context, account domain.Address, compliant bool, note string) error
}

// Result reports the outcome of one attempted movement. A blocked movement is
// a normal result, not an error.
type Result struct {
	Allowed bool   `json:"allowed"`
	Rule    string `json:"rule,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Service serializes all ledger mutations. One mutex covers the whole
// check-mutate-notify sequence; rule bookkeeping therefore always reflects a
// prefix of the executed transfer history.
type Service struct {
	mu         sync.Mutex
	ledger     ledger.Ledger
	aggregator Aggregator
	events     event.Recorder
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEvents(recorder event.Recorder) Option {
	return func(s *Service) { s.events = recorder }
}

func New(l ledger.Ledger, aggregator Aggregator, opts ...Option) (*Service, error) {
	if l == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("aggregator is required")
	}
	svc := &Service{ledger: l, aggregator: aggregator}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Transfer moves value between two verified parties.
func (s *Service) Transfer(ctx context.Context, from, to domain.Address, amount domain.Amount) (Result, error) {
	if from.IsZero() || to.IsZero() {
		return Result{}, dErrors.New(dErrors.CodeValidation, "transfer requires two parties")
	}
	return s.execute(ctx, compliance.Transfer{From: from, To: to, Amount: amount})
}

// Mint issues new supply to a recipient, encoded as a movement from the null
// address.
func (s *Service) Mint(ctx context.Context, to domain.Address, amount domain.Amount) (Result, error) {
	if to.IsZero() {
		return Result{}, dErrors.New(dErrors.CodeValidation, "mint requires a recipient")
	}
	return s.execute(ctx, compliance.Transfer{From: domain.ZeroAddress, To: to, Amount: amount})
}

// Burn retires supply from a holder, encoded as a movement to the null
// address.
func (s *Service) Burn(ctx context.Context, from domain.Address, amount domain.Amount) (Result, error) {
	if from.IsZero() {
		return Result{}, dErrors.New(dErrors.CodeValidation, "burn requires a holder")
	}
	return s.execute(ctx, compliance.Transfer{From: from, To: domain.ZeroAddress, Amount: amount})
}

// Check evaluates a prospective transfer without executing it. Callers use it
// for pre-flight UX only; the verdict may change before execution.
func (s *Service) Check(ctx context.Context, from, to domain.Address, amount domain.Amount) (Result, error) {
	t := compliance.Transfer{From: from, To: to, Amount: amount}
	if err := t.Validate(); err != nil {
		return Result{}, err
	}
	decision, err := s.aggregator.CanTransfer(ctx, t)
	if err != nil {
		return Result{}, err
	}
	return Result{Allowed: decision.Allowed, Rule: decision.Rule, Reason: decision.Reason}, nil
}

// BalanceOf reads a holder's balance.
func (s *Service) BalanceOf(ctx context.Context, account domain.Address) (domain.Amount, error) {
	return s.ledger.BalanceOf(ctx, account)
}

// TotalSupply reads the outstanding supply.
func (s *Service) TotalSupply(ctx context.Context) (domain.Amount, error) {
	return s.ledger.TotalSupply(ctx)
}

func (s *Service) execute(ctx context.Context, t compliance.Transfer) (Result, error) {
	if err := t.Validate(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	decision, err := s.aggregator.CanTransfer(ctx, t)
	if err != nil {
		return Result{}, err
	}
	if !decision.Allowed {
		s.recordBlocked(ctx, t, decision)
		return Result{Allowed: false, Rule: decision.Rule, Reason: decision.Reason}, nil
	}

	if err := s.apply(ctx, t); err != nil {
		return Result{}, err
	}

	if err := s.aggregator.TransferExecuted(ctx, t); err != nil {
		// The balance mutation already happened. Surface the inconsistency
		// loudly instead of pretending the transfer failed.
		s.log(ctx, "post-transfer bookkeeping failed",
			"from", t.From, "to", t.To, "amount", t.Amount, "error", err)
		return Result{Allowed: true}, err
	}

	s.log(ctx, "transfer executed",
		"kind", string(t.Kind()), "from", t.From, "to", t.To, "amount", t.Amount)
	return Result{Allowed: true}, nil
}

func (s *Service) apply(ctx context.Context, t compliance.Transfer) error {
	switch t.Kind() {
	case compliance.KindMint:
		return s.ledger.Mint(ctx, t.To, t.Amount)
	case compliance.KindBurn:
		return s.ledger.Burn(ctx, t.From, t.Amount)
	default:
		return s.ledger.Transfer(ctx, t.From, t.To, t.Amount)
	}
}

// recordBlocked emits the audit trail for a blocked movement: a compliance
// event classified by the failing rule, plus a status note for the sender.
// Failures here are logged, never propagated; the block verdict stands alone.
func (s *Service) recordBlocked(ctx context.Context, t compliance.Transfer, decision compliance.Decision) {
	if s.events != nil {
		ev := event.Event{
			Type:       classify(decision.Rule),
			From:       t.From,
			To:         t.To,
			Amount:     t.Amount,
			Reason:     decision.Reason,
			Severity:   event.SeverityWarning,
			OccurredAt: requestcontext.Now(ctx),
		}
		if err := s.events.Record(ctx, ev); err != nil {
			s.log(ctx, "failed to record blocked-transfer event", "error", err)
		}
	}

	flagged := t.From
	if flagged.IsZero() {
		flagged = t.To
	}
	note := fmt.Sprintf("blocked by %s: %s", decision.Rule, decision.Reason)
	if err := s.aggregator.RecordStatus(ctx, flagged, false, note); err != nil {
		s.log(ctx, "failed to record blocked-transfer status", "error", err)
	}

	s.log(ctx, "transfer blocked",
		"kind", string(t.Kind()), "from", t.From, "to", t.To, "amount", t.Amount,
		"rule", decision.Rule, "reason", decision.Reason)
}

// classify maps the failing rule type to the event taxonomy.
func classify(ruleType string) event.Type {
	switch ruleType {
	case "geographic":
		return event.TypeJurisdictionViolation
	case "investor_limit", "transfer_limit":
		return event.TypeLimitExceeded
	default:
		return event.TypeTransferBlocked
	}
}

func (s *Service) log(ctx context.Context, msg string, attrs ...any) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, msg, attrs...)
}
