// Package compliance defines the rule abstraction the aggregator composes.
// Concrete rules live in subpackages; the aggregator depends only on the
// interfaces here.
package compliance

import (
	"context"
	"time"

	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
)

// Kind distinguishes how value moves. Mint and burn are encoded by the null
// address on the relevant side; rules use the kind to skip the side that
// does not exist.
type Kind string

const (
	KindMint     Kind = "mint"
	KindBurn     Kind = "burn"
	KindTransfer Kind = "transfer"
)

// Transfer is one prospective movement of value between two parties.
type Transfer struct {
	From   domain.Address
	To     domain.Address
	Amount domain.Amount
}

// Kind derives the movement kind from the null-address encoding.
func (t Transfer) Kind() Kind {
	switch {
	case t.From.IsZero():
		return KindMint
	case t.To.IsZero():
		return KindBurn
	default:
		return KindTransfer
	}
}

// Validate rejects structurally impossible movements.
func (t Transfer) Validate() error {
	if t.From.IsZero() && t.To.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "transfer needs at least one party")
	}
	if t.From == t.To {
		return dErrors.New(dErrors.CodeValidation, "sender and recipient must differ")
	}
	if t.Amount == 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	return nil
}

// Rule is the capability set every policy rule implements.
//
// CanTransfer must be free of side effects: the aggregator may evaluate it
// speculatively and in any short-circuit position without observable state
// change. A false result is the designed "block this operation" output, not
// an error; errors are reserved for infrastructure failures.
type Rule interface {
	CanTransfer(ctx context.Context, t Transfer) (bool, error)

	// Description is the human-readable reason surfaced when this rule
	// blocks an operation.
	Description() string

	// Type is a stable machine-readable rule kind for metrics and event
	// classification.
	Type() string

	// Parameters exposes a serializable configuration snapshot for
	// reporting, independent of the evaluation path.
	Parameters() map[string]string

	// Active rules participate in evaluation; inactive rules never block.
	Active() bool
}

// PostTransferHook is implemented by rules that keep bookkeeping derived from
// executed transfers (investor counts, acquisition timestamps, cumulative
// investment). The transfer coordinator invokes it exactly once, after the
// balance mutation has been applied, under the same serialization as the
// check. Nothing else may call it.
type PostTransferHook interface {
	TransferExecuted(ctx context.Context, t Transfer) error
}

// Decision is the aggregator's verdict on one prospective transfer.
type Decision struct {
	Allowed bool
	// Rule and Reason identify the first failing rule when blocked.
	Rule   string
	Reason string
}

// Status is one informational entry of the per-account compliance status
// cache. It never gates transfers.
type Status struct {
	Account   domain.Address `json:"account"`
	Compliant bool           `json:"compliant"`
	Note      string         `json:"note"`
	UpdatedAt time.Time      `json:"updated_at"`
}
