package domain

import "errors"

// Cents is a monetary amount in integer US cents. Investment caps and unit
// prices are tracked at this fixed scale so cap checks never round.
type Cents int64

var (
	ErrEmptyAddress     = errors.New("address is empty")
	ErrMalformedAddress = errors.New("address is malformed")
	// ErrAmountOverflow is returned when scaled-integer arithmetic would
	// exceed the representable range.
	ErrAmountOverflow = errors.New("amount overflows")
)

// AddCents returns a+b, reporting overflow instead of wrapping.
func AddCents(a, b Cents) (Cents, bool) {
	if b > 0 && a > maxCents-b {
		return 0, false
	}
	sum := a + b
	return sum, true
}

const maxCents = Cents(1<<63 - 1)

// Cost converts a token amount to its cost in cents at the given unit price.
func Cost(amount Amount, unitPrice Cents) (Cents, error) {
	if unitPrice < 0 {
		return 0, ErrAmountOverflow
	}
	if unitPrice == 0 || amount == 0 {
		return 0, nil
	}
	if Amount(maxCents)/Amount(unitPrice) < amount {
		return 0, ErrAmountOverflow
	}
	return Cents(amount) * unitPrice, nil
}
