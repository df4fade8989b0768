// Package domain holds the identifier and value types shared across the
// engine. Keeping them here avoids import cycles between the identity
// registry, the rules, and the ledger boundary.
package domain

import (
	"regexp"
	"strings"
)

// Address identifies an account on the ledger. The zero value is the reserved
// null address: a transfer from the null address is a mint, a transfer to the
// null address is a burn.
type Address string

// ZeroAddress is the reserved null account used to encode mint and burn.
const ZeroAddress Address = ""

var addressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// ParseAddress normalizes and validates an account address. Addresses are
// lowercased hex with a 0x prefix, matching what the ledger hands us.
func ParseAddress(s string) (Address, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ZeroAddress, ErrEmptyAddress
	}
	if !addressPattern.MatchString(s) {
		return ZeroAddress, ErrMalformedAddress
	}
	return Address(s), nil
}

// IsZero reports whether the address is the reserved null account.
func (a Address) IsZero() bool { return a == ZeroAddress }

// String returns the canonical string form.
func (a Address) String() string { return string(a) }

// Amount is a token quantity in smallest base units. All balance and cap
// arithmetic happens on this type; there is no fractional representation.
type Amount uint64

// AddAmount returns a+b, reporting overflow instead of wrapping.
func AddAmount(a, b Amount) (Amount, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}
