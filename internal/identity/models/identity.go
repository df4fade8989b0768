package models

import (
	"regexp"
	"time"

	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
)

// Identity is one verification record in the registry. Records are owned
// exclusively by the registry; re-verification overwrites, it never duplicates.
//
// Verified status is derived from ExpiresAt at read time, never cached: a
// record can be structurally present yet functionally expired.
type Identity struct {
	Account      domain.Address
	Level        domain.VerificationLevel
	Jurisdiction string // ISO 3166-1 alpha-2
	VerifiedAt   time.Time
	ExpiresAt    time.Time
	IdentityHash [32]byte
}

var jurisdictionPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// ValidJurisdiction reports whether code is a well-formed 2-letter code.
func ValidJurisdiction(code string) bool {
	return jurisdictionPattern.MatchString(code)
}

// Expired reports whether the record has passed its expiration at the given
// instant. The boundary is inclusive: at exactly ExpiresAt the record is
// already expired.
func (i *Identity) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Validate checks the record for synchronous-rejection conditions.
func (i *Identity) Validate(now time.Time) error {
	if i.Account.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "account address is required")
	}
	if !i.Level.IsValid() || i.Level == domain.LevelNone {
		return dErrors.New(dErrors.CodeValidation, "verification level must be basic, accredited or institutional")
	}
	if !ValidJurisdiction(i.Jurisdiction) {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction must be a 2-letter country code")
	}
	if !now.Before(i.ExpiresAt) {
		return dErrors.New(dErrors.CodeValidation, "expiration must be in the future")
	}
	return nil
}

// Page bounds an administrative listing. Limit is capped by stores.
type Page struct {
	Offset int
	Limit  int
}

// Normalize clamps page bounds to usable values.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// LevelCount is one row of the per-level verification statistics.
type LevelCount struct {
	Level domain.VerificationLevel `json:"level"`
	Count int                      `json:"count"`
}
