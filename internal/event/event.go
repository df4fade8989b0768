// Package event is the compliance event log: a durable, queryable record of
// blocked transfers, checks, expirations and cap violations that reporting
// and case-review tooling consume.
package event

import (
	"time"

	"github.com/google/uuid"

	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
)

// Type classifies a compliance event.
type Type string

const (
	TypeTransferBlocked       Type = "transfer_blocked"
	TypeComplianceCheck       Type = "compliance_check"
	TypeVerificationExpired   Type = "verification_expired"
	TypeLimitExceeded         Type = "limit_exceeded"
	TypeJurisdictionViolation Type = "jurisdiction_violation"
)

// IsValid reports whether the type is one of the supported values.
func (t Type) IsValid() bool {
	switch t {
	case TypeTransferBlocked, TypeComplianceCheck, TypeVerificationExpired,
		TypeLimitExceeded, TypeJurisdictionViolation:
		return true
	}
	return false
}

// ParseType validates the wire form of an event type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid event type")
	}
	return t, nil
}

// Severity grades an event for triage.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// IsValid reports whether the severity is one of the supported values.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// ParseSeverity validates the wire form of a severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid severity")
	}
	return sev, nil
}

// Event is one compliance event. From/To carry the transfer parties when the
// event concerns a specific movement; Reason carries the failing rule's
// description for blocked transfers.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       Type           `json:"type"`
	From       domain.Address `json:"from,omitempty"`
	To         domain.Address `json:"to,omitempty"`
	Amount     domain.Amount  `json:"amount,omitempty"`
	Reason     string         `json:"reason"`
	Severity   Severity       `json:"severity"`
	OccurredAt time.Time      `json:"occurred_at"`
	Resolved   bool           `json:"resolved"`
	ResolvedBy string         `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
}

// Filter narrows event listings. Nil fields match everything.
type Filter struct {
	Type     *Type
	Severity *Severity
	Resolved *bool
	Offset   int
	Limit    int
}

// Normalize clamps paging bounds to usable values.
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
