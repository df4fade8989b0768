package handler

import (
	"time"

	"tokengate/internal/compliance"
)

// RuleResponse is the reporting view of one deployed rule.
type RuleResponse struct {
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Active      bool              `json:"active"`
	Parameters  map[string]string `json:"parameters"`
}

// RulesResponse lists deployed rules in evaluation order.
type RulesResponse struct {
	Rules []RuleResponse `json:"rules"`
}

// StatusResponse is the HTTP view of one status cache entry.
type StatusResponse struct {
	Account   string    `json:"account"`
	Compliant bool      `json:"compliant"`
	Note      string    `json:"note"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromStatus converts a status entry to its HTTP representation.
func FromStatus(status *compliance.Status) *StatusResponse {
	return &StatusResponse{
		Account:   status.Account.String(),
		Compliant: status.Compliant,
		Note:      status.Note,
		UpdatedAt: status.UpdatedAt,
	}
}

// HoldingResponse projects holding period lock state for one account.
type HoldingResponse struct {
	Account          string     `json:"account"`
	Held             bool       `json:"held"`
	UnlockAt         *time.Time `json:"unlock_at,omitempty"`
	RemainingSeconds int64      `json:"remaining_seconds,omitempty"`
}
