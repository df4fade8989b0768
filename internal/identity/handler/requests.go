package handler

import (
	"encoding/hex"
	"strings"
	"time"

	"tokengate/internal/identity/models"
	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
)

// VerifyRequest is the HTTP request body for POST /identity/verifications.
type VerifyRequest struct {
	Account      string    `json:"account"`
	Level        string    `json:"level"`
	Jurisdiction string    `json:"jurisdiction"`
	ExpiresAt    time.Time `json:"expires_at"`
	IdentityHash string    `json:"identity_hash"`

	parsed models.Identity
}

// Validate validates and parses the request.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	account, err := domain.ParseAddress(strings.TrimSpace(r.Account))
	if err != nil {
		return err
	}
	level, err := domain.ParseVerificationLevel(strings.TrimSpace(r.Level))
	if err != nil {
		return err
	}
	jurisdiction := strings.ToUpper(strings.TrimSpace(r.Jurisdiction))
	if !models.ValidJurisdiction(jurisdiction) {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction must be a two-letter ISO 3166-1 code")
	}
	if r.ExpiresAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "expires_at is required")
	}

	hash, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(r.IdentityHash), "0x"))
	if err != nil || len(hash) != 32 {
		return dErrors.New(dErrors.CodeValidation, "identity_hash must be 32 hex-encoded bytes")
	}

	r.parsed = models.Identity{
		Account:      account,
		Level:        level,
		Jurisdiction: jurisdiction,
		ExpiresAt:    r.ExpiresAt,
	}
	copy(r.parsed.IdentityHash[:], hash)
	return nil
}

// Parsed returns the validated identity record.
func (r *VerifyRequest) Parsed() models.Identity {
	return r.parsed
}

// BatchVerifyRequest is the HTTP request body for POST /identity/verifications/batch.
type BatchVerifyRequest struct {
	Verifications []VerifyRequest `json:"verifications"`
}

// Validate validates every entry; one bad entry rejects the batch.
func (r *BatchVerifyRequest) Validate() error {
	if r == nil || len(r.Verifications) == 0 {
		return dErrors.New(dErrors.CodeValidation, "verifications list is required")
	}
	for i := range r.Verifications {
		if err := r.Verifications[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Parsed returns the validated identity records.
func (r *BatchVerifyRequest) Parsed() []models.Identity {
	out := make([]models.Identity, 0, len(r.Verifications))
	for i := range r.Verifications {
		out = append(out, r.Verifications[i].Parsed())
	}
	return out
}

// UpdateLevelRequest is the HTTP request body for PUT /identity/verifications/{account}/level.
type UpdateLevelRequest struct {
	Level string `json:"level"`

	parsedLevel domain.VerificationLevel
}

func (r *UpdateLevelRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	level, err := domain.ParseVerificationLevel(strings.TrimSpace(r.Level))
	if err != nil {
		return err
	}
	r.parsedLevel = level
	return nil
}

func (r *UpdateLevelRequest) ParsedLevel() domain.VerificationLevel {
	return r.parsedLevel
}

// CleanupRequest is the HTTP request body for POST /identity/cleanup.
type CleanupRequest struct {
	Accounts []string `json:"accounts"`

	parsedAccounts []domain.Address
}

func (r *CleanupRequest) Validate() error {
	if r == nil || len(r.Accounts) == 0 {
		return dErrors.New(dErrors.CodeValidation, "accounts list is required")
	}
	r.parsedAccounts = make([]domain.Address, 0, len(r.Accounts))
	for _, raw := range r.Accounts {
		account, err := domain.ParseAddress(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		r.parsedAccounts = append(r.parsedAccounts, account)
	}
	return nil
}

func (r *CleanupRequest) ParsedAccounts() []domain.Address {
	return r.parsedAccounts
}
