package handler

import (
	"encoding/hex"
	"time"

	"tokengate/internal/identity/models"
)

// VerificationResponse is the administrative view of one verification record.
type VerificationResponse struct {
	Account      string    `json:"account"`
	Level        string    `json:"level"`
	Jurisdiction string    `json:"jurisdiction"`
	VerifiedAt   time.Time `json:"verified_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	IdentityHash string    `json:"identity_hash"`
}

// FromIdentity converts a stored record to its HTTP representation.
func FromIdentity(identity *models.Identity) *VerificationResponse {
	return &VerificationResponse{
		Account:      identity.Account.String(),
		Level:        identity.Level.String(),
		Jurisdiction: identity.Jurisdiction,
		VerifiedAt:   identity.VerifiedAt,
		ExpiresAt:    identity.ExpiresAt,
		IdentityHash: hex.EncodeToString(identity.IdentityHash[:]),
	}
}

// ListResponse pages verification records.
type ListResponse struct {
	Verifications []*VerificationResponse `json:"verifications"`
	Total         int                     `json:"total"`
	Offset        int                     `json:"offset"`
	Limit         int                     `json:"limit"`
}

// StatusResponse is the public verification status of one account.
type StatusResponse struct {
	Account      string `json:"account"`
	Verified     bool   `json:"verified"`
	Level        string `json:"level"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

// StatsResponse aggregates verification counts per level.
type StatsResponse struct {
	Total  int            `json:"total"`
	Levels map[string]int `json:"levels"`
}

// FromLevelCounts converts per-level counts to the HTTP representation.
func FromLevelCounts(counts []models.LevelCount) *StatsResponse {
	resp := &StatsResponse{Levels: make(map[string]int, len(counts))}
	for _, c := range counts {
		resp.Levels[c.Level.String()] = c.Count
		resp.Total += c.Count
	}
	return resp
}

// CleanupResponse reports how many expired records were removed.
type CleanupResponse struct {
	Removed int `json:"removed"`
}
