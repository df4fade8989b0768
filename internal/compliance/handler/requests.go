package handler

import (
	"strings"

	"tokengate/internal/compliance"
	"tokengate/pkg/domain"
)

// SetStatusRequest is the HTTP request body for PUT /compliance/status/{account}.
type SetStatusRequest struct {
	Compliant bool   `json:"compliant"`
	Note      string `json:"note"`
}

// SetStatusBatchRequest is the HTTP request body for PUT /compliance/status.
type SetStatusBatchRequest struct {
	Statuses []struct {
		Account   string `json:"account"`
		Compliant bool   `json:"compliant"`
		Note      string `json:"note"`
	} `json:"statuses"`
}

// Parsed validates and converts the batch entries.
func (r *SetStatusBatchRequest) Parsed() ([]compliance.Status, error) {
	out := make([]compliance.Status, 0, len(r.Statuses))
	for _, entry := range r.Statuses {
		account, err := domain.ParseAddress(strings.TrimSpace(entry.Account))
		if err != nil {
			return nil, err
		}
		out = append(out, compliance.Status{
			Account:   account,
			Compliant: entry.Compliant,
			Note:      strings.TrimSpace(entry.Note),
		})
	}
	return out, nil
}
