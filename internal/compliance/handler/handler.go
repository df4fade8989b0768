// Package handler exposes rule inspection and the status cache over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tokengate/internal/compliance"
	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
	"tokengate/pkg/platform/httputil"
)

// Aggregator defines the aggregator operations the handler exposes.
type Aggregator interface {
	Rules() []compliance.Rule
	UpdateComplianceStatus(ctx context.Context, account domain.Address, compliant bool, note string) error
	UpdateComplianceStatusBatch(ctx context.Context, statuses []compliance.Status) error
	ComplianceStatus(ctx context.Context, account domain.Address) (*compliance.Status, error)
}

// HoldingInspector projects lock state for one holder. Implemented by the
// holding period rule; nil when that rule is not deployed.
type HoldingInspector interface {
	UnlockAt(ctx context.Context, account domain.Address) (time.Time, error)
	TimeRemaining(ctx context.Context, account domain.Address) (time.Duration, error)
}

// Handler wires compliance endpoints to the rule aggregator.
type Handler struct {
	aggregator Aggregator
	holding    HoldingInspector
	logger     *slog.Logger
}

type Option func(*Handler)

// WithHoldingInspector enables the holding lock projection endpoint.
func WithHoldingInspector(inspector HoldingInspector) Option {
	return func(h *Handler) { h.holding = inspector }
}

func New(aggregator Aggregator, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{aggregator: aggregator, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts compliance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/compliance/rules", h.HandleRules)
	r.Get("/compliance/status/{account}", h.HandleGetStatus)
	r.Put("/compliance/status/{account}", h.HandleSetStatus)
	r.Put("/compliance/status", h.HandleSetStatusBatch)
	r.Get("/compliance/holding/{account}", h.HandleHolding)
}

// HandleRules handles GET /compliance/rules: the deployed rule set in
// evaluation order with each rule's reporting snapshot.
func (h *Handler) HandleRules(w http.ResponseWriter, r *http.Request) {
	rules := h.aggregator.Rules()
	resp := RulesResponse{Rules: make([]RuleResponse, 0, len(rules))}
	for _, rule := range rules {
		resp.Rules = append(resp.Rules, RuleResponse{
			Type:        rule.Type(),
			Description: rule.Description(),
			Active:      rule.Active(),
			Parameters:  rule.Parameters(),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGetStatus handles GET /compliance/status/{account}.
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := h.aggregator.ComplianceStatus(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStatus(status))
}

// HandleSetStatus handles PUT /compliance/status/{account}.
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[SetStatusRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}

	if err := h.aggregator.UpdateComplianceStatus(ctx, account, req.Compliant, strings.TrimSpace(req.Note)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetStatusBatch handles PUT /compliance/status.
func (h *Handler) HandleSetStatusBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[SetStatusBatchRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	statuses, err := req.Parsed()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.aggregator.UpdateComplianceStatusBatch(ctx, statuses); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"updated": len(statuses)})
}

// HandleHolding handles GET /compliance/holding/{account}: when the holder's
// position unlocks under the holding period rule.
func (h *Handler) HandleHolding(w http.ResponseWriter, r *http.Request) {
	if h.holding == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "holding period rule is not deployed"))
		return
	}
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ctx := r.Context()
	resp := HoldingResponse{Account: account.String()}
	unlockAt, err := h.holding.UnlockAt(ctx, account)
	switch {
	case err == nil:
		remaining, err := h.holding.TimeRemaining(ctx, account)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		resp.Held = true
		resp.UnlockAt = &unlockAt
		resp.RemainingSeconds = int64(remaining / time.Second)
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		// No recorded acquisition: nothing is locked.
	default:
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
