// Package handler exposes the transfer coordinator over HTTP. Every mutation
// goes through the coordinator so compliance checks and balance updates stay
// atomic.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tokengate/internal/ledger/coordinator"
	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
	"tokengate/pkg/platform/httputil"
	"tokengate/pkg/requestcontext"
)

// Coordinator defines the ledger operations the handler exposes.
type Coordinator interface {
	Transfer(ctx context.Context, from, to domain.Address, amount domain.Amount) (coordinator.Result, error)
	Mint(ctx context.Context, to domain.Address, amount domain.Amount) (coordinator.Result, error)
	Burn(ctx context.Context, from domain.Address, amount domain.Amount) (coordinator.Result, error)
	Check(ctx context.Context, from, to domain.Address, amount domain.Amount) (coordinator.Result, error)
	BalanceOf(ctx context.Context, account domain.Address) (domain.Amount, error)
	TotalSupply(ctx context.Context) (domain.Amount, error)
}

// Handler wires ledger endpoints to the transfer coordinator.
type Handler struct {
	coordinator Coordinator
	logger      *slog.Logger
}

func New(c Coordinator, logger *slog.Logger) *Handler {
	return &Handler{coordinator: c, logger: logger}
}

// Register mounts ledger endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/ledger/transfers", h.HandleTransfer)
	r.Post("/ledger/mint", h.HandleMint)
	r.Post("/ledger/burn", h.HandleBurn)
	r.Post("/ledger/check", h.HandleCheck)
	r.Get("/ledger/balances/{account}", h.HandleBalance)
	r.Get("/ledger/supply", h.HandleSupply)
}

// TransferRequest is the HTTP request body for transfer, mint, burn and
// pre-flight check operations. Mint omits from; burn omits to.
type TransferRequest struct {
	From   string        `json:"from,omitempty"`
	To     string        `json:"to,omitempty"`
	Amount domain.Amount `json:"amount"`
}

func (r *TransferRequest) party(raw string) (domain.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.ZeroAddress, nil
	}
	return domain.ParseAddress(raw)
}

// Parties parses both addresses; empty strings map to the null address.
func (r *TransferRequest) Parties() (from, to domain.Address, err error) {
	if from, err = r.party(r.From); err != nil {
		return
	}
	to, err = r.party(r.To)
	return
}

// ResultResponse is the HTTP view of a coordinator result.
type ResultResponse struct {
	Allowed bool   `json:"allowed"`
	Rule    string `json:"rule,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// HandleTransfer handles POST /ledger/transfers.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, func(ctx context.Context, from, to domain.Address, amount domain.Amount) (coordinator.Result, error) {
		return h.coordinator.Transfer(ctx, from, to, amount)
	})
}

// HandleMint handles POST /ledger/mint.
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, func(ctx context.Context, from, to domain.Address, amount domain.Amount) (coordinator.Result, error) {
		if !from.IsZero() {
			return coordinator.Result{}, dErrors.New(dErrors.CodeValidation, "mint must not name a sender")
		}
		return h.coordinator.Mint(ctx, to, amount)
	})
}

// HandleBurn handles POST /ledger/burn.
func (h *Handler) HandleBurn(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, func(ctx context.Context, from, to domain.Address, amount domain.Amount) (coordinator.Result, error) {
		if !to.IsZero() {
			return coordinator.Result{}, dErrors.New(dErrors.CodeValidation, "burn must not name a recipient")
		}
		return h.coordinator.Burn(ctx, from, amount)
	})
}

// HandleCheck handles POST /ledger/check: pre-flight evaluation with no
// state change.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, h.coordinator.Check)
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request,
	op func(context.Context, domain.Address, domain.Address, domain.Amount) (coordinator.Result, error)) {

	ctx := r.Context()
	req, ok := httputil.Decode[TransferRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	from, to, err := req.Parties()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := op(ctx, from, to, req.Amount)
	if err != nil {
		if h.logger != nil {
			h.logger.ErrorContext(ctx, "ledger operation failed",
				"request_id", requestcontext.RequestID(ctx),
				"from", from, "to", to, "amount", req.Amount, "error", err)
		}
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if !result.Allowed {
		// The request was handled; the movement was denied by policy.
		status = http.StatusUnprocessableEntity
	}
	httputil.WriteJSON(w, status, ResultResponse{
		Allowed: result.Allowed,
		Rule:    result.Rule,
		Reason:  result.Reason,
	})
}

// HandleBalance handles GET /ledger/balances/{account}.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	balance, err := h.coordinator.BalanceOf(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"account": account.String(),
		"balance": balance,
	})
}

// HandleSupply handles GET /ledger/supply.
func (h *Handler) HandleSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := h.coordinator.TotalSupply(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"total_supply": supply})
}
