// Package handler exposes the identity registry over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tokengate/internal/identity/models"
	"tokengate/pkg/domain"
	dErrors "tokengate/pkg/domain-errors"
	"tokengate/pkg/platform/httputil"
	"tokengate/pkg/requestcontext"
)

// Service defines the identity operations the handler exposes.
type Service interface {
	AddVerified(ctx context.Context, identity models.Identity) error
	BatchVerify(ctx context.Context, identities []models.Identity) error
	RemoveVerification(ctx context.Context, account domain.Address) error
	UpdateLevel(ctx context.Context, account domain.Address, level domain.VerificationLevel) error
	IsVerified(ctx context.Context, account domain.Address) (bool, error)
	VerificationLevel(ctx context.Context, account domain.Address) (domain.VerificationLevel, error)
	Jurisdiction(ctx context.Context, account domain.Address) (string, error)
	Verification(ctx context.Context, account domain.Address) (*models.Identity, error)
	CleanupExpired(ctx context.Context, accounts []domain.Address) (int, error)
	List(ctx context.Context, page models.Page) ([]*models.Identity, int, error)
	Stats(ctx context.Context) ([]models.LevelCount, error)
}

// Handler wires identity endpoints to the identity service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts identity endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/identity/verifications", h.HandleVerify)
	r.Post("/identity/verifications/batch", h.HandleBatchVerify)
	r.Get("/identity/verifications", h.HandleList)
	r.Get("/identity/verifications/{account}", h.HandleGet)
	r.Delete("/identity/verifications/{account}", h.HandleRemove)
	r.Put("/identity/verifications/{account}/level", h.HandleUpdateLevel)
	r.Get("/identity/status/{account}", h.HandleStatus)
	r.Get("/identity/stats", h.HandleStats)
	r.Post("/identity/cleanup", h.HandleCleanup)
}

// HandleVerify handles POST /identity/verifications.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[VerifyRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.AddVerified(ctx, req.Parsed()); err != nil {
		h.logError(ctx, "add verification failed", err, "account", req.Account)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"account": req.Account})
}

// HandleBatchVerify handles POST /identity/verifications/batch.
func (h *Handler) HandleBatchVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[BatchVerifyRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	identities := req.Parsed()
	if err := h.service.BatchVerify(ctx, identities); err != nil {
		h.logError(ctx, "batch verification failed", err, "count", len(identities))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]int{"verified": len(identities)})
}

// HandleGet handles GET /identity/verifications/{account}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Verification(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromIdentity(record))
}

// HandleRemove handles DELETE /identity/verifications/{account}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.RemoveVerification(ctx, account); err != nil {
		h.logError(ctx, "remove verification failed", err, "account", account)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdateLevel handles PUT /identity/verifications/{account}/level.
func (h *Handler) HandleUpdateLevel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[UpdateLevelRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.UpdateLevel(ctx, account, req.ParsedLevel()); err != nil {
		h.logError(ctx, "update level failed", err, "account", account)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"account": account.String(),
		"level":   req.ParsedLevel().String(),
	})
}

// HandleStatus handles GET /identity/status/{account}. Public, expiry-aware.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	verified, err := h.service.IsVerified(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	level, err := h.service.VerificationLevel(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	jurisdiction, err := h.service.Jurisdiction(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &StatusResponse{
		Account:      account.String(),
		Verified:     verified,
		Level:        level.String(),
		Jurisdiction: jurisdiction,
	})
}

// HandleList handles GET /identity/verifications.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := models.Page{
		Offset: queryInt(r, "offset"),
		Limit:  queryInt(r, "limit"),
	}.Normalize()

	records, total, err := h.service.List(ctx, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := &ListResponse{
		Verifications: make([]*VerificationResponse, 0, len(records)),
		Total:         total,
		Offset:        page.Offset,
		Limit:         page.Limit,
	}
	for _, record := range records {
		resp.Verifications = append(resp.Verifications, FromIdentity(record))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleStats handles GET /identity/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromLevelCounts(counts))
}

// HandleCleanup handles POST /identity/cleanup.
func (h *Handler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[CleanupRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	removed, err := h.service.CleanupExpired(ctx, req.ParsedAccounts())
	if err != nil {
		h.logError(ctx, "cleanup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &CleanupResponse{Removed: removed})
}

func (h *Handler) logError(ctx context.Context, msg string, err error, attrs ...any) {
	if h.logger == nil {
		return
	}
	if dErrors.HasCode(err, dErrors.CodeUnauthorized) || dErrors.HasCode(err, dErrors.CodeForbidden) {
		return
	}
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	h.logger.ErrorContext(ctx, msg, attrs...)
}

func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}
