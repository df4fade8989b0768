// Package handler exposes the compliance event log over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tokengate/internal/event"
	dErrors "tokengate/pkg/domain-errors"
	"tokengate/pkg/platform/httputil"
	"tokengate/pkg/requestcontext"
)

// Service defines the event log operations the handler exposes.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*event.Event, error)
	List(ctx context.Context, filter event.Filter) ([]*event.Event, int, error)
	Resolve(ctx context.Context, id uuid.UUID, by string) error
}

// Handler wires event endpoints to the event service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts event endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/events", h.HandleList)
	r.Get("/events/{id}", h.HandleGet)
	r.Put("/events/{id}/resolve", h.HandleResolve)
}

// ListResponse pages compliance events, newest first.
type ListResponse struct {
	Events []*event.Event `json:"events"`
	Total  int            `json:"total"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

// ResolveRequest is the HTTP request body for PUT /events/{id}/resolve.
type ResolveRequest struct {
	ResolvedBy string `json:"resolved_by"`
}

// HandleList handles GET /events with type, severity and resolved filters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []*event.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, &ListResponse{
		Events: events,
		Total:  total,
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// HandleGet handles GET /events/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid event id"))
		return
	}
	ev, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ev)
}

// HandleResolve handles PUT /events/{id}/resolve.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid event id"))
		return
	}

	req, ok := httputil.Decode[ResolveRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	resolvedBy := strings.TrimSpace(req.ResolvedBy)
	if resolvedBy == "" {
		if caller := requestcontext.Caller(ctx); !caller.IsZero() {
			resolvedBy = caller.String()
		}
	}

	if err := h.service.Resolve(ctx, id, resolvedBy); err != nil {
		if h.logger != nil {
			h.logger.ErrorContext(ctx, "event resolution failed",
				"request_id", requestcontext.RequestID(ctx), "event_id", id, "error", err)
		}
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseFilter(r *http.Request) (event.Filter, error) {
	q := r.URL.Query()
	var filter event.Filter

	if raw := q.Get("type"); raw != "" {
		t, err := event.ParseType(raw)
		if err != nil {
			return event.Filter{}, err
		}
		filter.Type = &t
	}
	if raw := q.Get("severity"); raw != "" {
		sev, err := event.ParseSeverity(raw)
		if err != nil {
			return event.Filter{}, err
		}
		filter.Severity = &sev
	}
	if raw := q.Get("resolved"); raw != "" {
		resolved, err := strconv.ParseBool(raw)
		if err != nil {
			return event.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "resolved must be a boolean")
		}
		filter.Resolved = &resolved
	}
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	return filter.Normalize(), nil
}
