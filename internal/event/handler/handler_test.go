package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tokengate/internal/event"
	"tokengate/internal/event/store/memory"
	"tokengate/pkg/domain"
	"tokengate/pkg/requestcontext"
	"tokengate/pkg/testutil"
)

const (
	agent = "0x9999999999999999999999999999999999999999"
	alice = domain.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob   = domain.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

var now = time.Date(2025, 7, 4, 10, 0, 0, 0, time.UTC)

type HandlerSuite struct {
	suite.Suite
	router  http.Handler
	service *event.Service
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	service, err := event.NewService(memory.New())
	s.Require().NoError(err)
	s.service = service

	r := chi.NewRouter()
	New(service, nil).Register(r)
	s.router = r
}

func (s *HandlerSuite) record(t event.Type, sev event.Severity) uuid.UUID {
	ctx := requestcontext.WithTime(context.Background(), now)
	ev := event.Event{
		ID:       uuid.New(),
		Type:     t,
		From:     alice,
		To:       bob,
		Amount:   50,
		Reason:   "blocked for review",
		Severity: sev,
	}
	s.Require().NoError(s.service.Record(ctx, ev))
	return ev.ID
}

func (s *HandlerSuite) request(method, path string, payload any) *httptest.ResponseRecorder {
	var raw []byte
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		s.Require().NoError(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req = testutil.WithCaller(req, agent)
	req = testutil.WithTime(req, now)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestListEmpty() {
	rec := s.request(http.MethodGet, "/events", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp ListResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
	s.Zero(resp.Total)
	s.NotNil(resp.Events)
	s.Empty(resp.Events)
}

func (s *HandlerSuite) TestListWithFilters() {
	s.record(event.TypeTransferBlocked, event.SeverityWarning)
	s.record(event.TypeVerificationExpired, event.SeverityInfo)

	s.Run("all", func() {
		rec := s.request(http.MethodGet, "/events", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp ListResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
		s.Equal(2, resp.Total)
		s.Len(resp.Events, 2)
	})

	s.Run("by type", func() {
		rec := s.request(http.MethodGet, "/events?type=transfer_blocked", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp ListResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
		s.Equal(1, resp.Total)
		s.Require().Len(resp.Events, 1)
		s.Equal(event.TypeTransferBlocked, resp.Events[0].Type)
	})

	s.Run("by severity", func() {
		rec := s.request(http.MethodGet, "/events?severity=info", nil)
		var resp ListResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
		s.Equal(1, resp.Total)
	})

	s.Run("unknown type", func() {
		rec := s.request(http.MethodGet, "/events?type=mystery", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("bad resolved flag", func() {
		rec := s.request(http.MethodGet, "/events?resolved=maybe", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("paging", func() {
		rec := s.request(http.MethodGet, "/events?offset=1&limit=1", nil)
		var resp ListResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
		s.Equal(2, resp.Total)
		s.Len(resp.Events, 1)
	})
}

func (s *HandlerSuite) TestGet() {
	id := s.record(event.TypeTransferBlocked, event.SeverityWarning)

	rec := s.request(http.MethodGet, "/events/"+id.String(), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var ev event.Event
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&ev))
	s.Equal(id, ev.ID)
	s.Equal(alice, ev.From)

	s.Run("unknown id", func() {
		rec := s.request(http.MethodGet, "/events/"+uuid.NewString(), nil)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("malformed id", func() {
		rec := s.request(http.MethodGet, "/events/not-a-uuid", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestResolve() {
	id := s.record(event.TypeTransferBlocked, event.SeverityWarning)

	rec := s.request(http.MethodPut, "/events/"+id.String()+"/resolve",
		map[string]string{"resolved_by": "compliance-officer"})
	s.Require().Equal(http.StatusNoContent, rec.Code)

	rec = s.request(http.MethodGet, "/events/"+id.String(), nil)
	var ev event.Event
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&ev))
	s.True(ev.Resolved)
	s.Equal("compliance-officer", ev.ResolvedBy)

	s.Run("resolving twice conflicts", func() {
		rec := s.request(http.MethodPut, "/events/"+id.String()+"/resolve",
			map[string]string{"resolved_by": "compliance-officer"})
		s.Equal(http.StatusConflict, rec.Code)
	})
}

func (s *HandlerSuite) TestResolveFallsBackToCaller() {
	id := s.record(event.TypeTransferBlocked, event.SeverityWarning)

	rec := s.request(http.MethodPut, "/events/"+id.String()+"/resolve", map[string]string{})
	s.Require().Equal(http.StatusNoContent, rec.Code)

	rec = s.request(http.MethodGet, "/events/"+id.String(), nil)
	var ev event.Event
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&ev))
	s.Equal(agent, ev.ResolvedBy)
}
