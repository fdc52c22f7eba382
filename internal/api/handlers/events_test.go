package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/api/middleware"
	"github.com/Togather-Foundation/eventdesk/internal/api/problem"
	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/Togather-Foundation/eventdesk/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	collab   = events.Actor{Subject: "collab"}
	other    = events.Actor{Subject: "other"}
	admin    = events.Actor{Subject: "admin", Admin: true}
)

type fixture struct {
	repo    events.Repository
	service *events.Service
	public  *PublicEventsHandler
	manage  *EventsHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.NewRepository().Events()
	service := events.NewService(repo, auth.DefaultMatrix(), events.WithClock(func() time.Time { return fixedNow }))
	return &fixture{
		repo:    repo,
		service: service,
		public:  NewPublicEventsHandler(service, "test"),
		manage:  NewEventsHandler(service, "test"),
	}
}

func (f *fixture) seed(t *testing.T, event events.Event) events.Event {
	t.Helper()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = fixedNow
	}
	saved, err := f.repo.Save(context.Background(), event)
	require.NoError(t, err)
	return saved
}

type call struct {
	method string
	target string
	body   string
	id     string
	actor  *events.Actor
}

func serve(handler http.HandlerFunc, c call) *httptest.ResponseRecorder {
	var req *http.Request
	if c.body != "" {
		req = httptest.NewRequest(c.method, c.target, strings.NewReader(c.body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(c.method, c.target, nil)
	}
	if c.id != "" {
		req.SetPathValue("id", c.id)
	}
	if c.actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *c.actor))
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeEvent(t *testing.T, rec *httptest.ResponseRecorder) eventResponse {
	t.Helper()
	var body eventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []eventResponse {
	t.Helper()
	var body listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Items
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder, status int, typ string) problem.ProblemDetails {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var body problem.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, typ, body.Type)
	require.Equal(t, status, body.Status)
	return body
}

func TestPublicList_OnlyApproved(t *testing.T) {
	f := newFixture(t)
	f.seed(t, events.Event{Title: "Draft", Status: events.StatusDraft, CreatedBy: "collab"})
	approved := f.seed(t, events.Event{Title: "Live", Status: events.StatusApproved, CreatedBy: "collab"})
	f.seed(t, events.Event{Title: "Pending", Status: events.StatusPendingApproval, CreatedBy: "collab"})

	rec := serve(f.public.List, call{method: http.MethodGet, target: "/api/v1/events"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	items := decodeList(t, rec)
	require.Len(t, items, 1)
	require.Equal(t, approved.ID, items[0].ID)
	require.Equal(t, "APPROVED", items[0].Status)
}

func TestPublicList_EmptyIsArray(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.public.List, call{method: http.MethodGet, target: "/api/v1/events"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestPublicGet(t *testing.T) {
	f := newFixture(t)
	draft := f.seed(t, events.Event{Title: "Draft", Status: events.StatusDraft, CreatedBy: "collab"})
	approved := f.seed(t, events.Event{Title: "Live", Status: events.StatusApproved, CreatedBy: "collab"})

	rec := serve(f.public.Get, call{method: http.MethodGet, target: "/api/v1/events/2", id: "2"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, approved.ID, decodeEvent(t, rec).ID)

	hidden := serve(f.public.Get, call{method: http.MethodGet, target: "/api/v1/events/1", id: "1"})
	missing := serve(f.public.Get, call{method: http.MethodGet, target: "/api/v1/events/99", id: "99"})

	hiddenBody := decodeProblem(t, hidden, http.StatusNotFound, problem.TypeNotFound)
	missingBody := decodeProblem(t, missing, http.StatusNotFound, problem.TypeNotFound)
	require.Equal(t, "event 1 not found", hiddenBody.Detail)
	require.Equal(t, "event 99 not found", missingBody.Detail)
	require.NotContains(t, hidden.Body.String(), draft.Title)
}

func TestInvalidID(t *testing.T) {
	f := newFixture(t)

	for _, id := range []string{"abc", "0", "-3", "1.5", ""} {
		rec := serve(f.public.Get, call{method: http.MethodGet, target: "/api/v1/events/x", id: id})
		decodeProblem(t, rec, http.StatusBadRequest, problem.TypeValidation)

		rec = serve(f.manage.Get, call{method: http.MethodGet, target: "/api/v2/events/x", id: id, actor: &admin})
		decodeProblem(t, rec, http.StatusBadRequest, problem.TypeValidation)
	}
}

func TestManagementRequiresActor(t *testing.T) {
	f := newFixture(t)

	handlers := map[string]http.HandlerFunc{
		"list":    f.manage.List,
		"get":     f.manage.Get,
		"create":  f.manage.Create,
		"patch":   f.manage.Patch,
		"submit":  f.manage.Submit,
		"approve": f.manage.Approve,
		"reject":  f.manage.Reject,
		"delete":  f.manage.Delete,
	}
	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			rec := serve(handler, call{method: http.MethodPost, target: "/api/v2/events/1", id: "1", body: `{}`})
			decodeProblem(t, rec, http.StatusUnauthorized, problem.TypeUnauthorized)
		})
	}
}

func TestManagementList_ScopedToActor(t *testing.T) {
	f := newFixture(t)
	f.seed(t, events.Event{Title: "Mine draft", Status: events.StatusDraft, CreatedBy: "collab"})
	f.seed(t, events.Event{Title: "Mine pending", Status: events.StatusPendingApproval, CreatedBy: "collab"})
	f.seed(t, events.Event{Title: "Theirs", Status: events.StatusDraft, CreatedBy: "other"})

	rec := serve(f.manage.List, call{method: http.MethodGet, target: "/api/v2/events", actor: &collab})
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeList(t, rec)
	require.Len(t, items, 2)
	for _, item := range items {
		require.Equal(t, "collab", item.CreatedBy)
	}

	rec = serve(f.manage.List, call{method: http.MethodGet, target: "/api/v2/events?status=draft", actor: &collab})
	items = decodeList(t, rec)
	require.Len(t, items, 1)
	require.Equal(t, "Mine draft", items[0].Title)

	rec = serve(f.manage.List, call{method: http.MethodGet, target: "/api/v2/events?status=DRAFT", actor: &admin})
	require.Len(t, decodeList(t, rec), 2)

	rec = serve(f.manage.List, call{method: http.MethodGet, target: "/api/v2/events", actor: &admin})
	require.Len(t, decodeList(t, rec), 3)
}

func TestManagementList_UnknownStatus(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.manage.List, call{method: http.MethodGet, target: "/api/v2/events?status=ARCHIVED", actor: &admin})

	body := decodeProblem(t, rec, http.StatusBadRequest, problem.TypeValidation)
	require.Contains(t, body.Detail, "ARCHIVED")
	require.Contains(t, body.Errors, "status")
}

func TestManagementGet_HidesOtherOwners(t *testing.T) {
	f := newFixture(t)
	theirs := f.seed(t, events.Event{Title: "Theirs", Status: events.StatusDraft, CreatedBy: "other"})

	rec := serve(f.manage.Get, call{method: http.MethodGet, target: "/api/v2/events/1", id: "1", actor: &collab})
	body := decodeProblem(t, rec, http.StatusNotFound, problem.TypeNotFound)
	require.Equal(t, "event 1 not found", body.Detail)

	rec = serve(f.manage.Get, call{method: http.MethodGet, target: "/api/v2/events/1", id: "1", actor: &other})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, theirs.Title, decodeEvent(t, rec).Title)

	rec = serve(f.manage.Get, call{method: http.MethodGet, target: "/api/v2/events/1", id: "1", actor: &admin})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.manage.Create, call{
		method: http.MethodPost,
		target: "/api/v2/events",
		body:   `{"title":"  <b>Launch</b> party ","description":"<p>Fun</p><script>x()</script>","startAt":"2026-04-01T18:00:00Z","endAt":"2026-04-01T22:00:00Z"}`,
		actor:  &collab,
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "/api/v2/events/1", rec.Header().Get("Location"))

	body := decodeEvent(t, rec)
	require.Equal(t, int64(1), body.ID)
	require.Equal(t, "Launch party", body.Title)
	require.Equal(t, "<p>Fun</p>", body.Description)
	require.Equal(t, "DRAFT", body.Status)
	require.Equal(t, "collab", body.CreatedBy)
	require.Equal(t, fixedNow, body.CreatedAt)
	require.NotNil(t, body.StartAt)
	require.Equal(t, time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC), body.StartAt.UTC())
	require.Empty(t, body.ApprovedBy)
}

func TestCreate_JSONShape(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.manage.Create, call{method: http.MethodPost, target: "/api/v2/events", body: `{"title":"Bare"}`, actor: &collab})
	require.Equal(t, http.StatusCreated, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, key := range []string{"id", "title", "description", "startAt", "endAt", "status", "createdBy", "createdAt"} {
		require.Contains(t, raw, key)
	}
	require.Nil(t, raw["startAt"])
	require.NotContains(t, raw, "approvedAt")
	require.NotContains(t, raw, "rejectionReason")
}

func TestCreate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		typ    string
	}{
		{name: "missing title", body: `{"description":"x"}`, status: http.StatusBadRequest, typ: problem.TypeValidation},
		{name: "markup only title", body: `{"title":"<i></i>"}`, status: http.StatusBadRequest, typ: problem.TypeValidation},
		{name: "reversed dates", body: `{"title":"x","startAt":"2026-04-02T00:00:00Z","endAt":"2026-04-01T00:00:00Z"}`, status: http.StatusBadRequest, typ: problem.TypeValidation},
		{name: "unknown field", body: `{"title":"x","status":"APPROVED"}`, status: http.StatusBadRequest, typ: problem.TypeValidation},
		{name: "malformed", body: `{"title":`, status: http.StatusBadRequest, typ: problem.TypeValidation},
		{name: "bad date", body: `{"title":"x","startAt":"tomorrow"}`, status: http.StatusBadRequest, typ: problem.TypeValidation},
		{name: "trailing data", body: `{"title":"x"} {"title":"y"}`, status: http.StatusBadRequest, typ: problem.TypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := serve(f.manage.Create, call{method: http.MethodPost, target: "/api/v2/events", body: tt.body, actor: &collab})
			decodeProblem(t, rec, tt.status, tt.typ)

			all, err := f.repo.FindAll(context.Background())
			require.NoError(t, err)
			require.Empty(t, all)
		})
	}
}

func TestCreate_EmptyBody(t *testing.T) {
	f := newFixture(t)

	rec := serve(f.manage.Create, call{method: http.MethodPost, target: "/api/v2/events", actor: &collab})

	body := decodeProblem(t, rec, http.StatusBadRequest, problem.TypeValidation)
	require.Equal(t, "request body is required", body.Detail)
}

func TestCreate_TooLarge(t *testing.T) {
	f := newFixture(t)
	handler := middleware.RequestSize(64)(http.HandlerFunc(f.manage.Create))

	req := httptest.NewRequest(http.MethodPost, "/api/v2/events", strings.NewReader(`{"title":"`+strings.Repeat("x", 200)+`"}`))
	req = req.WithContext(middleware.WithActor(req.Context(), collab))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	decodeProblem(t, rec, http.StatusRequestEntityTooLarge, problem.TypeTooLarge)
}

func TestPatch(t *testing.T) {
	f := newFixture(t)
	f.seed(t, events.Event{Title: "Old", Description: "keep", Status: events.StatusDraft, CreatedBy: "collab"})

	rec := serve(f.manage.Patch, call{method: http.MethodPatch, target: "/api/v2/events/1", id: "1", body: `{"title":"New"}`, actor: &collab})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeEvent(t, rec)
	require.Equal(t, "New", body.Title)
	require.Equal(t, "keep", body.Description)
}

func TestPatch_Errors(t *testing.T) {
	f := newFixture(t)
	f.seed(t, events.Event{Title: "Theirs", Status: events.StatusDraft, CreatedBy: "other"})
	f.seed(t, events.Event{Title: "Pending", Status: events.StatusPendingApproval, CreatedBy: "collab"})
	f.seed(t, events.Event{Title: "Draft", Status: events.StatusDraft, CreatedBy: "collab"})

	rec := serve(f.manage.Patch, call{method: http.MethodPatch, target: "/api/v2/events/1", id: "1", body: `{"title":"x"}`, actor: &collab})
	decodeProblem(t, rec, http.StatusNotFound, problem.TypeNotFound)

	rec = serve(f.manage.Patch, call{method: http.MethodPatch, target: "/api/v2/events/2", id: "2", body: `{"title":"x"}`, actor: &collab})
	decodeProblem(t, rec, http.StatusForbidden, problem.TypeForbidden)

	rec = serve(f.manage.Patch, call{method: http.MethodPatch, target: "/api/v2/events/3", id: "3",
		body: `{"startAt":"2026-05-02T00:00:00Z","endAt":"2026-05-01T00:00:00Z"}`, actor: &collab})
	decodeProblem(t, rec, http.StatusBadRequest, problem.TypeValidation)

	rec = serve(f.manage.Patch, call{method: http.MethodPatch, target: "/api/v2/events/2", id: "2", body: `{"title":"Fixed"}`, actor: &admin})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTransitions(t *testing.T) {
	f := newFixture(t)
	f.seed(t, events.Event{Title: "Draft", Status: events.StatusDraft, CreatedBy: "collab"})

	rec := serve(f.manage.Approve, call{method: http.MethodPost, target: "/api/v2/events/1/approve", id: "1", actor: &admin})
	body := decodeProblem(t, rec, http.StatusConflict, problem.TypeConflict)
	require.Contains(t, body.Detail, "DRAFT")

	rec = serve(f.manage.Submit, call{method: http.MethodPost, target: "/api/v2/events/1/submit", id: "1", actor: &collab})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "PENDING_APPROVAL", decodeEvent(t, rec).Status)

	rec = serve(f.manage.Approve, call{method: http.MethodPost, target: "/api/v2/events/1/approve", id: "1", actor: &collab})
	decodeProblem(t, rec, http.StatusForbidden, problem.TypeForbidden)

	rec = serve(f.manage.Approve, call{method: http.MethodPost, target: "/api/v2/events/1/approve", id: "1", actor: &admin})
	require.Equal(t, http.StatusOK, rec.Code)
	approved := decodeEvent(t, rec)
	require.Equal(t, "APPROVED", approved.Status)
	require.Equal(t, "admin", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
	require.Equal(t, fixedNow, approved.ApprovedAt.UTC())

	rec = serve(f.manage.Submit, call{method: http.MethodPost, target: "/api/v2/events/1/submit", id: "1", actor: &collab})
	decodeProblem(t, rec, http.StatusConflict, problem.TypeConflict)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	f.seed(t, events.Event{Title: "Pending", Status: events.StatusPendingApproval, CreatedBy: "collab"})

	rec := serve(f.manage.Reject, call{method: http.MethodPost, target: "/api/v2/events/1/reject", id: "1", body: `{}`, actor: &admin})
	body := decodeProblem(t, rec, http.StatusBadRequest, problem.TypeValidation)
	require.Equal(t, "is required", body.Errors["reason"])

	rec = serve(f.manage.Reject, call{method: http.MethodPost, target: "/api/v2/events/1/reject", id: "1", body: `{"reason":"   "}`, actor: &admin})
	decodeProblem(t, rec, http.StatusBadRequest, problem.TypeValidation)

	rec = serve(f.manage.Reject, call{method: http.MethodPost, target: "/api/v2/events/1/reject", id: "1", body: `{"reason":"Too vague"}`, actor: &collab})
	decodeProblem(t, rec, http.StatusForbidden, problem.TypeForbidden)

	rec = serve(f.manage.Reject, call{method: http.MethodPost, target: "/api/v2/events/1/reject", id: "1", body: `{"reason":"Too vague"}`, actor: &admin})
	require.Equal(t, http.StatusOK, rec.Code)
	rejected := decodeEvent(t, rec)
	require.Equal(t, "REJECTED", rejected.Status)
	require.Equal(t, "Too vague", rejected.RejectionReason)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	f.seed(t, events.Event{Title: "Mine", Status: events.StatusApproved, CreatedBy: "collab"})

	rec := serve(f.manage.Delete, call{method: http.MethodDelete, target: "/api/v2/events/1", id: "1", actor: &collab})
	decodeProblem(t, rec, http.StatusForbidden, problem.TypeForbidden)

	rec = serve(f.manage.Delete, call{method: http.MethodDelete, target: "/api/v2/events/1", id: "1", actor: &admin})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())

	rec = serve(f.manage.Delete, call{method: http.MethodDelete, target: "/api/v2/events/1", id: "1", actor: &admin})
	decodeProblem(t, rec, http.StatusNotFound, problem.TypeNotFound)
}

type failingRepo struct {
	events.Repository
}

func (failingRepo) FindByStatus(context.Context, events.Status) ([]events.Event, error) {
	return nil, errBackend
}

var errBackend = errors.New("connection reset by peer")

func TestServerErrorHidesInternals(t *testing.T) {
	service := events.NewService(failingRepo{memory.NewRepository().Events()}, auth.DefaultMatrix())

	rec := serve(NewPublicEventsHandler(service, "production").List, call{method: http.MethodGet, target: "/api/v1/events"})
	body := decodeProblem(t, rec, http.StatusInternalServerError, problem.TypeServerError)
	require.NotContains(t, rec.Body.String(), "connection reset")
	require.Equal(t, http.StatusText(http.StatusInternalServerError), body.Detail)

	rec = serve(NewPublicEventsHandler(service, "development").List, call{method: http.MethodGet, target: "/api/v1/events"})
	require.Contains(t, rec.Body.String(), "connection reset")
}
