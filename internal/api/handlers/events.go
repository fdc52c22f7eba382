package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/api/middleware"
	"github.com/Togather-Foundation/eventdesk/internal/api/problem"
	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
)

// ManagementPath is the collection path of the authenticated event API.
const ManagementPath = "/api/v2/events"

type EventsHandler struct {
	Service *events.Service
	Env     string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

type eventResponse struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	StartAt         *time.Time `json:"startAt"`
	EndAt           *time.Time `json:"endAt"`
	Status          string     `json:"status"`
	CreatedBy       string     `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
	ApprovedBy      string     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

type listResponse struct {
	Items []eventResponse `json:"items"`
}

func toEventResponse(event events.Event) eventResponse {
	return eventResponse{
		ID:              event.ID,
		Title:           event.Title,
		Description:     event.Description,
		StartAt:         event.StartAt,
		EndAt:           event.EndAt,
		Status:          string(event.Status),
		CreatedBy:       event.CreatedBy,
		CreatedAt:       event.CreatedAt,
		ApprovedBy:      event.ApprovedBy,
		ApprovedAt:      event.ApprovedAt,
		RejectionReason: event.RejectionReason,
	}
}

func toListResponse(list []events.Event) listResponse {
	items := make([]eventResponse, 0, len(list))
	for _, event := range list {
		items = append(items, toEventResponse(event))
	}
	return listResponse{Items: items}
}

type createEventRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartAt     *time.Time `json:"startAt"`
	EndAt       *time.Time `json:"endAt"`
}

// patchEventRequest leaves a field unchanged when it is absent or null.
type patchEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartAt     *time.Time `json:"startAt"`
	EndAt       *time.Time `json:"endAt"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// actor returns the caller set by the bearer middleware, writing a 401 when
// the route was mounted without it.
func (h *EventsHandler) actor(w http.ResponseWriter, r *http.Request) (events.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok || actor.Subject == "" {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return events.Actor{}, false
	}
	return actor, true
}

// List handles GET /api/v2/events[?status=].
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	status, err := events.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeEventError(w, r, err, h.Env)
		return
	}

	list, err := h.Service.List(r.Context(), actor, status)
	if err != nil {
		writeEventError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(list))
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.Env)
	if !ok {
		return
	}

	event, err := h.Service.Get(r.Context(), actor, id)
	if err != nil {
		writeEventError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req createEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}

	event, err := h.Service.Create(r.Context(), actor, events.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
	})
	if err != nil {
		writeEventError(w, r, err, h.Env)
		return
	}

	w.Header().Set("Location", ManagementPath+"/"+strconv.FormatInt(event.ID, 10))
	writeJSON(w, http.StatusCreated, toEventResponse(event))
}

// Patch handles PATCH /api/v2/events/{id}. New dates apply only when both
// startAt and endAt are given.
func (h *EventsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.Env)
	if !ok {
		return
	}

	var req patchEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}

	event, err := h.Service.Patch(r.Context(), actor, id, events.PatchParams{
		Title:       req.Title,
		Description: req.Description,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
	})
	if err != nil {
		writeEventError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

func (h *EventsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Submit)
}

func (h *EventsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Approve)
}

func (h *EventsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.Env)
	if !ok {
		return
	}

	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}
	if !validateRequest(w, r, req, h.Env) {
		return
	}

	event, err := h.Service.Reject(r.Context(), actor, id, req.Reason)
	if err != nil {
		writeEventError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.Env)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		writeEventError(w, r, err, h.Env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transitionFunc func(ctx context.Context, actor events.Actor, id int64) (events.Event, error)

// transition runs a body-less status change such as submit or approve.
func (h *EventsHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.Env)
	if !ok {
		return
	}

	event, err := fn(r.Context(), actor, id)
	if err != nil {
		writeEventError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}
