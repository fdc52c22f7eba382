package handlers

import (
	"net/http"

	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
)

// PublicEventsHandler serves approved events to anonymous callers.
type PublicEventsHandler struct {
	Service *events.Service
	Env     string
}

func NewPublicEventsHandler(service *events.Service, env string) *PublicEventsHandler {
	return &PublicEventsHandler{Service: service, Env: env}
}

func (h *PublicEventsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListPublic(r.Context())
	if err != nil {
		writeEventError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(list))
}

// Get answers 404 for events that exist but are not approved.
func (h *PublicEventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, h.Env)
	if !ok {
		return
	}

	event, err := h.Service.GetPublic(r.Context(), id)
	if err != nil {
		writeEventError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}
