package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/calendify/server/internal/api/problem"
	"github.com/calendify/server/internal/domain/events"
)

const (
	msgInvalidInput   = "Invalid input data"
	msgNoID           = "No ID provided"
	msgInvalidID      = "Invalid ID"
	msgInvalidMethod  = "Invalid request method"
	msgDatabaseError  = "Database error occurred"
	msgCreateFailed   = "Failed to create event"
	msgUpdateFailed   = "Failed to update event"
	msgDeleteFailed   = "Failed to delete event"
	msgEventUpdated   = "Event updated successfully"
	msgEventDeleted   = "Event deleted successfully"
	notificationsType = "notifications"
)

// EventsHandler serves the whole /api/events resource and dispatches on the
// request method.
//
// Behind NewRouter, preflight OPTIONS requests are answered by the CORS
// middleware and never get here. The handler still answers OPTIONS with an
// empty 200 itself so it behaves the same when mounted without that chain.
type EventsHandler struct {
	Service *events.Service
}

func NewEventsHandler(service *events.Service) *EventsHandler {
	return &EventsHandler{Service: service}
}

type eventResponse struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

type notificationResponse struct {
	ID        int64  `json:"id"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		if r.URL.Query().Get("type") == notificationsType {
			h.listNotifications(w, r)
			return
		}
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodPut:
		h.update(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		problem.Write(w, r, http.StatusBadRequest, msgInvalidMethod, nil)
	}
}

func (h *EventsHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, msgDatabaseError, err)
		return
	}

	payload := make([]eventResponse, 0, len(items))
	for _, item := range items {
		payload = append(payload, toEventResponse(item))
	}
	WriteJSON(w, http.StatusOK, payload)
}

func (h *EventsHandler) listNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListNotifications(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, msgDatabaseError, err)
		return
	}

	payload := make([]notificationResponse, 0, len(items))
	for _, item := range items {
		payload = append(payload, notificationResponse{
			ID:        item.ID,
			Message:   item.Message,
			Type:      string(item.Type),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	WriteJSON(w, http.StatusOK, payload)
}

func (h *EventsHandler) create(w http.ResponseWriter, r *http.Request) {
	var input events.CreateInput
	if err := decodeBody(r, &input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, msgInvalidInput, err)
		return
	}

	created, err := h.Service.Create(r.Context(), input)
	if err != nil {
		writeMutationError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toEventResponse(*created))
}

func (h *EventsHandler) update(w http.ResponseWriter, r *http.Request) {
	var input events.UpdateInput
	if err := decodeBody(r, &input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, msgInvalidInput, err)
		return
	}

	if err := h.Service.Update(r.Context(), input); err != nil {
		writeMutationError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, messageResponse{Message: msgEventUpdated})
}

func (h *EventsHandler) delete(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		problem.Write(w, r, http.StatusBadRequest, msgNoID, nil)
		return
	}
	id, err := events.ParseID(raw)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, msgInvalidID, err)
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		writeMutationError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, messageResponse{Message: msgEventDeleted})
}

// writeMutationError maps service errors onto the two response tiers.
// Anything unclassified came from storage and is hidden behind a generic 500.
func writeMutationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, events.ErrCreateFailed):
		problem.Write(w, r, http.StatusBadRequest, msgCreateFailed, err)
	case errors.Is(err, events.ErrUpdateFailed):
		problem.Write(w, r, http.StatusBadRequest, msgUpdateFailed, err)
	case errors.Is(err, events.ErrDeleteFailed):
		problem.Write(w, r, http.StatusBadRequest, msgDeleteFailed, err)
	case events.IsInputError(err):
		problem.Write(w, r, http.StatusBadRequest, msgInvalidInput, err)
	default:
		problem.Write(w, r, http.StatusInternalServerError, msgDatabaseError, err)
	}
}

// decodeBody reads a single JSON value. An empty body is malformed.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func toEventResponse(e events.Event) eventResponse {
	return eventResponse{ID: e.ID, Title: e.Title, Date: e.Date}
}

// WriteJSON encodes payload as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
