package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/auth"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
	"github.com/sakif/alumni-network/internal/service"
)

// EventHandler serves event listing, admin edits and registration.
//
// ROUTES:
//
//	GET    /events               → public, date ascending
//	POST   /events               → admin
//	PUT    /events/{id}          → admin
//	DELETE /events/{id}          → admin
//	POST   /events/{id}/register → any signed-in user
type EventHandler struct {
	service *service.EventService
	logger  *slog.Logger
}

func NewEventHandler(svc *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: svc, logger: logger}
}

// eventDate accepts RFC 3339 timestamps as well as the bare dates and
// minute-precision values HTML date inputs produce.
type eventDate struct {
	time.Time
}

var eventDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

func (d *eventDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return apperror.ValidationFailed("date", "Date must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return apperror.ValidationFailed("date", "Invalid date")
}

type eventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Date        *eventDate `json:"date"`
	Location    *string    `json:"location"`
	Image       *string    `json:"image"`
}

func (req eventRequest) input() service.EventInput {
	in := service.EventInput{
		Title:       deref(req.Title),
		Description: deref(req.Description),
		Location:    deref(req.Location),
		Image:       deref(req.Image),
	}
	if req.Date != nil {
		in.Date = req.Date.Time
	}
	return in
}

func (req eventRequest) patch() model.EventPatch {
	p := model.EventPatch{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Image:       req.Image,
	}
	if req.Date != nil {
		p.Date = &req.Date.Time
	}
	return p
}

// decodeEvent reads an event body. A bad date surfaces as its own
// validation message rather than the generic "Invalid request body".
func decodeEvent(w http.ResponseWriter, r *http.Request) (eventRequest, error) {
	var req eventRequest
	err := decodeJSON(w, r, &req)
	return req, err
}

// HandleList returns events sorted by date.
//
// HTTP: GET /events?upcoming=true
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := repository.EventFilter{UpcomingOnly: r.URL.Query().Get("upcoming") == "true"}

	events, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleCreate stores a new event created by the calling admin.
//
// HTTP: POST /events (RequireAdmin) → 201 Event
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Authentication required"))
		return
	}

	req, err := decodeEvent(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	event, err := h.service.Create(r.Context(), user.ID, req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// HandleUpdate applies a partial edit.
//
// HTTP: PUT /events/{id} (RequireAdmin) → 200 Event | 404
func (h *EventHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeEvent(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	event, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// HandleDelete removes an event.
//
// HTTP: DELETE /events/{id} (RequireAdmin) → 200 {"message": "Event deleted successfully"} | 404
func (h *EventHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Event deleted successfully"})
}

// HandleRegister signs the caller up for the event.
//
// HTTP: POST /events/{id}/register (RequireAuth) → 200 Event | 400 already registered | 404
func (h *EventHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Authentication required"))
		return
	}

	event, err := h.service.Register(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}
