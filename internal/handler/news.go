package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/alumni-network/internal/apperror"
	"github.com/sakif/alumni-network/internal/auth"
	"github.com/sakif/alumni-network/internal/model"
	"github.com/sakif/alumni-network/internal/repository"
	"github.com/sakif/alumni-network/internal/service"
)

// NewsHandler mirrors EventHandler for news items, without registration.
type NewsHandler struct {
	service *service.NewsService
	logger  *slog.Logger
}

func NewNewsHandler(svc *service.NewsService, logger *slog.Logger) *NewsHandler {
	return &NewsHandler{service: svc, logger: logger}
}

// HandleList returns news, newest first.
//
// HTTP: GET /news?category=achievement
func (h *NewsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := repository.NewsFilter{Category: model.Category(r.URL.Query().Get("category"))}

	items, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleCreate publishes a news item authored by the calling admin.
//
// HTTP: POST /news (RequireAdmin) → 201 News
func (h *NewsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Authentication required"))
		return
	}

	var in service.NewsInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	news, err := h.service.Create(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, news)
}

// HTTP: PUT /news/{id} (RequireAdmin) → 200 News | 404
func (h *NewsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.NewsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	news, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, news)
}

// HTTP: DELETE /news/{id} (RequireAdmin) → 200 {"message": "News deleted successfully"} | 404
func (h *NewsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "News deleted successfully"})
}
