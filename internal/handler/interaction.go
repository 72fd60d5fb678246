package handler

import (
	"log/slog"
	"net/http"

	"github.com/codeboxhq/codebox/internal/auth"
	"github.com/codeboxhq/codebox/internal/service"
)

// InteractionHandler covers likes, bookmarks, and view counting.
type InteractionHandler struct {
	interactions *service.InteractionService
	queries      *service.QueryService
	logger       *slog.Logger
}

func NewInteractionHandler(
	interactions *service.InteractionService,
	queries *service.QueryService,
	logger *slog.Logger,
) *InteractionHandler {
	return &InteractionHandler{
		interactions: interactions,
		queries:      queries,
		logger:       logger,
	}
}

// HandleToggleLike flips the caller's like on a snippet and reports which
// way it went, so the client can update its button without a re-fetch.
//
// HTTP: POST /api/snippets/{id}/like
// Response: {"action": "liked"} or {"action": "unliked"}
func (h *InteractionHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	action, err := h.interactions.ToggleLike(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"action": action})
}

// HandleToggleBookmark flips the caller's bookmark on a snippet.
//
// HTTP: POST /api/snippets/{id}/bookmark
// Response: {"action": "added"} or {"action": "removed"}
func (h *InteractionHandler) HandleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	action, err := h.interactions.ToggleBookmark(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"action": action})
}

// HandleInteractionState returns the caller's like/bookmark flags for a
// snippet, for rendering the action buttons on page load.
//
// HTTP: GET /api/snippets/{id}/interaction
func (h *InteractionHandler) HandleInteractionState(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	state, err := h.interactions.State(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// HandleRecordView bumps a snippet's view counter. Public — anonymous views
// count.
//
// HTTP: POST /api/snippets/{id}/view
func (h *InteractionHandler) HandleRecordView(w http.ResponseWriter, r *http.Request) {
	if err := h.interactions.RecordView(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleBookmarks returns the caller's bookmarked snippets.
//
// HTTP: GET /api/bookmarks
func (h *InteractionHandler) HandleBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	cards, err := h.queries.Bookmarked(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cards)
}
