package handler

import (
	"log/slog"
	"net/http"

	"github.com/codeboxhq/codebox/internal/auth"
	"github.com/codeboxhq/codebox/internal/service"
)

// SnippetHandler covers the authenticated snippet endpoints: create, edit,
// delete, and the author's dashboard views.
type SnippetHandler struct {
	snippets *service.SnippetService
	queries  *service.QueryService
	logger   *slog.Logger
}

func NewSnippetHandler(
	snippets *service.SnippetService,
	queries *service.QueryService,
	logger *slog.Logger,
) *SnippetHandler {
	return &SnippetHandler{
		snippets: snippets,
		queries:  queries,
		logger:   logger,
	}
}

// HandleCreate saves a new snippet for the authenticated user.
//
// HTTP: POST /api/snippets
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.SnippetInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snippet)
}

// HandleUpdate replaces an owned snippet's fields.
//
// HTTP: PUT /api/snippets/{id}
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.SnippetInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.Update(r.Context(), userID, r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

// HandleDelete removes an owned snippet.
//
// HTTP: DELETE /api/snippets/{id}
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.snippets.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetForEdit returns the raw snippet row for the owner's edit form.
// Unlike the public slug endpoint this includes drafts and private snippets.
//
// HTTP: GET /api/snippets/{id}/edit
func (h *SnippetHandler) HandleGetForEdit(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	snippet, err := h.snippets.GetForEdit(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

// HandleListMine returns every snippet the caller owns, for the dashboard.
//
// HTTP: GET /api/dashboard/snippets
func (h *SnippetHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	cards, err := h.queries.ListMine(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cards)
}

// HandleStats returns the caller's dashboard summary counts.
//
// HTTP: GET /api/dashboard/stats
func (h *SnippetHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	stats, err := h.queries.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
