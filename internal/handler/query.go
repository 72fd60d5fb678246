package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/codeboxhq/codebox/internal/repository"
	"github.com/codeboxhq/codebox/internal/service"
)

// QueryHandler covers the public, unauthenticated read endpoints: browse,
// search, trending, tag sidebar, and profile pages.
type QueryHandler struct {
	queries  *service.QueryService
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewQueryHandler(
	queries *service.QueryService,
	profiles *service.ProfileService,
	logger *slog.Logger,
) *QueryHandler {
	return &QueryHandler{
		queries:  queries,
		profiles: profiles,
		logger:   logger,
	}
}

// HandleSearch is the public listing with optional filters.
//
// HTTP: GET /api/snippets?query=&language=&page=&limit=
//
// The response carries the page of cards plus the total match count so the
// client can render pagination controls.
func (h *QueryHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := repository.SearchOptions{
		Query:    q.Get("query"),
		Language: q.Get("language"),
		Page:     intParam(q.Get("page"), 1),
		Limit:    intParam(q.Get("limit"), service.DefaultSearchLimit),
	}

	result, err := h.queries.Search(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleTrending returns the most-viewed published public snippets.
//
// HTTP: GET /api/snippets/trending?limit=
func (h *QueryHandler) HandleTrending(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r.URL.Query().Get("limit"), service.DefaultTrendingLimit)

	cards, err := h.queries.Trending(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cards)
}

// HandleGetBySlug returns one published snippet by its slug.
//
// HTTP: GET /api/snippets/{slug}
func (h *QueryHandler) HandleGetBySlug(w http.ResponseWriter, r *http.Request) {
	card, err := h.queries.GetBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// HandlePopularTags returns tags ordered by usage.
//
// HTTP: GET /api/tags/popular?limit=
func (h *QueryHandler) HandlePopularTags(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r.URL.Query().Get("limit"), service.DefaultPopularTagsLimit)

	tags, err := h.queries.PopularTags(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tags)
}

// HandleProfile returns a user's public profile together with their
// published snippets.
//
// HTTP: GET /api/users/{username}?page=&limit=
func (h *QueryHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	profile, err := h.profiles.GetByUsername(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	result, err := h.queries.SearchByUsername(r.Context(), username, repository.SearchOptions{
		Page:  intParam(q.Get("page"), 1),
		Limit: intParam(q.Get("limit"), service.DefaultSearchLimit),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile":  profile,
		"snippets": result.Snippets,
		"total":    result.Total,
	})
}

// intParam parses a query parameter, falling back to def when absent or
// malformed. Range clamping happens in the service layer.
func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
