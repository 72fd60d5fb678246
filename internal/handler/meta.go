package handler

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/codeboxhq/codebox/internal/apperror"
	"github.com/codeboxhq/codebox/internal/meta"
)

// MetaHandler serves the AI metadata generator. The rate limit is keyed by
// client IP and checked before any model call so a throttled client costs
// no quota.
type MetaHandler struct {
	generator *meta.Generator
	limiter   *meta.Limiter
	logger    *slog.Logger
}

func NewMetaHandler(generator *meta.Generator, limiter *meta.Limiter, logger *slog.Logger) *MetaHandler {
	return &MetaHandler{
		generator: generator,
		limiter:   limiter,
		logger:    logger,
	}
}

// metaResponse is the success envelope:
//
//	{"success": true, "data": {...}, "model_used": "gemini-2.0-flash"}
type metaResponse struct {
	Success   bool           `json:"success"`
	Data      *meta.Metadata `json:"data"`
	ModelUsed string         `json:"model_used"`
}

// HandleGenerate produces SEO metadata for a snippet draft.
//
// HTTP: POST /api/generate-meta
// Auth: Required
//
// Statuses: 400 invalid input, 429 rate limited, 503 every model
// exhausted, 500 misconfiguration or anything else.
func (h *MetaHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "metadata generation is not configured",
		})
		return
	}

	key := clientIP(r)
	if !h.limiter.Allow(key) {
		h.logger.Warn("meta generation rate limited", slog.String("client", key))
		writeError(w, apperror.RateLimited("too many generation requests, try again in a minute"))
		return
	}

	var in meta.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	md, model, err := h.generator.Generate(r.Context(), in)
	if err != nil {
		h.logger.Error("meta generation failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, metaResponse{
		Success:   true,
		Data:      md,
		ModelUsed: model,
	})
}

// clientIP prefers the first X-Forwarded-For hop (set by the reverse proxy
// in front of the server), falling back to the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
