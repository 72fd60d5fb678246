package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codeboxhq/codebox/internal/apperror"
	"github.com/codeboxhq/codebox/internal/model"
	"github.com/codeboxhq/codebox/internal/repository"
)

// Toggle outcomes returned to the client so it can flip its UI state
// without a follow-up read.
const (
	ActionLiked   = "liked"
	ActionUnliked = "unliked"
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// InteractionState reports whether the caller has liked/bookmarked a snippet.
type InteractionState struct {
	HasLiked      bool `json:"hasLiked"`
	HasBookmarked bool `json:"hasBookmarked"`
}

// InteractionService handles likes, bookmarks, and view counting. Likes on
// someone else's snippet also fan out a notification to its author.
type InteractionService struct {
	interactions  repository.InteractionRepository
	snippets      repository.SnippetRepository
	notifications repository.NotificationRepository
	logger        *slog.Logger
}

func NewInteractionService(
	interactions repository.InteractionRepository,
	snippets repository.SnippetRepository,
	notifications repository.NotificationRepository,
	logger *slog.Logger,
) *InteractionService {
	return &InteractionService{
		interactions:  interactions,
		snippets:      snippets,
		notifications: notifications,
		logger:        logger,
	}
}

// ToggleLike likes the snippet if the user hasn't, unlikes it if they have,
// and reports which branch ran. Liking another user's snippet notifies the
// author; notification failure never fails the like itself.
func (s *InteractionService) ToggleLike(ctx context.Context, userID, snippetID string) (string, error) {
	if userID == "" {
		return "", apperror.Unauthorized("login required")
	}
	if snippetID = strings.TrimSpace(snippetID); snippetID == "" {
		return "", apperror.ValidationFailed("id", "snippet ID is required")
	}

	liked, err := s.interactions.HasLiked(ctx, snippetID, userID)
	if err != nil {
		return "", err
	}

	if liked {
		if err := s.interactions.DeleteLike(ctx, snippetID, userID); err != nil {
			return "", err
		}
		return ActionUnliked, nil
	}

	if err := s.interactions.InsertLike(ctx, snippetID, userID); err != nil {
		return "", err
	}
	s.notifyLike(ctx, userID, snippetID)
	return ActionLiked, nil
}

// ToggleBookmark bookmarks or un-bookmarks the snippet for the user.
// Bookmarks are private — no notification.
func (s *InteractionService) ToggleBookmark(ctx context.Context, userID, snippetID string) (string, error) {
	if userID == "" {
		return "", apperror.Unauthorized("login required")
	}
	if snippetID = strings.TrimSpace(snippetID); snippetID == "" {
		return "", apperror.ValidationFailed("id", "snippet ID is required")
	}

	bookmarked, err := s.interactions.HasBookmarked(ctx, snippetID, userID)
	if err != nil {
		return "", err
	}

	if bookmarked {
		if err := s.interactions.DeleteBookmark(ctx, snippetID, userID); err != nil {
			return "", err
		}
		return ActionRemoved, nil
	}

	if err := s.interactions.InsertBookmark(ctx, snippetID, userID); err != nil {
		return "", err
	}
	return ActionAdded, nil
}

// State returns the caller's like/bookmark flags for one snippet, for
// rendering the action buttons in their correct initial state.
func (s *InteractionService) State(ctx context.Context, userID, snippetID string) (*InteractionState, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("login required")
	}

	liked, err := s.interactions.HasLiked(ctx, snippetID, userID)
	if err != nil {
		return nil, err
	}
	bookmarked, err := s.interactions.HasBookmarked(ctx, snippetID, userID)
	if err != nil {
		return nil, err
	}

	return &InteractionState{HasLiked: liked, HasBookmarked: bookmarked}, nil
}

// RecordView bumps the snippet's view counter. Anonymous callers count too;
// there is no per-viewer dedup.
func (s *InteractionService) RecordView(ctx context.Context, snippetID string) error {
	if snippetID = strings.TrimSpace(snippetID); snippetID == "" {
		return apperror.ValidationFailed("id", "snippet ID is required")
	}
	return s.snippets.IncrementView(ctx, snippetID)
}

// notifyLike writes a like notification to the snippet's author, skipping
// self-likes. Best effort: a failed lookup or insert is logged, never
// surfaced — the like already succeeded.
func (s *InteractionService) notifyLike(ctx context.Context, actorID, snippetID string) {
	snippet, err := s.snippets.GetByID(ctx, snippetID)
	if err != nil {
		s.logger.Error("notification lookup failed",
			slog.String("snippetID", snippetID),
			slog.String("error", err.Error()),
		)
		return
	}
	if snippet.AuthorID == actorID {
		return
	}

	err = s.notifications.CreateNotification(ctx, snippet.AuthorID, actorID, snippetID, model.NotificationTypeLike)
	if err != nil {
		s.logger.Error("failed to create like notification",
			slog.String("snippetID", snippetID),
			slog.String("error", err.Error()),
		)
	}
}
