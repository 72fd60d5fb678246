// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage provides the real implementation;
// tests substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/codeboxhq/codebox/internal/model"
)

// SearchOptions filters the public snippet listing. Zero values mean
// "no filter"; Page is 1-based.
type SearchOptions struct {
	Query    string // case-insensitive substring against title OR description
	Language string // exact match
	AuthorID string // exact match
	Page     int
	Limit    int
}

// SnippetRepository covers snippet rows plus their tag associations.
//
// The read methods return the nested join shape (model.JoinedSnippet);
// flattening into view models is the service layer's job. Reads propagate
// fetch failures as errors — an empty slice always means "zero rows".
type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	// Update writes the snippet only when authorID owns it; returns
	// apperror.ErrNotFound when no row matches both id and author.
	Update(ctx context.Context, snippet *model.Snippet, authorID string) error
	Delete(ctx context.Context, id, authorID string) error

	// ReplaceTags swaps the snippet's tag associations for exactly tagIDs,
	// atomically (delete-all then insert inside one transaction).
	ReplaceTags(ctx context.Context, snippetID string, tagIDs []int64) error

	IncrementView(ctx context.Context, id string) error

	Trending(ctx context.Context, limit int) ([]model.JoinedSnippet, error)
	GetBySlug(ctx context.Context, slug string) (*model.JoinedSnippet, error)
	Search(ctx context.Context, opts SearchOptions) ([]model.JoinedSnippet, int64, error)
	Bookmarked(ctx context.Context, userID string) ([]model.JoinedSnippet, error)
	ListByAuthor(ctx context.Context, authorID string) ([]model.JoinedSnippet, error)
	Stats(ctx context.Context, authorID string) (*model.DashboardStats, error)
}

// TagRepository manages the global tag table.
type TagRepository interface {
	// UpsertTag finds a tag by slug or inserts it, returning the row either way.
	UpsertTag(ctx context.Context, name, slug string) (*model.Tag, error)
	PopularTags(ctx context.Context, limit int) ([]model.Tag, error)
}

// InteractionRepository manages likes and bookmarks, both keyed by
// (snippet_id, user_id) with existence meaning "active".
type InteractionRepository interface {
	HasLiked(ctx context.Context, snippetID, userID string) (bool, error)
	InsertLike(ctx context.Context, snippetID, userID string) error
	DeleteLike(ctx context.Context, snippetID, userID string) error

	HasBookmarked(ctx context.Context, snippetID, userID string) (bool, error)
	InsertBookmark(ctx context.Context, snippetID, userID string) error
	DeleteBookmark(ctx context.Context, snippetID, userID string) error
}

// NotificationRepository manages per-user notifications.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, userID, actorID, snippetID, typ string) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	// MarkRead and DeleteNotification are scoped to userID — a user can only
	// touch their own notifications.
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
	DeleteNotification(ctx context.Context, id, userID string) error
}

// UserRepository manages accounts and profiles.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// UpsertByGitHubID inserts on first OAuth login, refreshes profile
	// fields on subsequent logins. Fills user.ID either way.
	UpsertByGitHubID(ctx context.Context, user *model.User) error
	UpdateProfile(ctx context.Context, user *model.User) error
}
