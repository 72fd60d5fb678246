// Package service contains the business logic layer of the application.
//
// Handlers parse HTTP and write responses; services validate input, enforce
// ownership, and orchestrate repository calls; repositories own the SQL.
// Services depend on the repository interfaces, never on the sqlite package,
// so tests inject in-memory mocks.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeboxhq/codebox/internal/apperror"
	"github.com/codeboxhq/codebox/internal/model"
	"github.com/codeboxhq/codebox/internal/repository"
)

// Validation limits. The meta limits match what search engines display:
// ~60 characters of title, ~160 of description.
const (
	MinTitleLength       = 3
	MaxTitleLength       = 100
	MinContentLength     = 10
	MaxMetaTitleLength   = 60
	MaxMetaDescLength    = 160
	MaxMetaKeywords      = 10
	DefaultSearchLimit   = 12
	MaxSearchLimit       = 50
	DefaultTrendingLimit = 6
)

// SnippetInput is the payload for creating or updating a snippet. Slug is
// optional — generated from the title when absent.
type SnippetInput struct {
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Description     string   `json:"description"`
	Content         string   `json:"content"`
	Language        string   `json:"language"`
	Status          string   `json:"status"`
	Visibility      string   `json:"visibility"`
	Tags            []string `json:"tags"`
	MetaTitle       string   `json:"metaTitle"`
	MetaDescription string   `json:"metaDescription"`
	MetaKeywords    []string `json:"metaKeywords"`
}

// SnippetService handles snippet business logic: validation, slug
// generation, ownership enforcement, and tag synchronization.
type SnippetService struct {
	snippets repository.SnippetRepository
	tags     repository.TagRepository
	logger   *slog.Logger
}

func NewSnippetService(
	snippets repository.SnippetRepository,
	tags repository.TagRepository,
	logger *slog.Logger,
) *SnippetService {
	return &SnippetService{
		snippets: snippets,
		tags:     tags,
		logger:   logger,
	}
}

// Create validates and saves a new snippet for authorID, then syncs its tags.
func (s *SnippetService) Create(ctx context.Context, authorID string, in SnippetInput) (*model.Snippet, error) {
	if authorID == "" {
		return nil, apperror.Unauthorized("login required")
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	slug := in.Slug
	if slug == "" {
		slug = GenerateSlug(in.Title, time.Now())
	}

	snippet := &model.Snippet{
		Title:           in.Title,
		Slug:            slug,
		Description:     in.Description,
		Content:         in.Content,
		Language:        in.Language,
		Status:          in.Status,
		Visibility:      in.Visibility,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
		MetaKeywords:    in.MetaKeywords,
		AuthorID:        authorID,
	}

	if err := s.snippets.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("title", in.Title),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if err := s.syncTags(ctx, snippet.ID, in.Tags); err != nil {
		// The snippet exists; failing the whole request over tag sync would
		// strand the user's content. Log and return the snippet.
		s.logger.Error("tag sync failed after create",
			slog.String("snippetID", snippet.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("slug", snippet.Slug),
		slog.String("authorID", authorID),
	)

	return snippet, nil
}

// Update validates and saves changes to a snippet the caller owns. The
// ownership check lives in the repository's WHERE clause; a non-owner gets
// NotFound.
func (s *SnippetService) Update(ctx context.Context, authorID, id string, in SnippetInput) (*model.Snippet, error) {
	if authorID == "" {
		return nil, apperror.Unauthorized("login required")
	}
	if id = strings.TrimSpace(id); id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	existing, err := s.snippets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != authorID {
		// Same response as a missing snippet — don't reveal it exists.
		return nil, apperror.NotFound("snippet", id)
	}

	slug := in.Slug
	if slug == "" {
		slug = GenerateSlug(in.Title, time.Now())
	}

	existing.Title = in.Title
	existing.Slug = slug
	existing.Description = in.Description
	existing.Content = in.Content
	existing.Language = in.Language
	existing.Status = in.Status
	existing.Visibility = in.Visibility
	existing.MetaTitle = in.MetaTitle
	existing.MetaDescription = in.MetaDescription
	existing.MetaKeywords = in.MetaKeywords

	if err := s.snippets.Update(ctx, existing, authorID); err != nil {
		s.logger.Error("failed to update snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if err := s.syncTags(ctx, id, in.Tags); err != nil {
		s.logger.Error("tag sync failed after update",
			slog.String("snippetID", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("snippet updated",
		slog.String("id", id),
		slog.String("slug", existing.Slug),
	)

	return existing, nil
}

// Delete removes a snippet the caller owns. The repository deletes where id
// AND author_id match — the application-level ownership check on top of the
// schema's cascade rules.
func (s *SnippetService) Delete(ctx context.Context, authorID, id string) error {
	if authorID == "" {
		return apperror.Unauthorized("login required")
	}
	if id = strings.TrimSpace(id); id == "" {
		return apperror.ValidationFailed("id", "snippet ID is required")
	}

	if err := s.snippets.Delete(ctx, id, authorID); err != nil {
		return err
	}

	s.logger.Info("snippet deleted", slog.String("id", id))
	return nil
}

// GetForEdit returns the raw snippet row for the edit form. Owner only.
func (s *SnippetService) GetForEdit(ctx context.Context, authorID, id string) (*model.Snippet, error) {
	snippet, err := s.snippets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if snippet.AuthorID != authorID {
		return nil, apperror.NotFound("snippet", id)
	}
	return snippet, nil
}

// syncTags upserts each submitted tag by slug and replaces the snippet's
// associations with exactly that list. Replace-all (not a diff): the
// association set always ends up matching the submitted tags, at the cost of
// O(n) writes per save. The repository runs both steps in one transaction.
func (s *SnippetService) syncTags(ctx context.Context, snippetID string, tagNames []string) error {
	tagIDs := make([]int64, 0, len(tagNames))
	seen := map[string]bool{}

	for _, name := range tagNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		slug := TagSlug(name)
		if seen[slug] {
			continue
		}
		seen[slug] = true

		tag, err := s.tags.UpsertTag(ctx, name, slug)
		if err != nil {
			return fmt.Errorf("upserting tag %q: %w", name, err)
		}
		tagIDs = append(tagIDs, tag.ID)
	}

	return s.snippets.ReplaceTags(ctx, snippetID, tagIDs)
}

func validateInput(in *SnippetInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Language = strings.TrimSpace(in.Language)
	in.Slug = strings.TrimSpace(in.Slug)

	if len(in.Title) < MinTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be at least %d characters", MinTitleLength))
	}
	if len(in.Title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if len(in.Content) < MinContentLength {
		return apperror.ValidationFailed("content", "code is too short")
	}
	if in.Language == "" {
		return apperror.ValidationFailed("language", "language is required")
	}

	switch in.Status {
	case model.StatusDraft, model.StatusPublished, model.StatusArchived:
	default:
		return apperror.ValidationFailed("status", "status must be draft, published, or archived")
	}

	switch in.Visibility {
	case model.VisibilityPublic, model.VisibilityPrivate:
	default:
		return apperror.ValidationFailed("visibility", "visibility must be public or private")
	}

	if in.Slug != "" && !validSlug(in.Slug) {
		return apperror.ValidationFailed("slug", "slug may only contain lowercase letters, digits, and hyphens")
	}

	if len(in.MetaTitle) > MaxMetaTitleLength {
		return apperror.ValidationFailed("metaTitle",
			fmt.Sprintf("meta title must be %d characters or less", MaxMetaTitleLength))
	}
	if len(in.MetaDescription) > MaxMetaDescLength {
		return apperror.ValidationFailed("metaDescription",
			fmt.Sprintf("meta description must be %d characters or less", MaxMetaDescLength))
	}
	if len(in.MetaKeywords) > MaxMetaKeywords {
		return apperror.ValidationFailed("metaKeywords",
			fmt.Sprintf("at most %d keywords", MaxMetaKeywords))
	}

	return nil
}

// GenerateSlug derives a URL slug from a title: lowercase, runs of
// non-alphanumerics collapsed to single hyphens, trimmed, plus a 4-digit
// time-derived suffix to dodge collisions between same-titled snippets.
//
// The suffix is a disambiguation heuristic, not a uniqueness guarantee —
// the slug's UNIQUE constraint is the real enforcement, surfacing as a
// Conflict that asks the user to pick another slug.
func GenerateSlug(title string, now time.Time) string {
	var b strings.Builder
	lastHyphen := true // swallow leading hyphens

	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		if isSlugRune(r) {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	base := strings.TrimSuffix(b.String(), "-")
	if base == "" {
		base = "snippet"
	}

	return fmt.Sprintf("%s-%04d", base, now.UnixMilli()%10000)
}

// TagSlug normalizes a tag name for lookup: lowercase with hyphens for
// spaces, so "React Hooks" and "react hooks" are the same tag.
func TagSlug(name string) string {
	var b strings.Builder
	lastHyphen := true

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if isSlugRune(r) {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// isSlugRune restricts slugs to ASCII [a-z0-9] — accented lowercase letters
// are folded to hyphens like any other symbol.
func isSlugRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

func validSlug(slug string) bool {
	for _, r := range slug {
		if !isSlugRune(r) && r != '-' {
			return false
		}
	}
	return len(slug) > 0
}
