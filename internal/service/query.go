package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codeboxhq/codebox/internal/apperror"
	"github.com/codeboxhq/codebox/internal/model"
	"github.com/codeboxhq/codebox/internal/repository"
)

// DefaultPopularTagsLimit caps the popular-tags sidebar.
const DefaultPopularTagsLimit = 20

// QueryService serves the read side: public listings, search, and the
// author's dashboard views. All methods return flat SnippetCards — the
// nested join shape never escapes the service layer.
type QueryService struct {
	snippets repository.SnippetRepository
	tags     repository.TagRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

func NewQueryService(
	snippets repository.SnippetRepository,
	tags repository.TagRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *QueryService {
	return &QueryService{
		snippets: snippets,
		tags:     tags,
		users:    users,
		logger:   logger,
	}
}

// Flatten collapses the nested join shape into the flat card view:
// join rows become the Tags list, count arrays become scalars (an empty
// array means zero). Pure — no I/O.
func Flatten(j model.JoinedSnippet) model.SnippetCard {
	card := model.SnippetCard{
		Snippet:   j.Snippet,
		Author:    j.Author,
		Tags:      make([]model.TagRef, 0, len(j.DocumentTags)),
		Likes:     firstCount(j.LikeCounts),
		Bookmarks: firstCount(j.BookmarkCounts),
	}
	card.Tags = append(card.Tags, j.DocumentTags...)
	return card
}

// FlattenAll maps Flatten over a result set, always returning a non-nil
// slice so empty listings serialize as [] rather than null.
func FlattenAll(joined []model.JoinedSnippet) []model.SnippetCard {
	cards := make([]model.SnippetCard, 0, len(joined))
	for _, j := range joined {
		cards = append(cards, Flatten(j))
	}
	return cards
}

func firstCount(counts []int64) int64 {
	if len(counts) == 0 {
		return 0
	}
	return counts[0]
}

// Trending returns the most-viewed published public snippets.
func (s *QueryService) Trending(ctx context.Context, limit int) ([]model.SnippetCard, error) {
	if limit <= 0 || limit > MaxSearchLimit {
		limit = DefaultTrendingLimit
	}

	joined, err := s.snippets.Trending(ctx, limit)
	if err != nil {
		s.logger.Error("trending query failed", slog.String("error", err.Error()))
		return nil, err
	}
	return FlattenAll(joined), nil
}

// GetBySlug returns one published snippet by slug. Drafts and archived
// snippets come back NotFound, same as a missing slug.
func (s *QueryService) GetBySlug(ctx context.Context, slug string) (*model.SnippetCard, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, apperror.ValidationFailed("slug", "slug is required")
	}

	joined, err := s.snippets.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	card := Flatten(*joined)
	return &card, nil
}

// Search runs the public listing with optional text, language, and author
// filters. Page and limit are clamped here so the repository always sees
// sane values; Total counts every match regardless of the page requested.
func (s *QueryService) Search(ctx context.Context, opts repository.SearchOptions) (*model.SearchResult, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}
	if opts.Limit > MaxSearchLimit {
		opts.Limit = MaxSearchLimit
	}
	opts.Query = strings.TrimSpace(opts.Query)
	opts.Language = strings.TrimSpace(opts.Language)

	joined, total, err := s.snippets.Search(ctx, opts)
	if err != nil {
		s.logger.Error("search query failed",
			slog.String("query", opts.Query),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return &model.SearchResult{
		Snippets: FlattenAll(joined),
		Total:    total,
	}, nil
}

// SearchByUsername resolves a username to an author filter before
// searching, so profile pages reuse the same listing path.
func (s *QueryService) SearchByUsername(ctx context.Context, username string, opts repository.SearchOptions) (*model.SearchResult, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	opts.AuthorID = user.ID
	return s.Search(ctx, opts)
}

// Bookmarked returns the caller's bookmarked snippets, newest bookmark first.
func (s *QueryService) Bookmarked(ctx context.Context, userID string) ([]model.SnippetCard, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("login required")
	}

	joined, err := s.snippets.Bookmarked(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FlattenAll(joined), nil
}

// ListMine returns every snippet the caller owns, drafts and private
// included, for the dashboard.
func (s *QueryService) ListMine(ctx context.Context, userID string) ([]model.SnippetCard, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("login required")
	}

	joined, err := s.snippets.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FlattenAll(joined), nil
}

// Stats returns the caller's dashboard summary.
func (s *QueryService) Stats(ctx context.Context, userID string) (*model.DashboardStats, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("login required")
	}
	return s.snippets.Stats(ctx, userID)
}

// PopularTags returns tags ordered by usage for the browse sidebar.
func (s *QueryService) PopularTags(ctx context.Context, limit int) ([]model.Tag, error) {
	if limit <= 0 || limit > MaxSearchLimit {
		limit = DefaultPopularTagsLimit
	}
	return s.tags.PopularTags(ctx, limit)
}
