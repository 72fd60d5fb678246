package service

// In-memory fakes for the repository interfaces. Services only see the
// interfaces, so these swap in cleanly — no database, no disk.
//
// Each mock has a forcedErr field; when set, every method returns it. That
// is how tests simulate storage failures.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"github.com/codeboxhq/codebox/internal/apperror"
	"github.com/codeboxhq/codebox/internal/model"
	"github.com/codeboxhq/codebox/internal/repository"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.DiscardHandler)
}

// joinedExtras holds the join-side data the mock attaches when serving the
// nested read shape.
type joinedExtras struct {
	tags      []model.TagRef
	likes     []int64
	bookmarks []int64
}

type mockSnippetRepo struct {
	snippets  map[string]*model.Snippet
	order     []string // insertion order, newest appended last
	tagIDs    map[string][]int64
	extras    map[string]joinedExtras
	nextID    int
	forcedErr error
}

func newMockSnippetRepo() *mockSnippetRepo {
	return &mockSnippetRepo{
		snippets: make(map[string]*model.Snippet),
		tagIDs:   make(map[string][]int64),
		extras:   make(map[string]joinedExtras),
	}
}

func (m *mockSnippetRepo) Create(_ context.Context, snippet *model.Snippet) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	for _, s := range m.snippets {
		if s.Slug == snippet.Slug {
			return apperror.Conflict("a snippet with this slug already exists")
		}
	}
	m.nextID++
	snippet.ID = fmt.Sprintf("snip-%d", m.nextID)
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	m.order = append(m.order, snippet.ID)
	return nil
}

func (m *mockSnippetRepo) GetByID(_ context.Context, id string) (*model.Snippet, error) {
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	snippet, ok := m.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	result := *snippet
	return &result, nil
}

func (m *mockSnippetRepo) Update(_ context.Context, snippet *model.Snippet, authorID string) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	existing, ok := m.snippets[snippet.ID]
	if !ok || existing.AuthorID != authorID {
		return apperror.NotFound("snippet", snippet.ID)
	}
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	return nil
}

func (m *mockSnippetRepo) Delete(_ context.Context, id, authorID string) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	existing, ok := m.snippets[id]
	if !ok || existing.AuthorID != authorID {
		return apperror.NotFound("snippet", id)
	}
	delete(m.snippets, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockSnippetRepo) ReplaceTags(_ context.Context, snippetID string, tagIDs []int64) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	m.tagIDs[snippetID] = append([]int64(nil), tagIDs...)
	return nil
}

func (m *mockSnippetRepo) IncrementView(_ context.Context, id string) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	snippet, ok := m.snippets[id]
	if !ok {
		return apperror.NotFound("snippet", id)
	}
	snippet.ViewCount++
	return nil
}

func (m *mockSnippetRepo) join(s model.Snippet) model.JoinedSnippet {
	ex := m.extras[s.ID]
	return model.JoinedSnippet{
		Snippet:        s,
		DocumentTags:   ex.tags,
		LikeCounts:     ex.likes,
		BookmarkCounts: ex.bookmarks,
	}
}

func (m *mockSnippetRepo) Trending(_ context.Context, limit int) ([]model.JoinedSnippet, error) {
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	var out []model.JoinedSnippet
	for _, id := range m.order {
		s := m.snippets[id]
		if s.Status == model.StatusPublished && s.Visibility == model.VisibilityPublic {
			out = append(out, m.join(*s))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ViewCount > out[j].ViewCount })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockSnippetRepo) GetBySlug(_ context.Context, slug string) (*model.JoinedSnippet, error) {
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	for _, s := range m.snippets {
		if s.Slug == slug && s.Status == model.StatusPublished {
			joined := m.join(*s)
			return &joined, nil
		}
	}
	return nil, apperror.NotFound("snippet", slug)
}

func (m *mockSnippetRepo) Search(_ context.Context, opts repository.SearchOptions) ([]model.JoinedSnippet, int64, error) {
	if m.forcedErr != nil {
		return nil, 0, m.forcedErr
	}
	var matched []model.JoinedSnippet
	for _, id := range m.order {
		s := m.snippets[id]
		if s.Status != model.StatusPublished || s.Visibility != model.VisibilityPublic {
			continue
		}
		if opts.Language != "" && s.Language != opts.Language {
			continue
		}
		if opts.AuthorID != "" && s.AuthorID != opts.AuthorID {
			continue
		}
		if opts.Query != "" {
			q := strings.ToLower(opts.Query)
			if !strings.Contains(strings.ToLower(s.Title), q) &&
				!strings.Contains(strings.ToLower(s.Description), q) {
				continue
			}
		}
		matched = append(matched, m.join(*s))
	}

	total := int64(len(matched))
	offset := (opts.Page - 1) * opts.Limit
	if offset >= len(matched) {
		return []model.JoinedSnippet{}, total, nil
	}
	matched = matched[offset:]
	if opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return matched, total, nil
}

func (m *mockSnippetRepo) Bookmarked(_ context.Context, userID string) ([]model.JoinedSnippet, error) {
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	return []model.JoinedSnippet{}, nil
}

func (m *mockSnippetRepo) ListByAuthor(_ context.Context, authorID string) ([]model.JoinedSnippet, error) {
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	out := []model.JoinedSnippet{}
	for _, id := range m.order {
		if s := m.snippets[id]; s.AuthorID == authorID {
			out = append(out, m.join(*s))
		}
	}
	return out, nil
}

func (m *mockSnippetRepo) Stats(_ context.Context, authorID string) (*model.DashboardStats, error) {
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	stats := &model.DashboardStats{}
	for _, s := range m.snippets {
		if s.AuthorID == authorID {
			stats.TotalSnippets++
			stats.TotalViews += s.ViewCount
		}
	}
	return stats, nil
}

var _ repository.SnippetRepository = (*mockSnippetRepo)(nil)

type mockTagRepo struct {
	tags      map[string]*model.Tag // keyed by slug
	nextID    int64
	upserts   int // total UpsertTag calls, for idempotence checks
	forcedErr error
}

func newMockTagRepo() *mockTagRepo {
	return &mockTagRepo{tags: make(map[string]*model.Tag)}
}

func (m *mockTagRepo) UpsertTag(_ context.Context, name, slug string) (*model.Tag, error) {
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	m.upserts++
	if tag, ok := m.tags[slug]; ok {
		result := *tag
		return &result, nil
	}
	m.nextID++
	tag := &model.Tag{ID: m.nextID, Name: name, Slug: slug}
	m.tags[slug] = tag
	result := *tag
	return &result, nil
}

func (m *mockTagRepo) PopularTags(_ context.Context, limit int) ([]model.Tag, error) {
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	out := make([]model.Tag, 0, len(m.tags))
	for _, tag := range m.tags {
		out = append(out, *tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UsageCount > out[j].UsageCount })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ repository.TagRepository = (*mockTagRepo)(nil)

type mockInteractionRepo struct {
	likes     map[string]map[string]bool // snippetID → userID → liked
	bookmarks map[string]map[string]bool
	forcedErr error
}

func newMockInteractionRepo() *mockInteractionRepo {
	return &mockInteractionRepo{
		likes:     make(map[string]map[string]bool),
		bookmarks: make(map[string]map[string]bool),
	}
}

func (m *mockInteractionRepo) HasLiked(_ context.Context, snippetID, userID string) (bool, error) {
	if m.forcedErr != nil {
		return false, m.forcedErr
	}
	return m.likes[snippetID][userID], nil
}

func (m *mockInteractionRepo) InsertLike(_ context.Context, snippetID, userID string) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	if m.likes[snippetID] == nil {
		m.likes[snippetID] = make(map[string]bool)
	}
	m.likes[snippetID][userID] = true
	return nil
}

func (m *mockInteractionRepo) DeleteLike(_ context.Context, snippetID, userID string) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	delete(m.likes[snippetID], userID)
	return nil
}

func (m *mockInteractionRepo) HasBookmarked(_ context.Context, snippetID, userID string) (bool, error) {
	if m.forcedErr != nil {
		return false, m.forcedErr
	}
	return m.bookmarks[snippetID][userID], nil
}

func (m *mockInteractionRepo) InsertBookmark(_ context.Context, snippetID, userID string) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	if m.bookmarks[snippetID] == nil {
		m.bookmarks[snippetID] = make(map[string]bool)
	}
	m.bookmarks[snippetID][userID] = true
	return nil
}

func (m *mockInteractionRepo) DeleteBookmark(_ context.Context, snippetID, userID string) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	delete(m.bookmarks[snippetID], userID)
	return nil
}

var _ repository.InteractionRepository = (*mockInteractionRepo)(nil)

type createdNotification struct {
	userID    string
	actorID   string
	snippetID string
	typ       string
}

type mockNotificationRepo struct {
	created   []createdNotification
	unread    int64
	forcedErr error
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) CreateNotification(_ context.Context, userID, actorID, snippetID, typ string) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	m.created = append(m.created, createdNotification{userID, actorID, snippetID, typ})
	m.unread++
	return nil
}

func (m *mockNotificationRepo) ListNotifications(_ context.Context, userID string, limit int) ([]model.Notification, error) {
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	out := []model.Notification{}
	for _, c := range m.created {
		if c.userID == userID {
			out = append(out, model.Notification{UserID: c.userID, Type: c.typ})
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) UnreadCount(_ context.Context, userID string) (int64, error) {
	if m.forcedErr != nil {
		return 0, m.forcedErr
	}
	return m.unread, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	m.unread = 0
	return nil
}

func (m *mockNotificationRepo) DeleteNotification(_ context.Context, id, userID string) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	return nil
}

var _ repository.NotificationRepository = (*mockNotificationRepo)(nil)

type mockUserRepo struct {
	users     map[string]*model.User
	nextID    int
	forcedErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.Conflict("an account with this email already exists")
		}
		if u.Username == user.Username {
			return apperror.Conflict("username is already taken")
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	user, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *user
	return &result, nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	for _, u := range m.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	if m.forcedErr != nil {
		return nil, m.forcedErr
	}
	for _, u := range m.users {
		if u.Username == username {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *mockUserRepo) UpsertByGitHubID(_ context.Context, user *model.User) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	for _, u := range m.users {
		if u.GitHubID == user.GitHubID && u.GitHubID != 0 {
			u.FullName = user.FullName
			u.AvatarURL = user.AvatarURL
			*user = *u
			return nil
		}
	}
	return m.CreateUser(context.Background(), user)
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, user *model.User) error {
	if m.forcedErr != nil {
		return m.forcedErr
	}
	for id, u := range m.users {
		if id != user.ID && u.Username == user.Username {
			return apperror.Conflict("username is already taken")
		}
	}
	existing, ok := m.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	*existing = *user
	return nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)
