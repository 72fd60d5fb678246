package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/codeboxhq/codebox/internal/apperror"
	"github.com/codeboxhq/codebox/internal/model"
	"github.com/codeboxhq/codebox/internal/repository"
)

// newTestDB opens an in-memory database — fast, isolated, destroyed when
// the connection closes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, email, username string) *model.User {
	t.Helper()
	user := &model.User{Email: email, Username: username, FullName: "Test User"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestSnippet(t *testing.T, db *DB, authorID, slug, status string) *model.Snippet {
	t.Helper()
	snippet := &model.Snippet{
		Title:      "Test Snippet",
		Slug:       slug,
		Content:    "func main() {}",
		Language:   "go",
		Status:     status,
		Visibility: model.VisibilityPublic,
		AuthorID:   authorID,
	}
	if err := db.Create(context.Background(), snippet); err != nil {
		t.Fatalf("failed to create test snippet: %v", err)
	}
	return snippet
}

func TestSnippetCreate(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@example.com", "alice")

	snippet := &model.Snippet{
		Title:        "Hello",
		Slug:         "hello-0001",
		Content:      "print('hello')",
		Language:     "python",
		Status:       model.StatusPublished,
		Visibility:   model.VisibilityPublic,
		MetaKeywords: []string{"python", "hello"},
		AuthorID:     user.ID,
	}
	if err := db.Create(context.Background(), snippet); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if snippet.ID == "" {
		t.Error("Create() did not set snippet.ID")
	}
	if snippet.CreatedAt.IsZero() {
		t.Error("Create() did not set snippet.CreatedAt")
	}

	// Round-trip, keywords included.
	got, err := db.GetByID(context.Background(), snippet.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "Hello" || got.Language != "python" {
		t.Errorf("got %+v", got)
	}
	if len(got.MetaKeywords) != 2 {
		t.Errorf("MetaKeywords = %v, want 2 entries", got.MetaKeywords)
	}
}

func TestSnippetCreate_DuplicateSlug(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@example.com", "alice")
	createTestSnippet(t, db, user.ID, "dup-slug", model.StatusPublished)

	dup := &model.Snippet{
		Title: "Another", Slug: "dup-slug", Content: "x", Language: "go",
		Status: model.StatusDraft, Visibility: model.VisibilityPublic, AuthorID: user.ID,
	}
	err := db.Create(context.Background(), dup)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestSnippetUpdate_OwnershipInWhereClause(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "a@example.com", "alice")
	bob := createTestUser(t, db, "b@example.com", "bob")
	snippet := createTestSnippet(t, db, alice.ID, "owned-0001", model.StatusPublished)

	snippet.Title = "Hacked"
	if err := db.Update(context.Background(), snippet, bob.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("non-owner update error = %v, want ErrNotFound", err)
	}

	snippet.Title = "Renamed"
	if err := db.Update(context.Background(), snippet, alice.ID); err != nil {
		t.Fatalf("owner Update() error = %v", err)
	}
	got, _ := db.GetByID(context.Background(), snippet.ID)
	if got.Title != "Renamed" {
		t.Errorf("Title = %q, want Renamed", got.Title)
	}
}

func TestSnippetDelete_Cascades(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "a@example.com", "alice")
	bob := createTestUser(t, db, "b@example.com", "bob")
	snippet := createTestSnippet(t, db, alice.ID, "cascade-0001", model.StatusPublished)

	if err := db.InsertLike(context.Background(), snippet.ID, bob.ID); err != nil {
		t.Fatalf("InsertLike() error = %v", err)
	}

	if err := db.Delete(context.Background(), snippet.ID, bob.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("non-owner delete error = %v, want ErrNotFound", err)
	}
	if err := db.Delete(context.Background(), snippet.ID, alice.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// The like row went with the snippet.
	liked, err := db.HasLiked(context.Background(), snippet.ID, bob.ID)
	if err != nil {
		t.Fatalf("HasLiked() error = %v", err)
	}
	if liked {
		t.Error("like row survived the snippet delete")
	}
}

func TestReplaceTags(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@example.com", "alice")
	snippet := createTestSnippet(t, db, user.ID, "tagged-0001", model.StatusPublished)

	goTag, err := db.UpsertTag(context.Background(), "Go", "go")
	if err != nil {
		t.Fatalf("UpsertTag() error = %v", err)
	}
	rustTag, _ := db.UpsertTag(context.Background(), "Rust", "rust")

	if err := db.ReplaceTags(context.Background(), snippet.ID, []int64{goTag.ID, rustTag.ID}); err != nil {
		t.Fatalf("ReplaceTags() error = %v", err)
	}
	if err := db.ReplaceTags(context.Background(), snippet.ID, []int64{rustTag.ID}); err != nil {
		t.Fatalf("second ReplaceTags() error = %v", err)
	}

	joined, err := db.GetBySlug(context.Background(), "tagged-0001")
	if err != nil {
		t.Fatalf("GetBySlug() error = %v", err)
	}
	if len(joined.DocumentTags) != 1 || joined.DocumentTags[0].Slug != "rust" {
		t.Errorf("DocumentTags = %v, want [rust]", joined.DocumentTags)
	}
}

func TestIncrementView_Atomic(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@example.com", "alice")
	snippet := createTestSnippet(t, db, user.ID, "viewed-0001", model.StatusPublished)

	for i := 0; i < 5; i++ {
		if err := db.IncrementView(context.Background(), snippet.ID); err != nil {
			t.Fatalf("IncrementView() error = %v", err)
		}
	}

	got, _ := db.GetByID(context.Background(), snippet.ID)
	if got.ViewCount != 5 {
		t.Errorf("ViewCount = %d, want 5", got.ViewCount)
	}
}

func TestGetBySlug_UnpublishedHidden(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@example.com", "alice")
	createTestSnippet(t, db, user.ID, "draft-0001", model.StatusDraft)

	_, err := db.GetBySlug(context.Background(), "draft-0001")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound — drafts must look missing", err)
	}
}

func TestGetBySlug_JoinsAuthorAndCounts(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "a@example.com", "alice")
	bob := createTestUser(t, db, "b@example.com", "bob")
	snippet := createTestSnippet(t, db, alice.ID, "joined-0001", model.StatusPublished)

	db.InsertLike(context.Background(), snippet.ID, bob.ID)
	db.InsertBookmark(context.Background(), snippet.ID, bob.ID)

	joined, err := db.GetBySlug(context.Background(), "joined-0001")
	if err != nil {
		t.Fatalf("GetBySlug() error = %v", err)
	}
	if joined.Author == nil || joined.Author.Username != "alice" {
		t.Errorf("Author = %v, want alice", joined.Author)
	}
	if len(joined.LikeCounts) != 1 || joined.LikeCounts[0] != 1 {
		t.Errorf("LikeCounts = %v, want [1]", joined.LikeCounts)
	}
	if len(joined.BookmarkCounts) != 1 || joined.BookmarkCounts[0] != 1 {
		t.Errorf("BookmarkCounts = %v, want [1]", joined.BookmarkCounts)
	}
}

func TestGetBySlug_NoInteractionsMeansEmptyArrays(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@example.com", "alice")
	createTestSnippet(t, db, user.ID, "lonely-0001", model.StatusPublished)

	joined, err := db.GetBySlug(context.Background(), "lonely-0001")
	if err != nil {
		t.Fatalf("GetBySlug() error = %v", err)
	}
	if len(joined.LikeCounts) != 0 || len(joined.BookmarkCounts) != 0 {
		t.Errorf("counts = %v/%v, want empty arrays", joined.LikeCounts, joined.BookmarkCounts)
	}
	if joined.DocumentTags == nil {
		t.Error("DocumentTags should be an empty slice, not nil")
	}
}

func TestSearch_FiltersAndCounts(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@example.com", "alice")

	for i := 0; i < 3; i++ {
		snippet := &model.Snippet{
			Title: fmt.Sprintf("Binary search %d", i), Slug: fmt.Sprintf("bs-%d", i),
			Content: "x", Language: "go",
			Status: model.StatusPublished, Visibility: model.VisibilityPublic, AuthorID: user.ID,
		}
		if err := db.Create(context.Background(), snippet); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}
	// Draft and private rows never appear in search.
	createTestSnippet(t, db, user.ID, "hidden-draft", model.StatusDraft)

	results, total, err := db.Search(context.Background(), repository.SearchOptions{
		Query: "BINARY", Page: 1, Limit: 2,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("page has %d rows, want 2", len(results))
	}
	if total != 3 {
		t.Errorf("total = %d, want 3 — total must ignore paging", total)
	}

	_, total, err = db.Search(context.Background(), repository.SearchOptions{
		Language: "rust", Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0 for unmatched language", total)
	}
}

func TestBookmarked(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "a@example.com", "alice")
	bob := createTestUser(t, db, "b@example.com", "bob")
	s1 := createTestSnippet(t, db, alice.ID, "bm-0001", model.StatusPublished)
	createTestSnippet(t, db, alice.ID, "bm-0002", model.StatusPublished)

	db.InsertBookmark(context.Background(), s1.ID, bob.ID)

	saved, err := db.Bookmarked(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("Bookmarked() error = %v", err)
	}
	if len(saved) != 1 || saved[0].Slug != "bm-0001" {
		t.Errorf("Bookmarked = %v, want [bm-0001]", saved)
	}
}

func TestStats(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "a@example.com", "alice")
	bob := createTestUser(t, db, "b@example.com", "bob")

	s1 := createTestSnippet(t, db, alice.ID, "st-0001", model.StatusPublished)
	createTestSnippet(t, db, alice.ID, "st-0002", model.StatusDraft)
	db.IncrementView(context.Background(), s1.ID)
	db.IncrementView(context.Background(), s1.ID)
	db.InsertLike(context.Background(), s1.ID, bob.ID)

	stats, err := db.Stats(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalSnippets != 2 || stats.TotalViews != 2 || stats.TotalLikes != 1 {
		t.Errorf("stats = %+v, want 2 snippets / 2 views / 1 like", stats)
	}
}

func TestUpsertTag_ReusesExistingRow(t *testing.T) {
	db := newTestDB(t)

	first, err := db.UpsertTag(context.Background(), "React Hooks", "react-hooks")
	if err != nil {
		t.Fatalf("UpsertTag() error = %v", err)
	}
	second, err := db.UpsertTag(context.Background(), "react hooks", "react-hooks")
	if err != nil {
		t.Fatalf("second UpsertTag() error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("IDs differ: %d vs %d — upsert must reuse the row", first.ID, second.ID)
	}
}

func TestInteractions_InsertIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "a@example.com", "alice")
	bob := createTestUser(t, db, "b@example.com", "bob")
	snippet := createTestSnippet(t, db, alice.ID, "idem-0001", model.StatusPublished)

	// INSERT OR IGNORE — a double insert is not an error and not a second row.
	db.InsertLike(context.Background(), snippet.ID, bob.ID)
	if err := db.InsertLike(context.Background(), snippet.ID, bob.ID); err != nil {
		t.Fatalf("duplicate InsertLike() error = %v", err)
	}

	joined, _ := db.GetBySlug(context.Background(), "idem-0001")
	if len(joined.LikeCounts) != 1 || joined.LikeCounts[0] != 1 {
		t.Errorf("LikeCounts = %v, want [1]", joined.LikeCounts)
	}

	if err := db.DeleteLike(context.Background(), snippet.ID, bob.ID); err != nil {
		t.Fatalf("DeleteLike() error = %v", err)
	}
	liked, _ := db.HasLiked(context.Background(), snippet.ID, bob.ID)
	if liked {
		t.Error("HasLiked = true after delete")
	}
}
