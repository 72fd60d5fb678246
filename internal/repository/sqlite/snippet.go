package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/codeboxhq/codebox/internal/apperror"
	"github.com/codeboxhq/codebox/internal/model"
	"github.com/codeboxhq/codebox/internal/repository"
)

// Compile-time check that *DB implements repository.SnippetRepository.
var _ repository.SnippetRepository = (*DB)(nil)

// snippetColumns is the SELECT list shared by every snippet read. The author
// profile is joined in the same query; tags and counts are fetched per page
// in loadJoined (three queries total regardless of page size).
const snippetColumns = `
	s.id, s.title, s.slug, s.description, s.content, s.language,
	s.status, s.visibility, s.view_count,
	s.meta_title, s.meta_description, s.meta_keywords,
	s.author_id, s.created_at, s.updated_at,
	u.username, u.full_name, u.avatar_url`

// keywordsToJSON serializes the meta keyword list for the TEXT column.
// nil and empty both store "[]" so reads never see NULL.
func keywordsToJSON(keywords []string) (string, error) {
	if len(keywords) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(keywords)
	if err != nil {
		return "", fmt.Errorf("marshaling meta keywords: %w", err)
	}
	return string(b), nil
}

func keywordsFromJSON(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var keywords []string
	if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
		return nil, fmt.Errorf("unmarshaling meta keywords: %w", err)
	}
	return keywords, nil
}

// Create inserts a new snippet. The snippet's ID and timestamps are
// generated here and written back through the pointer.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()

	now := time.Now()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	keywords, err := keywordsToJSON(snippet.MetaKeywords)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO snippets (
			id, title, slug, description, content, language,
			status, visibility, view_count,
			meta_title, meta_description, meta_keywords,
			author_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.Title,
		snippet.Slug,
		snippet.Description,
		snippet.Content,
		snippet.Language,
		snippet.Status,
		snippet.Visibility,
		snippet.MetaTitle,
		snippet.MetaDescription,
		keywords,
		snippet.AuthorID,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("slug %q is already in use", snippet.Slug))
		}
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	return nil
}

// GetByID retrieves a bare snippet row without joins. Used by the mutation
// path (ownership checks, edit form) — listings use the joined reads below.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	var s model.Snippet
	var keywords string

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, slug, description, content, language,
		        status, visibility, view_count,
		        meta_title, meta_description, meta_keywords,
		        author_id, created_at, updated_at
		 FROM snippets WHERE id = ?`,
		id,
	).Scan(
		&s.ID, &s.Title, &s.Slug, &s.Description, &s.Content, &s.Language,
		&s.Status, &s.Visibility, &s.ViewCount,
		&s.MetaTitle, &s.MetaDescription, &keywords,
		&s.AuthorID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	if s.MetaKeywords, err = keywordsFromJSON(keywords); err != nil {
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	return &s, nil
}

// Update writes the snippet's mutable fields where both id AND author_id
// match. The author_id predicate is the ownership check — a non-owner gets
// the same NotFound as a missing row, leaking nothing.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet, authorID string) error {
	snippet.UpdatedAt = time.Now()

	keywords, err := keywordsToJSON(snippet.MetaKeywords)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET title = ?, slug = ?, description = ?, content = ?, language = ?,
		     status = ?, visibility = ?,
		     meta_title = ?, meta_description = ?, meta_keywords = ?,
		     updated_at = ?
		 WHERE id = ? AND author_id = ?`,
		snippet.Title,
		snippet.Slug,
		snippet.Description,
		snippet.Content,
		snippet.Language,
		snippet.Status,
		snippet.Visibility,
		snippet.MetaTitle,
		snippet.MetaDescription,
		keywords,
		snippet.UpdatedAt,
		snippet.ID,
		authorID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("slug %q is already in use", snippet.Slug))
		}
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}

	return nil
}

// Delete removes a snippet where id AND author_id match. The schema cascades
// the delete to snippet_tags, likes, bookmarks, and notifications.
func (db *DB) Delete(ctx context.Context, id, authorID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE id = ? AND author_id = ?`,
		id, authorID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", id)
	}

	return nil
}

// ReplaceTags swaps the snippet's tag associations for exactly tagIDs.
//
// Delete-all-then-insert guarantees the association set always matches the
// submitted list. Both steps run inside one transaction so a crash can never
// leave the snippet with its old associations half-removed.
func (db *DB) ReplaceTags(ctx context.Context, snippetID string, tagIDs []int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning tag replace: %w", err)
	}
	// Rollback is a no-op after a successful Commit.
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snippet_tags WHERE snippet_id = ?`, snippetID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing snippet tags: %w", err)
	}

	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snippet_tags (snippet_id, tag_id) VALUES (?, ?)`,
			snippetID, tagID,
		); err != nil {
			return fmt.Errorf("sqlite: inserting snippet tag %d: %w", tagID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing tag replace: %w", err)
	}

	return nil
}

// IncrementView bumps the view counter by one. A single atomic UPDATE —
// concurrent views never lose increments. A missing snippet is a silent
// no-op: view counting is best-effort.
func (db *DB) IncrementView(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE snippets SET view_count = view_count + 1 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing view count for %s: %w", id, err)
	}
	return nil
}

// Trending returns published, public snippets ordered by view count.
func (db *DB) Trending(ctx context.Context, limit int) ([]model.JoinedSnippet, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+`
		 FROM snippets s
		 JOIN users u ON u.id = s.author_id
		 WHERE s.status = 'published' AND s.visibility = 'public'
		 ORDER BY s.view_count DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying trending snippets: %w", err)
	}
	defer rows.Close()

	return db.scanJoined(ctx, rows)
}

// GetBySlug returns one published snippet by its unique slug.
// Unpublished and missing both map to NotFound — callers can't tell them
// apart, so a draft's existence is never leaked through this path.
func (db *DB) GetBySlug(ctx context.Context, slug string) (*model.JoinedSnippet, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+`
		 FROM snippets s
		 JOIN users u ON u.id = s.author_id
		 WHERE s.slug = ? AND s.status = 'published'`,
		slug,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying snippet by slug: %w", err)
	}
	defer rows.Close()

	joined, err := db.scanJoined(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(joined) == 0 {
		return nil, apperror.NotFound("snippet", slug)
	}
	return &joined[0], nil
}

// Search returns one page of the public listing plus the exact total count.
//
// Pagination: offset = (page-1)*limit, i.e. page 1/limit 12 covers rows
// [0,11], page 2 covers [12,23]. The total is computed with an identical
// WHERE clause and is independent of page and limit.
func (db *DB) Search(ctx context.Context, opts repository.SearchOptions) ([]model.JoinedSnippet, int64, error) {
	where := []string{"s.status = 'published'", "s.visibility = 'public'"}
	args := []any{}

	if opts.AuthorID != "" {
		where = append(where, "s.author_id = ?")
		args = append(args, opts.AuthorID)
	}
	if opts.Language != "" && opts.Language != "all" {
		where = append(where, "s.language = ?")
		args = append(args, opts.Language)
	}
	if opts.Query != "" {
		// Case-insensitive substring against title OR description.
		where = append(where, "(LOWER(s.title) LIKE ? OR LOWER(s.description) LIKE ?)")
		pattern := "%" + strings.ToLower(opts.Query) + "%"
		args = append(args, pattern, pattern)
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	countArgs := append([]any{}, args...)
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snippets s WHERE `+whereClause, countArgs...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting search results: %w", err)
	}

	offset := (opts.Page - 1) * opts.Limit
	args = append(args, opts.Limit, offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+`
		 FROM snippets s
		 JOIN users u ON u.id = s.author_id
		 WHERE `+whereClause+`
		 ORDER BY s.created_at DESC
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: searching snippets: %w", err)
	}
	defer rows.Close()

	joined, err := db.scanJoined(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return joined, total, nil
}

// Bookmarked joins through the bookmarks table to the snippets a user has
// saved, newest bookmark first (not newest snippet).
func (db *DB) Bookmarked(ctx context.Context, userID string) ([]model.JoinedSnippet, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+`
		 FROM bookmarks b
		 JOIN snippets s ON s.id = b.snippet_id
		 JOIN users u ON u.id = s.author_id
		 WHERE b.user_id = ?
		 ORDER BY b.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying bookmarked snippets: %w", err)
	}
	defer rows.Close()

	return db.scanJoined(ctx, rows)
}

// ListByAuthor returns every snippet a user owns, drafts and archived
// included, most recently edited first. Dashboard use only — the caller is
// the owner.
func (db *DB) ListByAuthor(ctx context.Context, authorID string) ([]model.JoinedSnippet, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+`
		 FROM snippets s
		 JOIN users u ON u.id = s.author_id
		 WHERE s.author_id = ?
		 ORDER BY s.updated_at DESC`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing author snippets: %w", err)
	}
	defer rows.Close()

	return db.scanJoined(ctx, rows)
}

// Stats aggregates a user's dashboard numbers in two queries.
func (db *DB) Stats(ctx context.Context, authorID string) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{}

	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(view_count), 0)
		 FROM snippets WHERE author_id = ?`,
		authorID,
	).Scan(&stats.TotalSnippets, &stats.TotalViews)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating snippet stats: %w", err)
	}

	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM likes l
		 JOIN snippets s ON s.id = l.snippet_id
		 WHERE s.author_id = ?`,
		authorID,
	).Scan(&stats.TotalLikes)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating like stats: %w", err)
	}

	return stats, nil
}

// scanJoined drains the base rows, then attaches the tag join rows and the
// aggregate count arrays for the whole page in three fixed queries. The
// result is the nested join shape; flattening happens in the service layer.
func (db *DB) scanJoined(ctx context.Context, rows *sql.Rows) ([]model.JoinedSnippet, error) {
	joined := []model.JoinedSnippet{}
	index := map[string]int{}

	for rows.Next() {
		var j model.JoinedSnippet
		var author model.Author
		var keywords string

		if err := rows.Scan(
			&j.ID, &j.Title, &j.Slug, &j.Description, &j.Content, &j.Language,
			&j.Status, &j.Visibility, &j.ViewCount,
			&j.MetaTitle, &j.MetaDescription, &keywords,
			&j.AuthorID, &j.CreatedAt, &j.UpdatedAt,
			&author.Username, &author.FullName, &author.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}

		var err error
		if j.MetaKeywords, err = keywordsFromJSON(keywords); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}

		j.Author = &author
		j.DocumentTags = []model.TagRef{}
		index[j.ID] = len(joined)
		joined = append(joined, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippet rows: %w", err)
	}
	if len(joined) == 0 {
		return joined, nil
	}

	ids := make([]any, 0, len(joined))
	for _, j := range joined {
		ids = append(ids, j.ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	tagRows, err := db.conn.QueryContext(ctx,
		`SELECT st.snippet_id, t.name, t.slug
		 FROM snippet_tags st
		 JOIN tags t ON t.id = st.tag_id
		 WHERE st.snippet_id IN (`+placeholders+`)
		 ORDER BY t.slug`,
		ids...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying snippet tags: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var snippetID string
		var ref model.TagRef
		if err := tagRows.Scan(&snippetID, &ref.Name, &ref.Slug); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		if i, ok := index[snippetID]; ok {
			joined[i].DocumentTags = append(joined[i].DocumentTags, ref)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tag rows: %w", err)
	}

	if err := db.attachCounts(ctx, "likes", placeholders, ids, index, joined, true); err != nil {
		return nil, err
	}
	if err := db.attachCounts(ctx, "bookmarks", placeholders, ids, index, joined, false); err != nil {
		return nil, err
	}

	return joined, nil
}

// attachCounts fills the per-snippet count arrays from a GROUP BY over the
// given interaction table. Snippets with zero rows keep an empty array —
// the flatten step collapses that to 0.
func (db *DB) attachCounts(ctx context.Context, table, placeholders string, ids []any, index map[string]int, joined []model.JoinedSnippet, likes bool) error {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT snippet_id, COUNT(*)
		 FROM `+table+`
		 WHERE snippet_id IN (`+placeholders+`)
		 GROUP BY snippet_id`,
		ids...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: counting %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var snippetID string
		var count int64
		if err := rows.Scan(&snippetID, &count); err != nil {
			return fmt.Errorf("sqlite: scanning %s count: %w", table, err)
		}
		i, ok := index[snippetID]
		if !ok {
			continue
		}
		if likes {
			joined[i].LikeCounts = append(joined[i].LikeCounts, count)
		} else {
			joined[i].BookmarkCounts = append(joined[i].BookmarkCounts, count)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating %s counts: %w", table, err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite surfaces constraint errors with this text; matching the
// message avoids importing the driver's error types directly.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
