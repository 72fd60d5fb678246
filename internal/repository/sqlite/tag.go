package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/codeboxhq/codebox/internal/model"
	"github.com/codeboxhq/codebox/internal/repository"
)

var _ repository.TagRepository = (*DB)(nil)

// UpsertTag finds a tag by slug or creates it — insert-if-absent-else-return-
// existing. A concurrent insert of the same slug loses the race to the UNIQUE
// constraint; the loser re-reads the winner's row, so both callers end up
// with the same tag.
func (db *DB) UpsertTag(ctx context.Context, name, slug string) (*model.Tag, error) {
	tag, err := db.getTagBySlug(ctx, slug)
	if err == nil {
		return tag, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: looking up tag %q: %w", slug, err)
	}

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO tags (name, slug) VALUES (?, ?)`, name, slug,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race — the tag exists now.
			tag, err := db.getTagBySlug(ctx, slug)
			if err != nil {
				return nil, fmt.Errorf("sqlite: re-reading tag %q: %w", slug, err)
			}
			return tag, nil
		}
		return nil, fmt.Errorf("sqlite: inserting tag %q: %w", slug, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading tag id: %w", err)
	}

	return &model.Tag{ID: id, Name: name, Slug: slug}, nil
}

// PopularTags returns tags ordered by how many snippets carry them,
// newest first among equals. The count is derived from snippet_tags on
// every call: association rows cascade away with their snippet, so the
// ordering tracks real usage without a counter to keep in sync.
func (db *DB) PopularTags(ctx context.Context, limit int) ([]model.Tag, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.id, t.name, t.slug, COUNT(st.snippet_id) AS usage_count
		 FROM tags t
		 JOIN snippet_tags st ON st.tag_id = t.id
		 GROUP BY t.id
		 ORDER BY usage_count DESC, t.id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing popular tags: %w", err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0, limit)
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.UsageCount); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tag rows: %w", err)
	}

	return tags, nil
}

func (db *DB) getTagBySlug(ctx context.Context, slug string) (*model.Tag, error) {
	var t model.Tag
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, slug FROM tags WHERE slug = ?`, slug,
	).Scan(&t.ID, &t.Name, &t.Slug)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
