package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/codeboxhq/codebox/internal/repository"
)

var _ repository.InteractionRepository = (*DB)(nil)

// Likes and bookmarks share one shape: a (snippet_id, user_id) row whose
// existence means the interaction is active. The generic helpers below keep
// the two tables from diverging.

func (db *DB) HasLiked(ctx context.Context, snippetID, userID string) (bool, error) {
	return db.interactionExists(ctx, "likes", snippetID, userID)
}

func (db *DB) InsertLike(ctx context.Context, snippetID, userID string) error {
	return db.insertInteraction(ctx, "likes", snippetID, userID)
}

func (db *DB) DeleteLike(ctx context.Context, snippetID, userID string) error {
	return db.deleteInteraction(ctx, "likes", snippetID, userID)
}

func (db *DB) HasBookmarked(ctx context.Context, snippetID, userID string) (bool, error) {
	return db.interactionExists(ctx, "bookmarks", snippetID, userID)
}

func (db *DB) InsertBookmark(ctx context.Context, snippetID, userID string) error {
	return db.insertInteraction(ctx, "bookmarks", snippetID, userID)
}

func (db *DB) DeleteBookmark(ctx context.Context, snippetID, userID string) error {
	return db.deleteInteraction(ctx, "bookmarks", snippetID, userID)
}

func (db *DB) interactionExists(ctx context.Context, table, snippetID, userID string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM `+table+` WHERE snippet_id = ? AND user_id = ?`,
		snippetID, userID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking %s: %w", table, err)
	}
	return true, nil
}

func (db *DB) insertInteraction(ctx context.Context, table, snippetID, userID string) error {
	// INSERT OR IGNORE: a concurrent double-toggle hits the composite
	// primary key and becomes a no-op instead of an error.
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO `+table+` (snippet_id, user_id) VALUES (?, ?)`,
		snippetID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting into %s: %w", table, err)
	}
	return nil
}

func (db *DB) deleteInteraction(ctx context.Context, table, snippetID, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE snippet_id = ? AND user_id = ?`,
		snippetID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting from %s: %w", table, err)
	}
	return nil
}
