package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/codeboxhq/codebox/internal/apperror"
	"github.com/codeboxhq/codebox/internal/model"
	"github.com/codeboxhq/codebox/internal/repository"
)

var _ repository.NotificationRepository = (*DB)(nil)

func (db *DB) CreateNotification(ctx context.Context, userID, actorID, snippetID, typ string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, actor_id, snippet_id, type)
		 VALUES (?, ?, ?, ?, ?)`,
		xid.New().String(), userID, actorID, snippetID, typ,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating notification: %w", err)
	}
	return nil
}

// ListNotifications returns the user's most recent notifications with the
// actor profile and snippet reference joined in, newest first.
func (db *DB) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT n.id, n.type, n.read, n.created_at,
		        a.username, a.full_name, a.avatar_url,
		        s.id, s.title, s.slug
		 FROM notifications n
		 JOIN users a ON a.id = n.actor_id
		 JOIN snippets s ON s.id = n.snippet_id
		 WHERE n.user_id = ?
		 ORDER BY n.created_at DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]model.Notification, 0, limit)
	for rows.Next() {
		n := model.Notification{UserID: userID}
		if err := rows.Scan(
			&n.ID, &n.Type, &n.Read, &n.CreatedAt,
			&n.Actor.Username, &n.Actor.FullName, &n.Actor.AvatarURL,
			&n.Snippet.ID, &n.Snippet.Title, &n.Snippet.Slug,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notification rows: %w", err)
	}

	return notifications, nil
}

func (db *DB) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags one notification as read. The user_id predicate scopes the
// write to the owner — marking someone else's notification is NotFound.
func (db *DB) MarkRead(ctx context.Context, id, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking notification read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("notification", id)
	}

	return nil
}

func (db *DB) MarkAllRead(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking all notifications read: %w", err)
	}
	return nil
}

func (db *DB) DeleteNotification(ctx context.Context, id, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting notification: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("notification", id)
	}

	return nil
}
