package service

import (
	"context"
	"strings"

	"github.com/codeboxhq/codebox/internal/apperror"
	"github.com/codeboxhq/codebox/internal/model"
	"github.com/codeboxhq/codebox/internal/repository"
)

// DefaultNotificationLimit caps the notification dropdown. There is no
// pagination — old notifications age out of view.
const DefaultNotificationLimit = 30

// NotificationService is a thin authorization wrapper over the repository:
// every operation is scoped to the calling user.
type NotificationService struct {
	notifications repository.NotificationRepository
}

func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]model.Notification, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("login required")
	}
	return s.notifications.ListNotifications(ctx, userID, DefaultNotificationLimit)
}

// UnreadCount returns how many of the caller's notifications are unread.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, apperror.Unauthorized("login required")
	}
	return s.notifications.UnreadCount(ctx, userID)
}

// MarkRead marks one of the caller's notifications read. Another user's
// notification ID gets NotFound, not Forbidden — IDs aren't probe-able.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if userID == "" {
		return apperror.Unauthorized("login required")
	}
	if id = strings.TrimSpace(id); id == "" {
		return apperror.ValidationFailed("id", "notification ID is required")
	}
	return s.notifications.MarkRead(ctx, id, userID)
}

// MarkAllRead marks every one of the caller's notifications read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return apperror.Unauthorized("login required")
	}
	return s.notifications.MarkAllRead(ctx, userID)
}

// Delete removes one of the caller's notifications.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return apperror.Unauthorized("login required")
	}
	if id = strings.TrimSpace(id); id == "" {
		return apperror.ValidationFailed("id", "notification ID is required")
	}
	return s.notifications.DeleteNotification(ctx, id, userID)
}
