package db

import (
	"context"

	"github.com/flocknet/flock/internal/models"
)

// NotificationRepository provides notification-related database operations
type NotificationRepository struct {
	*Repository
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(repo *Repository) *NotificationRepository {
	return &NotificationRepository{Repository: repo}
}

// CreateNotification inserts a notification
func (r *NotificationRepository) CreateNotification(ctx context.Context, notif *models.Notification) error {
	return r.db.WithContext(ctx).Create(notif).Error
}

// NotificationsByAccount returns notifications for an account, newest
// first. A non-zero lastID resumes the scan below that ID.
func (r *NotificationRepository) NotificationsByAccount(ctx context.Context, accountID int64, lastID int64, limit int) ([]*models.Notification, error) {
	query := r.db.WithContext(ctx).
		Preload("Src").
		Where("dst_id = ?", accountID)
	if lastID > 0 {
		query = query.Where("id < ?", lastID)
	}

	var notifs []*models.Notification
	if err := query.Order("id DESC").Limit(limit).Find(&notifs).Error; err != nil {
		return nil, err
	}
	return notifs, nil
}

// CountUnread returns how many notifications arrived after the account's
// read marker
func (r *NotificationRepository) CountUnread(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("dst_id = ? AND created_at > (SELECT lastread_at FROM flock_accounts WHERE id = ?)", accountID, accountID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
