package repository

import (
	"context"

	"flock/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository persists notifications.
type NotificationRepository interface {
	WithTx(tx *gorm.DB) NotificationRepository
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
}

type notificationRepository struct {
	base
}

// NewNotificationRepository returns a new NotificationRepository implementation.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{base: newBase(db, "notifications")}
}

func (r *notificationRepository) WithTx(tx *gorm.DB) NotificationRepository {
	return &notificationRepository{base: r.bind(tx)}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	defer r.track("create")()
	if err := r.writer(ctx).Create(n).Error; err != nil {
		return r.fail(ctx, "create", err)
	}
	return nil
}

func (r *notificationRepository) List(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	defer r.track("list")()
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", userID)
		if unreadOnly {
			db = db.Where("is_read = ?", false)
		}
		return db
	}

	var total int64
	if err := r.reader(ctx).Model(&models.Notification{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, r.fail(ctx, "list", err)
	}

	var items []models.Notification
	if err := r.reader(ctx).
		Scopes(scope).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error; err != nil {
		return nil, 0, r.fail(ctx, "list", err)
	}
	return items, total, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	defer r.track("unread_count")()
	var total int64
	if err := r.reader(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&total).Error; err != nil {
		return 0, r.fail(ctx, "unread_count", err)
	}
	return total, nil
}

// MarkRead flags one notification. Another user's notification reads as missing.
func (r *notificationRepository) MarkRead(ctx context.Context, userID, id uint) error {
	defer r.track("mark_read")()
	var n models.Notification
	if err := r.writer(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return r.lookup(ctx, "mark_read", err, "Notification", id)
	}
	if n.IsRead {
		return nil
	}
	if err := r.writer(ctx).Model(&n).UpdateColumn("is_read", true).Error; err != nil {
		return r.fail(ctx, "mark_read", err)
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	defer r.track("mark_all_read")()
	res := r.writer(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		UpdateColumn("is_read", true)
	if res.Error != nil {
		return 0, r.fail(ctx, "mark_all_read", res.Error)
	}
	return res.RowsAffected, nil
}
