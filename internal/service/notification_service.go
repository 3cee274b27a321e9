package service

import (
	"context"

	"flock/internal/models"
	"flock/internal/repository"
)

// NotificationService reads and acknowledges a user's notifications.
type NotificationService struct {
	repo repository.NotificationRepository
}

// NotificationPage is a page of notifications plus totals.
type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	TotalCount    int64                 `json:"total_count"`
	UnreadCount   int64                 `json:"unread_count"`
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) (*NotificationPage, error) {
	limit, offset = ClampPage(limit, offset)
	items, total, err := s.repo.List(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Notification{}
	}
	return &NotificationPage{Notifications: items, TotalCount: total, UnreadCount: unread}, nil
}

// MarkRead flags one notification; another user's notification is NotFound.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
