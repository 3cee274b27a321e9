// Package service holds the business logic between HTTP handlers and repositories.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"flock/internal/middleware"
	"flock/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ClampPage applies the list defaults: limit 1..100 (20 when unset), offset >= 0.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// NotificationPublisher pushes committed notifications to live subscribers.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, n *models.Notification) error
}

// publishAll is best-effort: a failed publish is logged and the request still succeeds.
func publishAll(ctx context.Context, p NotificationPublisher, notes []*models.Notification) {
	if p == nil {
		return
	}
	for _, n := range notes {
		if err := p.PublishNotification(ctx, n); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish notification",
				slog.Uint64("notification_id", uint64(n.ID)),
				slog.Uint64("recipient_id", uint64(n.UserID)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// outcome labels an error for metrics by its AppError code.
func outcome(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}
