package repository

import (
	"context"
	"errors"
	"time"

	"flock/internal/models"

	"gorm.io/gorm"
)

// ExpressionRepository persists classified facial expressions.
type ExpressionRepository interface {
	WithTx(tx *gorm.DB) ExpressionRepository
	Create(ctx context.Context, e *models.FacialExpression) error
	History(ctx context.Context, userID uint, limit int) ([]models.FacialExpression, error)
	Latest(ctx context.Context, userID uint) (*models.FacialExpression, error)
	LatestSince(ctx context.Context, userIDs []uint, since time.Time) (map[uint]models.FacialExpression, error)
}

type expressionRepository struct {
	base
}

// NewExpressionRepository returns a new ExpressionRepository implementation.
func NewExpressionRepository(db *gorm.DB) ExpressionRepository {
	return &expressionRepository{base: newBase(db, "facial_expressions")}
}

func (r *expressionRepository) WithTx(tx *gorm.DB) ExpressionRepository {
	return &expressionRepository{base: r.bind(tx)}
}

func (r *expressionRepository) Create(ctx context.Context, e *models.FacialExpression) error {
	defer r.track("create")()
	if err := r.writer(ctx).Create(e).Error; err != nil {
		return r.fail(ctx, "create", err)
	}
	return nil
}

// History returns the newest expressions first.
func (r *expressionRepository) History(ctx context.Context, userID uint, limit int) ([]models.FacialExpression, error) {
	defer r.track("history")()
	var rows []models.FacialExpression
	if err := r.reader(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.fail(ctx, "history", err)
	}
	return rows, nil
}

// Latest returns (nil, nil) when the user has no expressions.
func (r *expressionRepository) Latest(ctx context.Context, userID uint) (*models.FacialExpression, error) {
	defer r.track("latest")()
	var e models.FacialExpression
	err := r.reader(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(ctx, "latest", err)
	}
	return &e, nil
}

// LatestSince returns each user's most recent expression recorded at or after since.
func (r *expressionRepository) LatestSince(ctx context.Context, userIDs []uint, since time.Time) (map[uint]models.FacialExpression, error) {
	defer r.track("latest_since")()
	out := make(map[uint]models.FacialExpression, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []models.FacialExpression
	if err := r.reader(ctx).
		Where("user_id IN ? AND created_at >= ?", userIDs, since).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, r.fail(ctx, "latest_since", err)
	}
	for _, row := range rows {
		if _, seen := out[row.UserID]; !seen {
			out[row.UserID] = row
		}
	}
	return out, nil
}
