package repository

import (
	"context"
	"errors"
	"time"

	"flock/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetActiveByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetActiveByUsernames(ctx context.Context, usernames []string) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
	Counts(ctx context.Context, id uint) (followers, following, tweets int64, err error)
	Followers(ctx context.Context, id uint, limit, offset int) ([]models.User, int64, error)
	Following(ctx context.Context, id uint, limit, offset int) ([]models.User, int64, error)
	SuggestionCandidates(ctx context.Context, exclude []uint, emotion string, since time.Time, limit int) ([]models.User, error)
	FollowerCounts(ctx context.Context, ids []uint) (map[uint]int64, error)
	TweetCounts(ctx context.Context, ids []uint) (map[uint]int64, error)
}

type userRepository struct {
	base
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{base: newBase(db, "users")}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{base: r.bind(tx)}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	defer r.track("get_by_id")()
	var user models.User
	if err := r.reader(ctx).First(&user, id).Error; err != nil {
		return nil, r.lookup(ctx, "get_by_id", err, "User", id)
	}
	return &user, nil
}

// GetActiveByID treats deactivated users as missing.
func (r *userRepository) GetActiveByID(ctx context.Context, id uint) (*models.User, error) {
	defer r.track("get_active_by_id")()
	var user models.User
	if err := r.reader(ctx).Where("is_active = ?", true).First(&user, id).Error; err != nil {
		return nil, r.lookup(ctx, "get_active_by_id", err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	defer r.track("get_by_ids")()
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := r.reader(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, r.fail(ctx, "get_by_ids", err)
	}
	return users, nil
}

// GetByEmail returns (nil, nil) when no user has the address.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.track("get_by_email")()
	var user models.User
	if err := r.reader(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.fail(ctx, "get_by_email", err)
	}
	return &user, nil
}

// GetByUsername returns (nil, nil) when the username is free.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	defer r.track("get_by_username")()
	var user models.User
	if err := r.reader(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.fail(ctx, "get_by_username", err)
	}
	return &user, nil
}

func (r *userRepository) GetActiveByUsernames(ctx context.Context, usernames []string) ([]models.User, error) {
	defer r.track("get_active_by_usernames")()
	if len(usernames) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := r.reader(ctx).
		Where("username IN ? AND is_active = ?", usernames, true).
		Find(&users).Error; err != nil {
		return nil, r.fail(ctx, "get_active_by_usernames", err)
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer r.track("create")()
	if err := r.writer(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Email or username already registered")
		}
		return r.fail(ctx, "create", err)
	}
	return nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	defer r.track("update_fields")()
	if len(fields) == 0 {
		return nil
	}
	res := r.writer(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return r.fail(ctx, "update_fields", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.UpdateFields(ctx, id, map[string]any{"password": hash})
}

func (r *userRepository) Counts(ctx context.Context, id uint) (followers, following, tweets int64, err error) {
	defer r.track("counts")()
	db := r.reader(ctx)
	if err = db.Model(&models.Follow{}).Where("following_id = ?", id).Count(&followers).Error; err != nil {
		return 0, 0, 0, r.fail(ctx, "counts", err)
	}
	if err = db.Model(&models.Follow{}).Where("follower_id = ?", id).Count(&following).Error; err != nil {
		return 0, 0, 0, r.fail(ctx, "counts", err)
	}
	if err = db.Model(&models.Tweet{}).Where("user_id = ?", id).Count(&tweets).Error; err != nil {
		return 0, 0, 0, r.fail(ctx, "counts", err)
	}
	return followers, following, tweets, nil
}

// Followers lists users following id, newest follow first.
func (r *userRepository) Followers(ctx context.Context, id uint, limit, offset int) ([]models.User, int64, error) {
	defer r.track("followers")()
	return r.followEdgeUsers(ctx, "follows.follower_id", "follows.following_id = ?", id, limit, offset)
}

// Following lists users id follows, newest follow first.
func (r *userRepository) Following(ctx context.Context, id uint, limit, offset int) ([]models.User, int64, error) {
	defer r.track("following")()
	return r.followEdgeUsers(ctx, "follows.following_id", "follows.follower_id = ?", id, limit, offset)
}

func (r *userRepository) followEdgeUsers(ctx context.Context, joinCol, where string, id uint, limit, offset int) ([]models.User, int64, error) {
	var total int64
	if err := r.reader(ctx).Model(&models.Follow{}).Where(where, id).Count(&total).Error; err != nil {
		return nil, 0, r.fail(ctx, "follow_edge_users", err)
	}

	var users []models.User
	if err := r.reader(ctx).
		Model(&models.User{}).
		Joins("JOIN follows ON users.id = "+joinCol).
		Where(where, id).
		Order("follows.created_at DESC").
		Order("follows.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error; err != nil {
		return nil, 0, r.fail(ctx, "follow_edge_users", err)
	}
	return users, total, nil
}

// SuggestionCandidates returns active users not in exclude, newest first. When
// emotion is set only users with a matching expression since `since` qualify.
func (r *userRepository) SuggestionCandidates(ctx context.Context, exclude []uint, emotion string, since time.Time, limit int) ([]models.User, error) {
	defer r.track("suggestion_candidates")()
	q := r.reader(ctx).Model(&models.User{}).Where("users.is_active = ?", true)
	if len(exclude) > 0 {
		q = q.Where("users.id NOT IN ?", exclude)
	}
	if emotion != "" {
		sub := r.reader(ctx).Model(&models.FacialExpression{}).
			Select("user_id").
			Where("emotion = ? AND created_at >= ?", emotion, since)
		q = q.Where("users.id IN (?)", sub)
	}

	var users []models.User
	if err := q.Order("users.created_at DESC").Order("users.id DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, r.fail(ctx, "suggestion_candidates", err)
	}
	return users, nil
}

type idCount struct {
	ID    uint
	Total int64
}

func (r *userRepository) groupCounts(ctx context.Context, model any, col string, ids []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []idCount
	if err := r.reader(ctx).Model(model).
		Select(col+" AS id, COUNT(*) AS total").
		Where(col+" IN ?", ids).
		Group(col).
		Scan(&rows).Error; err != nil {
		return nil, r.fail(ctx, "group_counts", err)
	}
	for _, row := range rows {
		out[row.ID] = row.Total
	}
	return out, nil
}

func (r *userRepository) FollowerCounts(ctx context.Context, ids []uint) (map[uint]int64, error) {
	defer r.track("follower_counts")()
	return r.groupCounts(ctx, &models.Follow{}, "following_id", ids)
}

func (r *userRepository) TweetCounts(ctx context.Context, ids []uint) (map[uint]int64, error) {
	defer r.track("tweet_counts")()
	return r.groupCounts(ctx, &models.Tweet{}, "user_id", ids)
}
