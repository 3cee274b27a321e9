package repository

import (
	"context"
	"fmt"

	"flock/internal/models"

	"gorm.io/gorm"
)

// TweetRepository defines persistence operations for tweets and their counters.
type TweetRepository interface {
	WithTx(tx *gorm.DB) TweetRepository
	Create(ctx context.Context, tweet *models.Tweet) error
	GetByID(ctx context.Context, id uint) (*models.Tweet, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Tweet, error)
	List(ctx context.Context, limit, offset int) ([]models.Tweet, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Tweet, int64, error)
	ListReplies(ctx context.Context, parentID uint, limit, offset int) ([]models.Tweet, int64, error)
	IncrementCounter(ctx context.Context, id uint, column string) error
	DecrementCounter(ctx context.Context, id uint, column string) error
	Delete(ctx context.Context, id uint) error
}

type tweetRepository struct {
	base
}

// NewTweetRepository returns a new TweetRepository implementation.
func NewTweetRepository(db *gorm.DB) TweetRepository {
	return &tweetRepository{base: newBase(db, "tweets")}
}

func (r *tweetRepository) WithTx(tx *gorm.DB) TweetRepository {
	return &tweetRepository{base: r.bind(tx)}
}

func (r *tweetRepository) Create(ctx context.Context, tweet *models.Tweet) error {
	defer r.track("create")()
	if err := r.writer(ctx).Create(tweet).Error; err != nil {
		return r.fail(ctx, "create", err)
	}
	return nil
}

func (r *tweetRepository) GetByID(ctx context.Context, id uint) (*models.Tweet, error) {
	defer r.track("get_by_id")()
	var tweet models.Tweet
	if err := r.reader(ctx).First(&tweet, id).Error; err != nil {
		return nil, r.lookup(ctx, "get_by_id", err, "Tweet", id)
	}
	return &tweet, nil
}

func (r *tweetRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Tweet, error) {
	defer r.track("get_by_ids")()
	if len(ids) == 0 {
		return nil, nil
	}
	var tweets []models.Tweet
	if err := r.reader(ctx).Where("id IN ?", ids).Find(&tweets).Error; err != nil {
		return nil, r.fail(ctx, "get_by_ids", err)
	}
	return tweets, nil
}

func (r *tweetRepository) List(ctx context.Context, limit, offset int) ([]models.Tweet, error) {
	defer r.track("list")()
	var tweets []models.Tweet
	if err := r.reader(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error; err != nil {
		return nil, r.fail(ctx, "list", err)
	}
	return tweets, nil
}

func (r *tweetRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Tweet, int64, error) {
	defer r.track("list_by_user")()
	var total int64
	if err := r.reader(ctx).Model(&models.Tweet{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, r.fail(ctx, "list_by_user", err)
	}

	var tweets []models.Tweet
	if err := r.reader(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error; err != nil {
		return nil, 0, r.fail(ctx, "list_by_user", err)
	}
	return tweets, total, nil
}

func (r *tweetRepository) ListReplies(ctx context.Context, parentID uint, limit, offset int) ([]models.Tweet, int64, error) {
	defer r.track("list_replies")()
	var total int64
	if err := r.reader(ctx).Model(&models.Reply{}).Where("parent_tweet_id = ?", parentID).Count(&total).Error; err != nil {
		return nil, 0, r.fail(ctx, "list_replies", err)
	}

	var tweets []models.Tweet
	if err := r.reader(ctx).
		Model(&models.Tweet{}).
		Joins("JOIN replies ON replies.tweet_id = tweets.id").
		Where("replies.parent_tweet_id = ?", parentID).
		Order("tweets.created_at DESC").
		Order("tweets.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error; err != nil {
		return nil, 0, r.fail(ctx, "list_replies", err)
	}
	return tweets, total, nil
}

func counterColumn(column string) (string, error) {
	switch column {
	case models.CounterLikes, models.CounterRetweets, models.CounterReplies:
		return column, nil
	}
	return "", fmt.Errorf("unknown tweet counter %q", column)
}

// IncrementCounter adds one to a counter column in SQL so concurrent updates never lose a write.
func (r *tweetRepository) IncrementCounter(ctx context.Context, id uint, column string) error {
	defer r.track("increment_counter")()
	col, err := counterColumn(column)
	if err != nil {
		return r.fail(ctx, "increment_counter", err)
	}
	res := r.writer(ctx).Model(&models.Tweet{}).Where("id = ?", id).
		UpdateColumn(col, gorm.Expr(col+" + 1"))
	if res.Error != nil {
		return r.fail(ctx, "increment_counter", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Tweet", id)
	}
	return nil
}

// DecrementCounter subtracts one with a floor of zero.
func (r *tweetRepository) DecrementCounter(ctx context.Context, id uint, column string) error {
	defer r.track("decrement_counter")()
	col, err := counterColumn(column)
	if err != nil {
		return r.fail(ctx, "decrement_counter", err)
	}
	if err := r.writer(ctx).Model(&models.Tweet{}).Where("id = ?", id).
		UpdateColumn(col, gorm.Expr("CASE WHEN "+col+" > 0 THEN "+col+" - 1 ELSE 0 END")).Error; err != nil {
		return r.fail(ctx, "decrement_counter", err)
	}
	return nil
}

// Delete removes a tweet with every row that references it, in one transaction.
// A tweet that was itself a reply decrements its parent's replies_count.
func (r *tweetRepository) Delete(ctx context.Context, id uint) error {
	defer r.track("delete")()
	err := r.writer(ctx).Transaction(func(tx *gorm.DB) error {
		var parentIDs []uint
		if err := tx.Model(&models.Reply{}).Where("tweet_id = ?", id).Pluck("parent_tweet_id", &parentIDs).Error; err != nil {
			return err
		}
		for _, parentID := range parentIDs {
			if err := tx.Model(&models.Tweet{}).Where("id = ?", parentID).
				UpdateColumn(models.CounterReplies, gorm.Expr("CASE WHEN replies_count > 0 THEN replies_count - 1 ELSE 0 END")).Error; err != nil {
				return err
			}
		}

		var hashtagIDs []uint
		if err := tx.Model(&models.TweetHashtag{}).Where("tweet_id = ?", id).Pluck("hashtag_id", &hashtagIDs).Error; err != nil {
			return err
		}
		if len(hashtagIDs) > 0 {
			if err := tx.Model(&models.Hashtag{}).Where("id IN ?", hashtagIDs).
				UpdateColumn("usage_count", gorm.Expr("CASE WHEN usage_count > 0 THEN usage_count - 1 ELSE 0 END")).Error; err != nil {
				return err
			}
		}

		cascades := []struct {
			model any
			where string
			args  []any
		}{
			{&models.Like{}, "tweet_id = ?", []any{id}},
			{&models.Retweet{}, "original_tweet_id = ?", []any{id}},
			{&models.Bookmark{}, "tweet_id = ?", []any{id}},
			{&models.Reply{}, "tweet_id = ? OR parent_tweet_id = ?", []any{id, id}},
			{&models.Mention{}, "tweet_id = ?", []any{id}},
			{&models.TweetHashtag{}, "tweet_id = ?", []any{id}},
			{&models.Notification{}, "tweet_id = ?", []any{id}},
		}
		for _, c := range cascades {
			if err := tx.Where(c.where, c.args...).Delete(c.model).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&models.FacialExpression{}).Where("tweet_id = ?", id).
			UpdateColumn("tweet_id", nil).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Tweet{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Tweet", id)
		}
		return nil
	})
	return r.lookup(ctx, "delete", err, "Tweet", id)
}
