package repository

import (
	"context"
	"errors"

	"flock/internal/models"

	"gorm.io/gorm"
)

// InteractionRepository persists the edge tables: likes, retweets, replies,
// follows and bookmarks. Callers own the counters on tweets.
type InteractionRepository interface {
	WithTx(tx *gorm.DB) InteractionRepository

	CreateLike(ctx context.Context, like *models.Like) error
	DeleteLike(ctx context.Context, userID, tweetID uint) (bool, error)
	CreateRetweet(ctx context.Context, rt *models.Retweet) error
	DeleteRetweet(ctx context.Context, userID, tweetID uint) (bool, error)
	CreateBookmark(ctx context.Context, b *models.Bookmark) error
	DeleteBookmark(ctx context.Context, userID, tweetID uint) (bool, error)
	CreateFollow(ctx context.Context, f *models.Follow) error
	DeleteFollow(ctx context.Context, followerID, followingID uint) (bool, error)
	CreateReply(ctx context.Context, r *models.Reply) error

	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	FollowingIDs(ctx context.Context, followerID uint) ([]uint, error)
	LikedTweetIDs(ctx context.Context, userID uint, tweetIDs []uint) ([]uint, error)
	RetweetedTweetIDs(ctx context.Context, userID uint, tweetIDs []uint) ([]uint, error)
	BookmarkedTweetIDs(ctx context.Context, userID uint, tweetIDs []uint) ([]uint, error)
	ListBookmarks(ctx context.Context, userID uint, limit, offset int) ([]models.Bookmark, int64, error)
}

type interactionRepository struct {
	base
}

// NewInteractionRepository returns a new InteractionRepository implementation.
func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{base: newBase(db, "interactions")}
}

func (r *interactionRepository) WithTx(tx *gorm.DB) InteractionRepository {
	return &interactionRepository{base: r.bind(tx)}
}

// createEdge inserts an edge row; the unique pair index turns duplicates into a Conflict.
func (r *interactionRepository) createEdge(ctx context.Context, edge any, conflict string) error {
	if err := r.writer(ctx).Create(edge).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError(conflict)
		}
		return r.fail(ctx, "create_edge", err)
	}
	return nil
}

// deleteEdge reports whether a row was removed.
func (r *interactionRepository) deleteEdge(ctx context.Context, model any, where string, args ...any) (bool, error) {
	res := r.writer(ctx).Where(where, args...).Delete(model)
	if res.Error != nil {
		return false, r.fail(ctx, "delete_edge", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *interactionRepository) CreateLike(ctx context.Context, like *models.Like) error {
	defer r.track("create_like")()
	return r.createEdge(ctx, like, "Tweet already liked")
}

func (r *interactionRepository) DeleteLike(ctx context.Context, userID, tweetID uint) (bool, error) {
	defer r.track("delete_like")()
	return r.deleteEdge(ctx, &models.Like{}, "user_id = ? AND tweet_id = ?", userID, tweetID)
}

func (r *interactionRepository) CreateRetweet(ctx context.Context, rt *models.Retweet) error {
	defer r.track("create_retweet")()
	return r.createEdge(ctx, rt, "Tweet already retweeted")
}

func (r *interactionRepository) DeleteRetweet(ctx context.Context, userID, tweetID uint) (bool, error) {
	defer r.track("delete_retweet")()
	return r.deleteEdge(ctx, &models.Retweet{}, "user_id = ? AND original_tweet_id = ?", userID, tweetID)
}

func (r *interactionRepository) CreateBookmark(ctx context.Context, b *models.Bookmark) error {
	defer r.track("create_bookmark")()
	return r.createEdge(ctx, b, "Tweet already bookmarked")
}

func (r *interactionRepository) DeleteBookmark(ctx context.Context, userID, tweetID uint) (bool, error) {
	defer r.track("delete_bookmark")()
	return r.deleteEdge(ctx, &models.Bookmark{}, "user_id = ? AND tweet_id = ?", userID, tweetID)
}

func (r *interactionRepository) CreateFollow(ctx context.Context, f *models.Follow) error {
	defer r.track("create_follow")()
	return r.createEdge(ctx, f, "Already following this user")
}

func (r *interactionRepository) DeleteFollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	defer r.track("delete_follow")()
	return r.deleteEdge(ctx, &models.Follow{}, "follower_id = ? AND following_id = ?", followerID, followingID)
}

func (r *interactionRepository) CreateReply(ctx context.Context, reply *models.Reply) error {
	defer r.track("create_reply")()
	return r.createEdge(ctx, reply, "Tweet is already a reply")
}

func (r *interactionRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	defer r.track("is_following")()
	var follow models.Follow
	err := r.reader(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		First(&follow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, r.fail(ctx, "is_following", err)
	}
	return true, nil
}

func (r *interactionRepository) FollowingIDs(ctx context.Context, followerID uint) ([]uint, error) {
	defer r.track("following_ids")()
	var ids []uint
	if err := r.reader(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", followerID).
		Pluck("following_id", &ids).Error; err != nil {
		return nil, r.fail(ctx, "following_ids", err)
	}
	return ids, nil
}

func (r *interactionRepository) pluckTweetIDs(ctx context.Context, model any, col string, userID uint, tweetIDs []uint) ([]uint, error) {
	if len(tweetIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := r.reader(ctx).Model(model).
		Where("user_id = ? AND "+col+" IN ?", userID, tweetIDs).
		Pluck(col, &ids).Error; err != nil {
		return nil, r.fail(ctx, "pluck_tweet_ids", err)
	}
	return ids, nil
}

func (r *interactionRepository) LikedTweetIDs(ctx context.Context, userID uint, tweetIDs []uint) ([]uint, error) {
	defer r.track("liked_tweet_ids")()
	return r.pluckTweetIDs(ctx, &models.Like{}, "tweet_id", userID, tweetIDs)
}

func (r *interactionRepository) RetweetedTweetIDs(ctx context.Context, userID uint, tweetIDs []uint) ([]uint, error) {
	defer r.track("retweeted_tweet_ids")()
	return r.pluckTweetIDs(ctx, &models.Retweet{}, "original_tweet_id", userID, tweetIDs)
}

func (r *interactionRepository) BookmarkedTweetIDs(ctx context.Context, userID uint, tweetIDs []uint) ([]uint, error) {
	defer r.track("bookmarked_tweet_ids")()
	return r.pluckTweetIDs(ctx, &models.Bookmark{}, "tweet_id", userID, tweetIDs)
}

// ListBookmarks returns the user's bookmarks, newest first, with the total count.
func (r *interactionRepository) ListBookmarks(ctx context.Context, userID uint, limit, offset int) ([]models.Bookmark, int64, error) {
	defer r.track("list_bookmarks")()
	var total int64
	if err := r.reader(ctx).Model(&models.Bookmark{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, r.fail(ctx, "list_bookmarks", err)
	}

	var bookmarks []models.Bookmark
	if err := r.reader(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&bookmarks).Error; err != nil {
		return nil, 0, r.fail(ctx, "list_bookmarks", err)
	}
	return bookmarks, total, nil
}
