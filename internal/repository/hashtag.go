package repository

import (
	"context"

	"flock/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HashtagRepository persists hashtags, their tweet links and mentions.
type HashtagRepository interface {
	WithTx(tx *gorm.DB) HashtagRepository
	Upsert(ctx context.Context, names []string) ([]models.Hashtag, error)
	Link(ctx context.Context, tweetID uint, hashtagIDs []uint) error
	NamesForTweets(ctx context.Context, tweetIDs []uint) (map[uint][]string, error)
	Trending(ctx context.Context, limit int) ([]models.Hashtag, error)
	CreateMentions(ctx context.Context, tweetID uint, userIDs []uint) error
}

type hashtagRepository struct {
	base
}

// NewHashtagRepository returns a new HashtagRepository implementation.
func NewHashtagRepository(db *gorm.DB) HashtagRepository {
	return &hashtagRepository{base: newBase(db, "hashtags")}
}

func (r *hashtagRepository) WithTx(tx *gorm.DB) HashtagRepository {
	return &hashtagRepository{base: r.bind(tx)}
}

// Upsert creates missing hashtags and bumps usage_count on every name given.
func (r *hashtagRepository) Upsert(ctx context.Context, names []string) ([]models.Hashtag, error) {
	defer r.track("upsert")()
	if len(names) == 0 {
		return nil, nil
	}
	db := r.writer(ctx)
	for _, name := range names {
		tag := models.Hashtag{Name: name}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&tag).Error; err != nil {
			return nil, r.fail(ctx, "upsert", err)
		}
	}
	if err := db.Model(&models.Hashtag{}).
		Where("name IN ?", names).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
		return nil, r.fail(ctx, "upsert", err)
	}

	var tags []models.Hashtag
	if err := db.Where("name IN ?", names).Order("name").Find(&tags).Error; err != nil {
		return nil, r.fail(ctx, "upsert", err)
	}
	return tags, nil
}

func (r *hashtagRepository) Link(ctx context.Context, tweetID uint, hashtagIDs []uint) error {
	defer r.track("link")()
	if len(hashtagIDs) == 0 {
		return nil
	}
	rows := make([]models.TweetHashtag, 0, len(hashtagIDs))
	for _, id := range hashtagIDs {
		rows = append(rows, models.TweetHashtag{TweetID: tweetID, HashtagID: id})
	}
	if err := r.writer(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return r.fail(ctx, "link", err)
	}
	return nil
}

type tweetTag struct {
	TweetID uint
	Name    string
}

// NamesForTweets maps each tweet to its hashtag names in alphabetical order.
func (r *hashtagRepository) NamesForTweets(ctx context.Context, tweetIDs []uint) (map[uint][]string, error) {
	defer r.track("names_for_tweets")()
	out := make(map[uint][]string, len(tweetIDs))
	if len(tweetIDs) == 0 {
		return out, nil
	}
	var rows []tweetTag
	if err := r.reader(ctx).
		Table("tweet_hashtags").
		Select("tweet_hashtags.tweet_id AS tweet_id, hashtags.name AS name").
		Joins("JOIN hashtags ON hashtags.id = tweet_hashtags.hashtag_id").
		Where("tweet_hashtags.tweet_id IN ?", tweetIDs).
		Order("hashtags.name").
		Scan(&rows).Error; err != nil {
		return nil, r.fail(ctx, "names_for_tweets", err)
	}
	for _, row := range rows {
		out[row.TweetID] = append(out[row.TweetID], row.Name)
	}
	return out, nil
}

func (r *hashtagRepository) Trending(ctx context.Context, limit int) ([]models.Hashtag, error) {
	defer r.track("trending")()
	var tags []models.Hashtag
	if err := r.reader(ctx).
		Where("usage_count > 0").
		Order("usage_count DESC").
		Order("name ASC").
		Limit(limit).
		Find(&tags).Error; err != nil {
		return nil, r.fail(ctx, "trending", err)
	}
	return tags, nil
}

func (r *hashtagRepository) CreateMentions(ctx context.Context, tweetID uint, userIDs []uint) error {
	defer r.track("create_mentions")()
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]models.Mention, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, models.Mention{TweetID: tweetID, MentionedUserID: id})
	}
	if err := r.writer(ctx).Create(&rows).Error; err != nil {
		return r.fail(ctx, "create_mentions", err)
	}
	return nil
}
