package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"flock/internal/cache"
	"flock/internal/models"
	"flock/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// TweetService handles tweet creation, deletion and the viewer-annotated read paths.
type TweetService struct {
	db            *gorm.DB
	users         repository.UserRepository
	tweets        repository.TweetRepository
	edges         repository.InteractionRepository
	notifications repository.NotificationRepository
	hashtags      repository.HashtagRepository
	publisher     NotificationPublisher
	redis         *redis.Client
}

type CreateTweetInput struct {
	UserID   uint
	Content  string
	ImageURL string
	VideoURL string
}

// TweetPage is a page of tweets with the unpaged total.
type TweetPage struct {
	Tweets     []models.Tweet
	TotalCount int64
	HasMore    bool
}

// BookmarkPage is a page of bookmarks with the unpaged total.
type BookmarkPage struct {
	Bookmarks  []models.BookmarkEntry
	TotalCount int64
}

// NewTweetService returns a new TweetService.
func NewTweetService(
	db *gorm.DB,
	users repository.UserRepository,
	tweets repository.TweetRepository,
	edges repository.InteractionRepository,
	notifications repository.NotificationRepository,
	hashtags repository.HashtagRepository,
	publisher NotificationPublisher,
	rdb *redis.Client,
) *TweetService {
	return &TweetService{
		db:            db,
		users:         users,
		tweets:        tweets,
		edges:         edges,
		notifications: notifications,
		hashtags:      hashtags,
		publisher:     publisher,
		redis:         rdb,
	}
}

func validateTweetContent(content string) error {
	if content == "" {
		return models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > models.MaxTweetLength {
		return models.NewValidationError("Content must be at most 280 characters")
	}
	return nil
}

// Create stores a tweet and processes its hashtags and mentions atomically.
func (s *TweetService) Create(ctx context.Context, in CreateTweetInput) (*models.Tweet, error) {
	content := strings.TrimSpace(in.Content)
	if err := validateTweetContent(content); err != nil {
		return nil, err
	}

	var (
		tweet *models.Tweet
		notes []*models.Notification
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		author, err := users.GetByID(ctx, in.UserID)
		if err != nil {
			return err
		}
		tweet = &models.Tweet{
			UserID:   in.UserID,
			Content:  content,
			ImageURL: strings.TrimSpace(in.ImageURL),
			VideoURL: strings.TrimSpace(in.VideoURL),
		}
		if err := s.tweets.WithTx(tx).Create(ctx, tweet); err != nil {
			return err
		}
		t := tagger{users: users, hashtags: s.hashtags.WithTx(tx), notifications: s.notifications.WithTx(tx)}
		names, mentions, err := t.apply(ctx, tweet, author)
		if err != nil {
			return err
		}
		tweet.Author = models.AuthorOf(author)
		tweet.Hashtags = names
		notes = mentions
		return nil
	})
	if err != nil {
		return nil, err
	}

	if tweet.Hashtags == nil {
		tweet.Hashtags = []string{}
	}
	cache.InvalidateProfiles(ctx, s.redis, in.UserID)
	publishAll(ctx, s.publisher, notes)
	return tweet, nil
}

// Get returns one tweet annotated for the viewer (0 means anonymous).
func (s *TweetService) Get(ctx context.Context, viewerID, id uint) (*models.Tweet, error) {
	tweet, err := s.tweets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	list := []models.Tweet{*tweet}
	if err := s.annotate(ctx, viewerID, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List is the global timeline, newest first.
func (s *TweetService) List(ctx context.Context, viewerID uint, limit, offset int) ([]models.Tweet, error) {
	limit, offset = ClampPage(limit, offset)
	tweets, err := s.tweets.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.annotate(ctx, viewerID, tweets); err != nil {
		return nil, err
	}
	return tweets, nil
}

// Delete removes a tweet the actor owns, with all of its dependent rows.
func (s *TweetService) Delete(ctx context.Context, actorID, id uint) error {
	tweet, err := s.tweets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if tweet.UserID != actorID {
		return models.NewForbiddenError("Not authorized to delete this tweet")
	}
	if err := s.tweets.Delete(ctx, id); err != nil {
		return err
	}
	cache.InvalidateProfiles(ctx, s.redis, actorID)
	return nil
}

// Replies lists the direct replies to a tweet, newest first.
func (s *TweetService) Replies(ctx context.Context, viewerID, id uint, limit, offset int) (*TweetPage, error) {
	limit, offset = ClampPage(limit, offset)
	if _, err := s.tweets.GetByID(ctx, id); err != nil {
		return nil, err
	}
	tweets, total, err := s.tweets.ListReplies(ctx, id, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.annotate(ctx, viewerID, tweets); err != nil {
		return nil, err
	}
	return &TweetPage{Tweets: tweets, TotalCount: total, HasMore: int64(offset+limit) < total}, nil
}

// UserTweets lists a user's tweets with has_more = offset+limit < total.
func (s *TweetService) UserTweets(ctx context.Context, viewerID, userID uint, limit, offset int) (*TweetPage, error) {
	limit, offset = ClampPage(limit, offset)
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	tweets, total, err := s.tweets.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.annotate(ctx, viewerID, tweets); err != nil {
		return nil, err
	}
	return &TweetPage{Tweets: tweets, TotalCount: total, HasMore: int64(offset+limit) < total}, nil
}

// Bookmarks lists the user's bookmarks, newest bookmark first.
func (s *TweetService) Bookmarks(ctx context.Context, userID uint, limit, offset int) (*BookmarkPage, error) {
	limit, offset = ClampPage(limit, offset)
	rows, total, err := s.edges.ListBookmarks(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(rows))
	for _, b := range rows {
		ids = append(ids, b.TweetID)
	}
	tweets, err := s.tweets.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := s.annotate(ctx, userID, tweets); err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Tweet, len(tweets))
	for i := range tweets {
		byID[tweets[i].ID] = &tweets[i]
	}

	entries := make([]models.BookmarkEntry, 0, len(rows))
	for _, b := range rows {
		tweet, ok := byID[b.TweetID]
		if !ok {
			continue
		}
		entries = append(entries, models.BookmarkEntry{ID: b.ID, CreatedAt: b.CreatedAt, Tweet: tweet})
	}
	return &BookmarkPage{Bookmarks: entries, TotalCount: total}, nil
}

// Trending returns the most used hashtags. Results are cached for TrendingTTL
// and are not invalidated on write.
func (s *TweetService) Trending(ctx context.Context, limit int) ([]models.Hashtag, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	var tags []models.Hashtag
	err := cache.Aside(ctx, s.redis, "trending", cache.TrendingKey(limit), &tags, cache.TrendingTTL, func() error {
		var err error
		tags, err = s.hashtags.Trending(ctx, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []models.Hashtag{}
	}
	return tags, nil
}

// annotate fills author, hashtags and the viewer flags with one query per concern.
func (s *TweetService) annotate(ctx context.Context, viewerID uint, tweets []models.Tweet) error {
	if len(tweets) == 0 {
		return nil
	}
	tweetIDs := make([]uint, 0, len(tweets))
	authorIDs := make([]uint, 0, len(tweets))
	seenAuthor := make(map[uint]struct{}, len(tweets))
	for _, t := range tweets {
		tweetIDs = append(tweetIDs, t.ID)
		if _, ok := seenAuthor[t.UserID]; !ok {
			seenAuthor[t.UserID] = struct{}{}
			authorIDs = append(authorIDs, t.UserID)
		}
	}

	authors, err := s.users.GetByIDs(ctx, authorIDs)
	if err != nil {
		return err
	}
	authorByID := make(map[uint]*models.Author, len(authors))
	for i := range authors {
		authorByID[authors[i].ID] = models.AuthorOf(&authors[i])
	}

	names, err := s.hashtags.NamesForTweets(ctx, tweetIDs)
	if err != nil {
		return err
	}

	var liked, retweeted, bookmarked map[uint]bool
	if viewerID != 0 {
		if liked, err = idSet(s.edges.LikedTweetIDs(ctx, viewerID, tweetIDs)); err != nil {
			return err
		}
		if retweeted, err = idSet(s.edges.RetweetedTweetIDs(ctx, viewerID, tweetIDs)); err != nil {
			return err
		}
		if bookmarked, err = idSet(s.edges.BookmarkedTweetIDs(ctx, viewerID, tweetIDs)); err != nil {
			return err
		}
	}

	for i := range tweets {
		t := &tweets[i]
		t.Author = authorByID[t.UserID]
		t.Hashtags = names[t.ID]
		if t.Hashtags == nil {
			t.Hashtags = []string{}
		}
		t.IsLiked = liked[t.ID]
		t.IsRetweeted = retweeted[t.ID]
		t.IsBookmarked = bookmarked[t.ID]
	}
	return nil
}

func idSet(ids []uint, err error) (map[uint]bool, error) {
	if err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
