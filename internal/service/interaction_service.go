package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"flock/internal/cache"
	"flock/internal/models"
	"flock/internal/observability"
	"flock/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// InteractionService owns every edge mutation. Each operation runs in one
// transaction: edge insert, counter update and notification row commit together.
type InteractionService struct {
	db            *gorm.DB
	users         repository.UserRepository
	tweets        repository.TweetRepository
	edges         repository.InteractionRepository
	notifications repository.NotificationRepository
	hashtags      repository.HashtagRepository
	publisher     NotificationPublisher
	redis         *redis.Client
}

// ReplyResult is the child tweet plus the parent it answers.
type ReplyResult struct {
	Tweet         *models.Tweet `json:"tweet"`
	ParentTweetID uint          `json:"parent_tweet_id"`
}

// NewInteractionService returns a new InteractionService.
func NewInteractionService(
	db *gorm.DB,
	users repository.UserRepository,
	tweets repository.TweetRepository,
	edges repository.InteractionRepository,
	notifications repository.NotificationRepository,
	hashtags repository.HashtagRepository,
	publisher NotificationPublisher,
	rdb *redis.Client,
) *InteractionService {
	return &InteractionService{
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

// txRepos is the set of repositories bound to one transaction.
type txRepos struct {
	users         repository.UserRepository
	tweets        repository.TweetRepository
	edges         repository.InteractionRepository
	notifications repository.NotificationRepository
	hashtags      repository.HashtagRepository
}

func (s *InteractionService) inTx(ctx context.Context, fn func(r txRepos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txRepos{
			users:         s.users.WithTx(tx),
			tweets:        s.tweets.WithTx(tx),
			edges:         s.edges.WithTx(tx),
			notifications: s.notifications.WithTx(tx),
			hashtags:      s.hashtags.WithTx(tx),
		})
	})
}

// run wraps one operation with a span and the interaction counter.
func (s *InteractionService) run(ctx context.Context, kind string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	span, ctx := observability.NewSpan(ctx, "interaction", kind, attrs...)
	err := fn(ctx)
	span.Finish(err)
	observability.RecordInteraction(kind, err, outcome)
	return err
}

// notifyOwner appends a notification unless the actor owns the tweet.
func notifyOwner(ctx context.Context, r txRepos, actorID uint, tweet *models.Tweet, kind models.NotificationType, verb string) (*models.Notification, error) {
	if actorID == tweet.UserID {
		return nil, nil
	}
	actor, err := r.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	n := &models.Notification{
		UserID:   tweet.UserID,
		Type:     kind,
		SenderID: &actor.ID,
		TweetID:  &tweet.ID,
		Content:  actor.Firstname + " " + verb,
	}
	if err := r.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Like creates a (user, tweet) like edge and increments likes_count.
func (s *InteractionService) Like(ctx context.Context, actorID, tweetID uint) (*models.Like, error) {
	var (
		like *models.Like
		note *models.Notification
	)
	err := s.run(ctx, "like", tweetAttrs(actorID, tweetID), func(ctx context.Context) error {
		return s.inTx(ctx, func(r txRepos) error {
			tweet, err := r.tweets.GetByID(ctx, tweetID)
			if err != nil {
				return err
			}
			like = &models.Like{UserID: actorID, TweetID: tweetID}
			if err := r.edges.CreateLike(ctx, like); err != nil {
				return err
			}
			if err := r.tweets.IncrementCounter(ctx, tweetID, models.CounterLikes); err != nil {
				return err
			}
			note, err = notifyOwner(ctx, r, actorID, tweet, models.NotificationLike, "liked your tweet")
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.publisher, compact(note))
	return like, nil
}

// Unlike removes the like edge and decrements likes_count with a floor of zero.
func (s *InteractionService) Unlike(ctx context.Context, actorID, tweetID uint) error {
	return s.run(ctx, "unlike", tweetAttrs(actorID, tweetID), func(ctx context.Context) error {
		return s.inTx(ctx, func(r txRepos) error {
			removed, err := r.edges.DeleteLike(ctx, actorID, tweetID)
			if err != nil {
				return err
			}
			if !removed {
				return models.NewNotFoundError("Like", tweetID)
			}
			return r.tweets.DecrementCounter(ctx, tweetID, models.CounterLikes)
		})
	})
}

// Retweet creates a retweet edge with an optional quote comment.
func (s *InteractionService) Retweet(ctx context.Context, actorID, tweetID uint, comment *string) (*models.Retweet, error) {
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if utf8.RuneCountInString(trimmed) > models.MaxTweetLength {
			return nil, models.NewValidationError("Comment must be at most 280 characters")
		}
		if trimmed == "" {
			comment = nil
		} else {
			comment = &trimmed
		}
	}

	var (
		rt   *models.Retweet
		note *models.Notification
	)
	err := s.run(ctx, "retweet", tweetAttrs(actorID, tweetID), func(ctx context.Context) error {
		return s.inTx(ctx, func(r txRepos) error {
			tweet, err := r.tweets.GetByID(ctx, tweetID)
			if err != nil {
				return err
			}
			rt = &models.Retweet{UserID: actorID, OriginalTweetID: tweetID, Comment: comment}
			if err := r.edges.CreateRetweet(ctx, rt); err != nil {
				return err
			}
			if err := r.tweets.IncrementCounter(ctx, tweetID, models.CounterRetweets); err != nil {
				return err
			}
			note, err = notifyOwner(ctx, r, actorID, tweet, models.NotificationRetweet, "retweeted your tweet")
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.publisher, compact(note))
	return rt, nil
}

// Unretweet removes the retweet edge and decrements retweets_count.
func (s *InteractionService) Unretweet(ctx context.Context, actorID, tweetID uint) error {
	return s.run(ctx, "unretweet", tweetAttrs(actorID, tweetID), func(ctx context.Context) error {
		return s.inTx(ctx, func(r txRepos) error {
			removed, err := r.edges.DeleteRetweet(ctx, actorID, tweetID)
			if err != nil {
				return err
			}
			if !removed {
				return models.NewNotFoundError("Retweet", tweetID)
			}
			return r.tweets.DecrementCounter(ctx, tweetID, models.CounterRetweets)
		})
	})
}

// Reply creates a child tweet, links it to the parent and bumps replies_count.
// Hashtags and mentions in the reply are processed in the same transaction.
func (s *InteractionService) Reply(ctx context.Context, actorID, parentTweetID uint, content string) (*ReplyResult, error) {
	content = strings.TrimSpace(content)
	if err := validateTweetContent(content); err != nil {
		return nil, err
	}

	var (
		child *models.Tweet
		notes []*models.Notification
	)
	err := s.run(ctx, "reply", tweetAttrs(actorID, parentTweetID), func(ctx context.Context) error {
		return s.inTx(ctx, func(r txRepos) error {
			parent, err := r.tweets.GetByID(ctx, parentTweetID)
			if err != nil {
				return err
			}
			author, err := r.users.GetByID(ctx, actorID)
			if err != nil {
				return err
			}

			child = &models.Tweet{UserID: actorID, Content: content}
			if err := r.tweets.Create(ctx, child); err != nil {
				return err
			}
			if err := r.edges.CreateReply(ctx, &models.Reply{TweetID: child.ID, ParentTweetID: parent.ID}); err != nil {
				return err
			}
			if err := r.tweets.IncrementCounter(ctx, parent.ID, models.CounterReplies); err != nil {
				return err
			}
			note, err := notifyOwner(ctx, r, actorID, parent, models.NotificationReply, "replied to your tweet")
			if err != nil {
				return err
			}
			notes = compact(note)

			names, mentions, err := tagger{users: r.users, hashtags: r.hashtags, notifications: r.notifications}.apply(ctx, child, author)
			if err != nil {
				return err
			}
			child.Hashtags = names
			child.Author = models.AuthorOf(author)
			notes = append(notes, mentions...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if child.Hashtags == nil {
		child.Hashtags = []string{}
	}
	cache.InvalidateProfiles(ctx, s.redis, actorID)
	publishAll(ctx, s.publisher, notes)
	return &ReplyResult{Tweet: child, ParentTweetID: parentTweetID}, nil
}

// Bookmark saves a tweet privately. It has no counter and never notifies.
func (s *InteractionService) Bookmark(ctx context.Context, actorID, tweetID uint) (*models.Bookmark, error) {
	var b *models.Bookmark
	err := s.run(ctx, "bookmark", tweetAttrs(actorID, tweetID), func(ctx context.Context) error {
		return s.inTx(ctx, func(r txRepos) error {
			if _, err := r.tweets.GetByID(ctx, tweetID); err != nil {
				return err
			}
			b = &models.Bookmark{UserID: actorID, TweetID: tweetID}
			return r.edges.CreateBookmark(ctx, b)
		})
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Unbookmark removes a bookmark.
func (s *InteractionService) Unbookmark(ctx context.Context, actorID, tweetID uint) error {
	return s.run(ctx, "unbookmark", tweetAttrs(actorID, tweetID), func(ctx context.Context) error {
		removed, err := s.edges.DeleteBookmark(ctx, actorID, tweetID)
		if err != nil {
			return err
		}
		if !removed {
			return models.NewNotFoundError("Bookmark", tweetID)
		}
		return nil
	})
}

// Follow creates a follower -> following edge and notifies the followee.
func (s *InteractionService) Follow(ctx context.Context, actorID, targetUserID uint) (*models.Follow, error) {
	if actorID == targetUserID {
		return nil, models.NewValidationError("Cannot follow yourself")
	}

	var (
		follow *models.Follow
		note   *models.Notification
	)
	err := s.run(ctx, "follow", userAttrs(actorID, targetUserID), func(ctx context.Context) error {
		return s.inTx(ctx, func(r txRepos) error {
			if _, err := r.users.GetActiveByID(ctx, targetUserID); err != nil {
				return err
			}
			actor, err := r.users.GetByID(ctx, actorID)
			if err != nil {
				return err
			}
			follow = &models.Follow{FollowerID: actorID, FollowingID: targetUserID}
			if err := r.edges.CreateFollow(ctx, follow); err != nil {
				return err
			}
			note = &models.Notification{
				UserID:   targetUserID,
				Type:     models.NotificationFollow,
				SenderID: &actor.ID,
				Content:  actor.DisplayName() + " started following you",
			}
			return r.notifications.Create(ctx, note)
		})
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateProfiles(ctx, s.redis, actorID, targetUserID)
	publishAll(ctx, s.publisher, compact(note))
	return follow, nil
}

// Unfollow removes the follow edge.
func (s *InteractionService) Unfollow(ctx context.Context, actorID, targetUserID uint) error {
	err := s.run(ctx, "unfollow", userAttrs(actorID, targetUserID), func(ctx context.Context) error {
		removed, err := s.edges.DeleteFollow(ctx, actorID, targetUserID)
		if err != nil {
			return err
		}
		if !removed {
			return models.NewNotFoundError("Follow", targetUserID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateProfiles(ctx, s.redis, actorID, targetUserID)
	return nil
}

func compact(n *models.Notification) []*models.Notification {
	if n == nil {
		return nil
	}
	return []*models.Notification{n}
}

func tweetAttrs(actorID, tweetID uint) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("actor.id", int64(actorID)),
		attribute.Int64("tweet.id", int64(tweetID)),
	}
}

func userAttrs(actorID, targetID uint) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("actor.id", int64(actorID)),
		attribute.Int64("target.id", int64(targetID)),
	}
}
