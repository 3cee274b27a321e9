package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"flock/internal/featureflags"
	"flock/internal/models"
	"flock/internal/repository"
	"flock/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu    sync.Mutex
	notes []models.Notification
}

func (p *recordingPublisher) PublishNotification(_ context.Context, n *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notes = append(p.notes, *n)
	return nil
}

func (p *recordingPublisher) published() []models.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Notification(nil), p.notes...)
}

type testEnv struct {
	db            *gorm.DB
	mr            *miniredis.Miniredis
	rdb           *redis.Client
	publisher     *recordingPublisher
	users         repository.UserRepository
	tweets        repository.TweetRepository
	edges         repository.InteractionRepository
	notifications repository.NotificationRepository
	hashtags      repository.HashtagRepository
	expressions   repository.ExpressionRepository

	interactions *InteractionService
	tweetSvc     *TweetService
	userSvc      *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)

	e := &testEnv{
		db:            db,
		mr:            mr,
		rdb:           rdb,
		publisher:     &recordingPublisher{},
		users:         repository.NewUserRepository(db),
		tweets:        repository.NewTweetRepository(db),
		edges:         repository.NewInteractionRepository(db),
		notifications: repository.NewNotificationRepository(db),
		hashtags:      repository.NewHashtagRepository(db),
		expressions:   repository.NewExpressionRepository(db),
	}
	e.interactions = NewInteractionService(db, e.users, e.tweets, e.edges, e.notifications, e.hashtags, e.publisher, rdb)
	e.tweetSvc = NewTweetService(db, e.users, e.tweets, e.edges, e.notifications, e.hashtags, e.publisher, rdb)
	e.userSvc = NewUserService(e.users, e.edges, e.expressions, featureflags.NewManager(""), rdb)
	return e
}

func (e *testEnv) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{
		Firstname: "First" + username,
		Lastname:  "Last",
		Username:  username,
		Email:     fmt.Sprintf("%s@example.com", username),
		Password:  "hash",
		IsActive:  true,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) tweet(t *testing.T, userID uint, content string) *models.Tweet {
	t.Helper()
	tw, err := e.tweetSvc.Create(context.Background(), CreateTweetInput{UserID: userID, Content: content})
	require.NoError(t, err)
	return tw
}

func (e *testEnv) reload(t *testing.T, id uint) *models.Tweet {
	t.Helper()
	tw, err := e.tweets.GetByID(context.Background(), id)
	require.NoError(t, err)
	return tw
}

func (e *testEnv) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, models.IsCode(err, code), "want %s, got %v", code, err)
}
