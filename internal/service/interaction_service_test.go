package service

import (
	"context"
	"strings"
	"testing"

	"flock/internal/cache"
	"flock/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteractionService_LikeUnlike(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	tw := e.tweet(t, alice.ID, "hello world")

	like, err := e.interactions.Like(ctx, bob.ID, tw.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, like.UserID)
	assert.Equal(t, 1, e.reload(t, tw.ID).LikesCount)

	_, err = e.interactions.Like(ctx, bob.ID, tw.ID)
	requireCode(t, err, models.CodeConflict)
	assert.Equal(t, 1, e.reload(t, tw.ID).LikesCount, "conflict must not move the counter")
	assert.Equal(t, int64(1), e.count(t, &models.Like{}, "tweet_id = ?", tw.ID))

	notes := e.publisher.published()
	require.Len(t, notes, 1)
	assert.Equal(t, alice.ID, notes[0].UserID)
	assert.Equal(t, models.NotificationLike, notes[0].Type)
	assert.Equal(t, "Firstbob liked your tweet", notes[0].Content)

	require.NoError(t, e.interactions.Unlike(ctx, bob.ID, tw.ID))
	assert.Equal(t, 0, e.reload(t, tw.ID).LikesCount)

	err = e.interactions.Unlike(ctx, bob.ID, tw.ID)
	requireCode(t, err, models.CodeNotFound)
}

func TestInteractionService_LikeMissingTweet(t *testing.T) {
	e := newTestEnv(t)
	bob := e.user(t, "bob")

	_, err := e.interactions.Like(context.Background(), bob.ID, 999)
	requireCode(t, err, models.CodeNotFound)
	assert.Equal(t, int64(0), e.count(t, &models.Like{}, "1 = 1"))
}

func TestInteractionService_SelfLikeDoesNotNotify(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice")
	tw := e.tweet(t, alice.ID, "mine")

	_, err := e.interactions.Like(context.Background(), alice.ID, tw.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, e.reload(t, tw.ID).LikesCount)
	assert.Empty(t, e.publisher.published())
	assert.Equal(t, int64(0), e.count(t, &models.Notification{}, "user_id = ?", alice.ID))
}

func TestInteractionService_UnlikeAtZeroStaysZero(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	tw := e.tweet(t, alice.ID, "drifted")

	_, err := e.interactions.Like(ctx, bob.ID, tw.ID)
	require.NoError(t, err)
	require.NoError(t, e.db.Model(&models.Tweet{}).Where("id = ?", tw.ID).Update("likes_count", 0).Error)

	require.NoError(t, e.interactions.Unlike(ctx, bob.ID, tw.ID))
	assert.Equal(t, 0, e.reload(t, tw.ID).LikesCount)
}

func TestInteractionService_Retweet(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	tw := e.tweet(t, alice.ID, "share me")

	blank := "   "
	rt, err := e.interactions.Retweet(ctx, bob.ID, tw.ID, &blank)
	require.NoError(t, err)
	assert.Nil(t, rt.Comment)
	assert.Equal(t, 1, e.reload(t, tw.ID).RetweetsCount)

	_, err = e.interactions.Retweet(ctx, bob.ID, tw.ID, nil)
	requireCode(t, err, models.CodeConflict)

	carol := e.user(t, "carol")
	long := strings.Repeat("x", 281)
	_, err = e.interactions.Retweet(ctx, carol.ID, tw.ID, &long)
	requireCode(t, err, models.CodeValidation)

	quote := "  so true  "
	rt, err = e.interactions.Retweet(ctx, carol.ID, tw.ID, &quote)
	require.NoError(t, err)
	require.NotNil(t, rt.Comment)
	assert.Equal(t, "so true", *rt.Comment)
	assert.Equal(t, 2, e.reload(t, tw.ID).RetweetsCount)

	require.NoError(t, e.interactions.Unretweet(ctx, bob.ID, tw.ID))
	assert.Equal(t, 1, e.reload(t, tw.ID).RetweetsCount)
	requireCode(t, e.interactions.Unretweet(ctx, bob.ID, tw.ID), models.CodeNotFound)
}

func TestInteractionService_Reply(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	parent := e.tweet(t, alice.ID, "question?")
	tweetsBefore := e.count(t, &models.Tweet{}, "1 = 1")

	res, err := e.interactions.Reply(ctx, bob.ID, parent.ID, "  answer #Go  ")
	require.NoError(t, err)
	assert.Equal(t, parent.ID, res.ParentTweetID)
	assert.Equal(t, "answer #Go", res.Tweet.Content)
	assert.Equal(t, []string{"go"}, res.Tweet.Hashtags)
	require.NotNil(t, res.Tweet.Author)
	assert.Equal(t, "bob", res.Tweet.Author.Username)

	assert.Equal(t, tweetsBefore+1, e.count(t, &models.Tweet{}, "1 = 1"))
	assert.Equal(t, int64(1), e.count(t, &models.Reply{}, "parent_tweet_id = ?", parent.ID))
	assert.Equal(t, 1, e.reload(t, parent.ID).RepliesCount)
	assert.Equal(t, int64(1), e.count(t, &models.Notification{}, "user_id = ? AND type = ?", alice.ID, models.NotificationReply))

	// Self-reply bumps the counter without notifying.
	_, err = e.interactions.Reply(ctx, alice.ID, parent.ID, "follow-up")
	require.NoError(t, err)
	assert.Equal(t, 2, e.reload(t, parent.ID).RepliesCount)
	assert.Equal(t, int64(1), e.count(t, &models.Notification{}, "user_id = ? AND type = ?", alice.ID, models.NotificationReply))
}

func TestInteractionService_ReplyValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	parent := e.tweet(t, alice.ID, "root")

	tests := []struct {
		name    string
		parent  uint
		content string
		code    string
	}{
		{"empty", parent.ID, "   ", models.CodeValidation},
		{"too long", parent.ID, strings.Repeat("é", 281), models.CodeValidation},
		{"missing parent", 999, "hi", models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.interactions.Reply(ctx, alice.ID, tt.parent, tt.content)
			requireCode(t, err, tt.code)
		})
	}
	assert.Equal(t, int64(0), e.count(t, &models.Reply{}, "1 = 1"))
	assert.Equal(t, 0, e.reload(t, parent.ID).RepliesCount)
}

func TestInteractionService_Bookmark(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	tw := e.tweet(t, alice.ID, "save for later")

	_, err := e.interactions.Bookmark(ctx, bob.ID, tw.ID)
	require.NoError(t, err)
	_, err = e.interactions.Bookmark(ctx, bob.ID, tw.ID)
	requireCode(t, err, models.CodeConflict)
	assert.Empty(t, e.publisher.published(), "bookmarks never notify")

	require.NoError(t, e.interactions.Unbookmark(ctx, bob.ID, tw.ID))
	requireCode(t, e.interactions.Unbookmark(ctx, bob.ID, tw.ID), models.CodeNotFound)
}

func TestInteractionService_Follow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")

	// Warm alice's profile so the follow has to invalidate it.
	_, err := e.userSvc.Profile(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, e.mr.Exists(cache.ProfileKey(alice.ID)))

	_, err = e.interactions.Follow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, e.mr.Exists(cache.ProfileKey(alice.ID)))

	notes := e.publisher.published()
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationFollow, notes[0].Type)
	assert.Equal(t, "Firstbob Last started following you", notes[0].Content)
	assert.Nil(t, notes[0].TweetID)

	_, err = e.interactions.Follow(ctx, bob.ID, alice.ID)
	requireCode(t, err, models.CodeConflict)

	profile, err := e.userSvc.Profile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), profile.FollowersCount)

	require.NoError(t, e.interactions.Unfollow(ctx, bob.ID, alice.ID))
	requireCode(t, e.interactions.Unfollow(ctx, bob.ID, alice.ID), models.CodeNotFound)
}

func TestInteractionService_SelfFollowAlwaysFails(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice")

	for i := 0; i < 2; i++ {
		_, err := e.interactions.Follow(context.Background(), alice.ID, alice.ID)
		requireCode(t, err, models.CodeValidation)
	}
	_, err := e.interactions.Follow(context.Background(), 12345, 12345)
	requireCode(t, err, models.CodeValidation)
}

func TestInteractionService_FollowInactiveTarget(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	require.NoError(t, e.users.UpdateFields(context.Background(), alice.ID, map[string]any{"is_active": false}))

	_, err := e.interactions.Follow(context.Background(), bob.ID, alice.ID)
	requireCode(t, err, models.CodeNotFound)
}

func TestInteractionService_CountersMatchEdges(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.user(t, "owner")
	tw := e.tweet(t, owner.ID, "popular")

	var fans []*models.User
	for _, name := range []string{"fan_a", "fan_b", "fan_c", "fan_d"} {
		fans = append(fans, e.user(t, name))
	}
	for _, f := range fans {
		_, err := e.interactions.Like(ctx, f.ID, tw.ID)
		require.NoError(t, err)
		_, err = e.interactions.Retweet(ctx, f.ID, tw.ID, nil)
		require.NoError(t, err)
	}
	require.NoError(t, e.interactions.Unlike(ctx, fans[0].ID, tw.ID))
	require.NoError(t, e.interactions.Unretweet(ctx, fans[1].ID, tw.ID))
	_, err := e.interactions.Like(ctx, fans[2].ID, tw.ID)
	requireCode(t, err, models.CodeConflict)

	got := e.reload(t, tw.ID)
	assert.Equal(t, e.count(t, &models.Like{}, "tweet_id = ?", tw.ID), int64(got.LikesCount))
	assert.Equal(t, e.count(t, &models.Retweet{}, "original_tweet_id = ?", tw.ID), int64(got.RetweetsCount))
	assert.Equal(t, 3, got.LikesCount)
	assert.Equal(t, 3, got.RetweetsCount)
}
