package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"flock/internal/cache"
	"flock/internal/featureflags"
	"flock/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserService_ProfileCachesAndHidesInactive(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	e.tweet(t, alice.ID, "one")

	profile, err := e.userSvc.Profile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), profile.TweetsCount)
	assert.True(t, e.mr.Exists(cache.ProfileKey(alice.ID)))

	require.NoError(t, e.users.UpdateFields(ctx, alice.ID, map[string]any{"is_active": false}))
	e.mr.Del(cache.ProfileKey(alice.ID))
	_, err = e.userSvc.Profile(ctx, alice.ID)
	requireCode(t, err, models.CodeNotFound)
}

func TestUserService_DeactivateDropsCachedState(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	auth := newAuthService(e)

	_, err := e.userSvc.Profile(ctx, alice.ID)
	require.NoError(t, err)
	require.NoError(t, auth.EnsureActive(ctx, alice.ID))
	require.True(t, e.mr.Exists(cache.ProfileKey(alice.ID)))
	require.True(t, e.mr.Exists(cache.ActiveUserKey(alice.ID)))

	require.NoError(t, e.userSvc.Deactivate(ctx, alice.ID))
	assert.False(t, e.mr.Exists(cache.ProfileKey(alice.ID)))
	assert.False(t, e.mr.Exists(cache.ActiveUserKey(alice.ID)))

	requireCode(t, auth.EnsureActive(ctx, alice.ID), models.CodeForbidden)
	_, err = e.userSvc.Profile(ctx, alice.ID)
	requireCode(t, err, models.CodeNotFound)
	requireCode(t, auth.EnsureActive(ctx, 9999), models.CodeUnauthorized)

	// Rows survive deactivation.
	assert.Equal(t, int64(1), e.count(t, &models.User{}, "id = ? AND is_active = ?", alice.ID, false))
}

func TestUserService_UpdateProfile(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	_, err := e.userSvc.Profile(ctx, alice.ID)
	require.NoError(t, err)

	updated, err := e.userSvc.UpdateProfile(ctx, alice.ID, ProfilePatch{
		Firstname: strPtr("  Alicia "),
		Bio:       strPtr("gopher"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.Firstname)
	assert.Equal(t, "Last", updated.Lastname)
	assert.Equal(t, "gopher", updated.Bio)
	assert.False(t, e.mr.Exists(cache.ProfileKey(alice.ID)))

	_, err = e.userSvc.UpdateProfile(ctx, alice.ID, ProfilePatch{Firstname: strPtr("   ")})
	requireCode(t, err, models.CodeValidation)
	_, err = e.userSvc.UpdateProfile(ctx, alice.ID, ProfilePatch{Bio: strPtr(strings.Repeat("b", 501))})
	requireCode(t, err, models.CodeValidation)
}

func TestUserService_FollowersAndFollowing(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	carol := e.user(t, "carol")
	_, err := e.interactions.Follow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	_, err = e.interactions.Follow(ctx, carol.ID, alice.ID)
	require.NoError(t, err)

	followers, err := e.userSvc.Followers(ctx, alice.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), followers.TotalCount)
	require.Len(t, followers.Users, 2)
	assert.Equal(t, carol.ID, followers.Users[0].ID)

	following, err := e.userSvc.Following(ctx, bob.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, following.Users, 1)
	assert.Equal(t, alice.ID, following.Users[0].ID)

	_, err = e.userSvc.Followers(ctx, 999, 10, 0)
	requireCode(t, err, models.CodeNotFound)
}

func TestUserService_SuggestionsExcludeViewerFollowedAndInactive(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	viewer := e.user(t, "viewer")
	followed := e.user(t, "followed")
	inactive := e.user(t, "inactive")
	fresh := e.user(t, "fresh")
	other := e.user(t, "other")
	require.NoError(t, e.users.UpdateFields(ctx, inactive.ID, map[string]any{"is_active": false}))
	_, err := e.interactions.Follow(ctx, viewer.ID, followed.ID)
	require.NoError(t, err)

	res, err := e.userSvc.Suggestions(ctx, viewer.ID, 20)
	require.NoError(t, err)
	assert.Nil(t, res.FilteredByEmotion)

	seen := map[uint]bool{}
	for _, s := range res.Suggestions {
		assert.False(t, seen[s.ID], "duplicate suggestion %d", s.ID)
		seen[s.ID] = true
	}
	assert.False(t, seen[viewer.ID])
	assert.False(t, seen[followed.ID])
	assert.False(t, seen[inactive.ID])
	assert.True(t, seen[fresh.ID])
	assert.True(t, seen[other.ID])
	assert.Equal(t, len(res.Suggestions), res.TotalCount)
}

func TestUserService_SuggestionsRankByMood(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	viewer := e.user(t, "viewer")
	happy := e.user(t, "happy")
	e.user(t, "newest")

	require.NoError(t, e.expressions.Create(ctx, &models.FacialExpression{UserID: viewer.ID, Emotion: "happy", Confidence: 0.9}))
	require.NoError(t, e.expressions.Create(ctx, &models.FacialExpression{UserID: happy.ID, Emotion: "happy", Confidence: 0.7}))

	res, err := e.userSvc.Suggestions(ctx, viewer.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, res.FilteredByEmotion)
	assert.Equal(t, "happy", *res.FilteredByEmotion)
	require.Len(t, res.Suggestions, 2)
	assert.Equal(t, happy.ID, res.Suggestions[0].ID, "mood matches come before recency padding")
	require.NotNil(t, res.Suggestions[0].CurrentMood)
	assert.Equal(t, "happy", *res.Suggestions[0].CurrentMood)
	assert.InDelta(t, 0.7, *res.Suggestions[0].MoodConfidence, 1e-9)
	assert.Nil(t, res.Suggestions[1].CurrentMood)
}

func TestUserService_SuggestionsIgnoreStaleMoodAndDisabledFlag(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	viewer := e.user(t, "viewer")
	happy := e.user(t, "happy")
	require.NoError(t, e.expressions.Create(ctx, &models.FacialExpression{UserID: viewer.ID, Emotion: "happy", Confidence: 0.9}))
	require.NoError(t, e.expressions.Create(ctx, &models.FacialExpression{UserID: happy.ID, Emotion: "happy", Confidence: 0.7}))

	e.userSvc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	res, err := e.userSvc.Suggestions(ctx, viewer.ID, 5)
	require.NoError(t, err)
	assert.Nil(t, res.FilteredByEmotion)

	off := NewUserService(e.users, e.edges, e.expressions, featureflags.NewManager("emotion_suggestions=off"), e.rdb)
	res, err = off.Suggestions(ctx, viewer.ID, 5)
	require.NoError(t, err)
	assert.Nil(t, res.FilteredByEmotion)
	require.Len(t, res.Suggestions, 1)
	assert.NotNil(t, res.Suggestions[0].CurrentMood)
}
