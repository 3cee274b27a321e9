package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"flock/internal/config"
	"flock/internal/emotion"
	"flock/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiHarness struct {
	srv *Server
	app *fiber.App
	mr  *miniredis.Miniredis
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	cfg := &config.Config{
		JWTSecret:                testSecret,
		AccessTokenExpireMinutes: 60,
		ClassifierURL:            "http://classifier.test/classify",
		FeatureFlags:             "emotion_suggestions=on",
	}
	classifier := emotion.ClassifierFunc(func(context.Context, []byte) (map[string]float64, error) {
		return map[string]float64{"happy": 0.9, "sad": 0.1}, nil
	})
	srv := newServer(cfg, db, rdb, classifier)
	return &apiHarness{srv: srv, app: srv.NewApp(), mr: mr}
}

// call issues a JSON request and decodes the response into out when non-nil.
func (h *apiHarness) call(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out), "%s %s", method, path)
	}
	return resp.StatusCode
}

// signup registers and logs in a user, returning its token and ID.
func (h *apiHarness) signup(t *testing.T, username string) (string, uint) {
	t.Helper()
	status := h.call(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":     username + "@example.com",
		"username":  username,
		"password":  "Secret123",
		"firstname": "First" + username,
		"lastname":  "Last",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	return h.login(t, username)
}

// login issues a fresh token for an already registered user.
func (h *apiHarness) login(t *testing.T, username string) (string, uint) {
	t.Helper()
	var login struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	status := h.call(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    username + "@example.com",
		"password": "Secret123",
	}, &login)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, login.AccessToken)
	return login.AccessToken, login.User.ID
}

type tweetBody struct {
	ID           uint     `json:"id"`
	Content      string   `json:"content"`
	LikesCount   int      `json:"likes_count"`
	RepliesCount int      `json:"replies_count"`
	Hashtags     []string `json:"hashtags"`
	IsLiked      bool     `json:"is_liked"`
	IsBookmarked bool     `json:"is_bookmarked"`
}

func (h *apiHarness) postTweet(t *testing.T, token, content string) tweetBody {
	t.Helper()
	var tw tweetBody
	status := h.call(t, http.MethodPost, "/api/tweets", token, fiber.Map{"content": content}, &tw)
	require.Equal(t, http.StatusCreated, status)
	return tw
}

func TestAPI_AuthLifecycle(t *testing.T) {
	h := newAPIHarness(t)

	var user map[string]any
	status := h.call(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":     "Alice@Example.com",
		"username":  "Alice",
		"password":  "Secret123",
		"firstname": "Alice",
		"lastname":  "Liddell",
	}, &user)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "alice@example.com", user["email"])
	assert.NotContains(t, user, "password")

	var errBody map[string]string
	status = h.call(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":     "alice@example.com",
		"username":  "alice2",
		"password":  "Secret123",
		"firstname": "Alice",
		"lastname":  "Liddell",
	}, &errBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errBody["code"])

	status = h.call(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":     "weak@example.com",
		"username":  "weak",
		"password":  "short",
		"firstname": "Weak",
		"lastname":  "Password",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = h.call(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email": "alice@example.com", "password": "Wrong1234",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	var login struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	status = h.call(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email": "ALICE@example.com", "password": "Secret123",
	}, &login)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bearer", login.TokenType)

	var me map[string]any
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/auth/me", login.AccessToken, nil, &me))
	assert.Equal(t, "alice", me["username"])

	status = h.call(t, http.MethodPost, "/api/auth/change-password", login.AccessToken, fiber.Map{
		"current_password": "nope", "new_password": "Better456",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status = h.call(t, http.MethodPost, "/api/auth/change-password", login.AccessToken, fiber.Map{
		"current_password": "Secret123", "new_password": "Better456",
	}, nil)
	assert.Equal(t, http.StatusOK, status)

	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, "/api/auth/logout", login.AccessToken, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, h.call(t, http.MethodGet, "/api/auth/me", login.AccessToken, nil, nil))
}

func TestAPI_ProtectedRoutesRequireToken(t *testing.T) {
	h := newAPIHarness(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/tweets"},
		{http.MethodDelete, "/api/tweets/1"},
		{http.MethodPost, "/api/interactions/like"},
		{http.MethodDelete, "/api/interactions/like/1"},
		{http.MethodPost, "/api/interactions/follow"},
		{http.MethodGet, "/api/interactions/bookmarks"},
		{http.MethodGet, "/api/notifications"},
		{http.MethodPost, "/api/notifications/read-all"},
		{http.MethodPost, "/api/facial-expressions/analyze"},
		{http.MethodGet, "/api/facial-expressions/current-mood"},
		{http.MethodGet, "/api/users/suggestions/for-you"},
		{http.MethodPut, "/api/users/me"},
		{http.MethodGet, "/api/ws/notifications"},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			var body map[string]string
			status := h.call(t, r.method, r.path, "", nil, &body)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, "UNAUTHORIZED", body["code"])
		})
	}

	// Public reads stay open.
	assert.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/tweets", "", nil, nil))
	assert.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/hashtags/trending", "", nil, nil))
	assert.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/feature-flags", "", nil, nil))
}

func TestAPI_LikeFlow(t *testing.T) {
	h := newAPIHarness(t)
	alice, _ := h.signup(t, "alice")
	bob, _ := h.signup(t, "bob")

	tw := h.postTweet(t, alice, "hello #golang")
	assert.Equal(t, []string{"golang"}, tw.Hashtags)

	var like map[string]any
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, "/api/interactions/like", bob, fiber.Map{"tweet_id": tw.ID}, &like))
	assert.Equal(t, float64(tw.ID), like["tweet_id"])

	var errBody map[string]string
	assert.Equal(t, http.StatusConflict, h.call(t, http.MethodPost, "/api/interactions/like", bob, fiber.Map{"tweet_id": tw.ID}, &errBody))
	assert.Equal(t, "CONFLICT", errBody["code"])
	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodPost, "/api/interactions/like", bob, fiber.Map{"tweet_id": 9999}, nil))
	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodPost, "/api/interactions/like", bob, fiber.Map{"tweet_id": 0}, nil))

	var seen tweetBody
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, fmt.Sprintf("/api/tweets/%d", tw.ID), bob, nil, &seen))
	assert.True(t, seen.IsLiked)
	assert.Equal(t, 1, seen.LikesCount)

	var anon tweetBody
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, fmt.Sprintf("/api/tweets/%d", tw.ID), "", nil, &anon))
	assert.False(t, anon.IsLiked)

	var page struct {
		Notifications []struct {
			ID      uint   `json:"id"`
			Type    string `json:"type"`
			Content string `json:"content"`
		} `json:"notifications"`
		TotalCount  int64 `json:"total_count"`
		UnreadCount int64 `json:"unread_count"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/notifications?unread=true", alice, nil, &page))
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, "like", page.Notifications[0].Type)
	assert.Equal(t, "Firstbob liked your tweet", page.Notifications[0].Content)
	assert.Equal(t, int64(1), page.UnreadCount)

	// Bob cannot read Alice's notification.
	readPath := fmt.Sprintf("/api/notifications/%d/read", page.Notifications[0].ID)
	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodPatch, readPath, bob, nil, nil))
	assert.Equal(t, http.StatusOK, h.call(t, http.MethodPatch, readPath, alice, nil, nil))

	require.Equal(t, http.StatusOK, h.call(t, http.MethodDelete, fmt.Sprintf("/api/interactions/like/%d", tw.ID), bob, nil, nil))
	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodDelete, fmt.Sprintf("/api/interactions/like/%d", tw.ID), bob, nil, nil))
	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodDelete, "/api/interactions/like/abc", bob, nil, nil))
}

func TestAPI_RepliesRetweetsAndBookmarks(t *testing.T) {
	h := newAPIHarness(t)
	alice, _ := h.signup(t, "alice")
	bob, _ := h.signup(t, "bob")
	tw := h.postTweet(t, alice, "root tweet")

	var reply struct {
		Tweet         tweetBody `json:"tweet"`
		ParentTweetID uint      `json:"parent_tweet_id"`
	}
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, "/api/interactions/reply", bob, fiber.Map{
		"parent_tweet_id": tw.ID, "content": "  nice one  ",
	}, &reply))
	assert.Equal(t, tw.ID, reply.ParentTweetID)
	assert.Equal(t, "nice one", reply.Tweet.Content)

	var replies struct {
		Replies    []tweetBody `json:"replies"`
		TotalCount int64       `json:"total_count"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, fmt.Sprintf("/api/tweets/%d/replies", tw.ID), "", nil, &replies))
	assert.Equal(t, int64(1), replies.TotalCount)
	require.Len(t, replies.Replies, 1)
	assert.Equal(t, reply.Tweet.ID, replies.Replies[0].ID)

	var parent tweetBody
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, fmt.Sprintf("/api/tweets/%d", tw.ID), "", nil, &parent))
	assert.Equal(t, 1, parent.RepliesCount)

	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, "/api/interactions/retweet", bob, fiber.Map{
		"original_tweet_id": tw.ID, "comment": "look",
	}, nil))
	assert.Equal(t, http.StatusConflict, h.call(t, http.MethodPost, "/api/interactions/retweet", bob, fiber.Map{
		"original_tweet_id": tw.ID,
	}, nil))
	assert.Equal(t, http.StatusOK, h.call(t, http.MethodDelete, fmt.Sprintf("/api/interactions/retweet/%d", tw.ID), bob, nil, nil))

	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, "/api/interactions/bookmark", bob, fiber.Map{"tweet_id": tw.ID}, nil))
	var bookmarks struct {
		Bookmarks []struct {
			Tweet tweetBody `json:"tweet"`
		} `json:"bookmarks"`
		TotalCount int64 `json:"total_count"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/interactions/bookmarks", bob, nil, &bookmarks))
	assert.Equal(t, int64(1), bookmarks.TotalCount)
	require.Len(t, bookmarks.Bookmarks, 1)
	assert.True(t, bookmarks.Bookmarks[0].Tweet.IsBookmarked)
	assert.Equal(t, http.StatusOK, h.call(t, http.MethodDelete, fmt.Sprintf("/api/interactions/bookmark/%d", tw.ID), bob, nil, nil))
}

func TestAPI_DeleteTweet(t *testing.T) {
	h := newAPIHarness(t)
	alice, _ := h.signup(t, "alice")
	bob, _ := h.signup(t, "bob")
	tw := h.postTweet(t, alice, "mine")
	path := fmt.Sprintf("/api/tweets/%d", tw.ID)

	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodDelete, path, bob, nil, nil))
	assert.Equal(t, http.StatusOK, h.call(t, http.MethodDelete, path, alice, nil, nil))
	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodGet, path, "", nil, nil))
}

func TestAPI_FollowGraph(t *testing.T) {
	h := newAPIHarness(t)
	alice, aliceID := h.signup(t, "alice")
	bob, bobID := h.signup(t, "bob")
	h.postTweet(t, alice, "first")

	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodPost, "/api/interactions/follow", alice, fiber.Map{"following_id": aliceID}, nil))
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, "/api/interactions/follow", bob, fiber.Map{"following_id": aliceID}, nil))
	assert.Equal(t, http.StatusConflict, h.call(t, http.MethodPost, "/api/interactions/follow", bob, fiber.Map{"following_id": aliceID}, nil))

	var profile struct {
		Username       string `json:"username"`
		FollowersCount int64  `json:"followers_count"`
		TweetsCount    int64  `json:"tweets_count"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, fmt.Sprintf("/api/users/%d", aliceID), "", nil, &profile))
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, int64(1), profile.FollowersCount)
	assert.Equal(t, int64(1), profile.TweetsCount)

	var followers struct {
		Users []struct {
			ID uint `json:"id"`
		} `json:"users"`
		TotalCount int64 `json:"total_count"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, fmt.Sprintf("/api/users/%d/followers", aliceID), "", nil, &followers))
	assert.Equal(t, int64(1), followers.TotalCount)
	require.Len(t, followers.Users, 1)
	assert.Equal(t, bobID, followers.Users[0].ID)

	var tweets struct {
		Tweets     []tweetBody `json:"tweets"`
		TotalCount int64       `json:"total_count"`
		HasMore    bool        `json:"has_more"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, fmt.Sprintf("/api/users/%d/tweets?limit=1", aliceID), "", nil, &tweets))
	assert.Equal(t, int64(1), tweets.TotalCount)
	assert.False(t, tweets.HasMore)

	var suggestions struct {
		Suggestions []struct {
			ID uint `json:"id"`
		} `json:"suggestions"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/users/suggestions/for-you", bob, nil, &suggestions))
	for _, s := range suggestions.Suggestions {
		assert.NotEqual(t, bobID, s.ID)
		assert.NotEqual(t, aliceID, s.ID)
	}

	require.Equal(t, http.StatusOK, h.call(t, http.MethodDelete, fmt.Sprintf("/api/interactions/follow/%d", aliceID), bob, nil, nil))
	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodDelete, fmt.Sprintf("/api/interactions/follow/%d", aliceID), bob, nil, nil))
	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodGet, "/api/users/9999", "", nil, nil))
}

func TestAPI_UpdateProfile(t *testing.T) {
	h := newAPIHarness(t)
	alice, _ := h.signup(t, "alice")

	var user map[string]any
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPut, "/api/users/me", alice, fiber.Map{"bio": "gopher"}, &user))
	assert.Equal(t, "gopher", user["bio"])
	assert.Equal(t, "Firstalice", user["firstname"])

	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodPut, "/api/users/me", alice, fiber.Map{"firstname": "   "}, nil))
}

func TestAPI_FacialExpressions(t *testing.T) {
	h := newAPIHarness(t)
	alice, _ := h.signup(t, "alice")

	var mood map[string]any
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/facial-expressions/current-mood", alice, nil, &mood))
	assert.Equal(t, "neutral", mood["mood"])

	var result struct {
		DominantEmotion string             `json:"dominant_emotion"`
		Confidence      float64            `json:"confidence"`
		Emotions        map[string]float64 `json:"emotions"`
		Saved           bool               `json:"saved"`
		ExpressionID    *uint              `json:"expression_id"`
	}
	frame := testutil.PNGDataURL(t, 320, 240)
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, "/api/facial-expressions/analyze", alice, fiber.Map{"image_data": frame}, &result))
	assert.Equal(t, "happy", result.DominantEmotion)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
	assert.True(t, result.Saved)
	assert.NotNil(t, result.ExpressionID)

	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, "/api/facial-expressions/analyze?save=false", alice, fiber.Map{"image_data": frame}, &result))
	assert.False(t, result.Saved)
	assert.Nil(t, result.ExpressionID)

	var errBody map[string]string
	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodPost, "/api/facial-expressions/analyze", alice, fiber.Map{"image_data": "%%%"}, &errBody))
	assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodPost, "/api/facial-expressions/analyze", alice, fiber.Map{}, nil))

	var history []map[string]any
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/facial-expressions/history", alice, nil, &history))
	assert.Len(t, history, 1)

	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/facial-expressions/current-mood", alice, nil, &mood))
	assert.Equal(t, "happy", mood["mood"])
}

func TestAPI_TrendingAndFlags(t *testing.T) {
	h := newAPIHarness(t)
	alice, _ := h.signup(t, "alice")
	h.postTweet(t, alice, "#go #rust")
	h.postTweet(t, alice, "#go again")

	var tags []struct {
		Name       string `json:"name"`
		UsageCount int    `json:"usage_count"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/hashtags/trending?limit=5", "", nil, &tags))
	require.NotEmpty(t, tags)
	assert.Equal(t, "go", tags[0].Name)
	assert.Equal(t, 2, tags[0].UsageCount)

	var flags struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/feature-flags", alice, nil, &flags))
	assert.Equal(t, "on", flags.Raw["emotion_suggestions"])
	assert.True(t, flags.Evaluated["emotion_suggestions"])
}

func TestAPI_WebsocketNeedsUpgrade(t *testing.T) {
	h := newAPIHarness(t)
	alice, _ := h.signup(t, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/ws/notifications?token="+alice, nil)
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestAPI_DeactivatedAccountCannotAct(t *testing.T) {
	h := newAPIHarness(t)
	alice, _ := h.signup(t, "alice")
	bob, bobID := h.signup(t, "bob")
	tw := h.postTweet(t, alice, "before")

	// Warm the active-account cache so deactivation has to invalidate it.
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, "/api/interactions/bookmark", bob, fiber.Map{"tweet_id": tw.ID}, nil))

	require.NoError(t, h.srv.userService.Deactivate(context.Background(), bobID))

	var errBody struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.Equal(t, http.StatusForbidden, h.call(t, http.MethodPost, "/api/interactions/like", bob, fiber.Map{"tweet_id": tw.ID}, &errBody))
	assert.Equal(t, "Inactive user", errBody.Error)
	assert.Equal(t, "FORBIDDEN", errBody.Code)
	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodPost, "/api/tweets", bob, fiber.Map{"content": "after"}, nil))
	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodPost, "/api/interactions/follow", bob, fiber.Map{"following_id": 1}, nil))
	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodGet, "/api/auth/me", bob, nil, nil))

	// Read paths still answer, but the viewer is anonymous.
	var got tweetBody
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, fmt.Sprintf("/api/tweets/%d", tw.ID), bob, nil, &got))
	assert.False(t, got.IsBookmarked)

	var parent tweetBody
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, fmt.Sprintf("/api/tweets/%d", tw.ID), "", nil, &parent))
	assert.Equal(t, 0, parent.LikesCount)
}

func TestAPI_DeleteMe(t *testing.T) {
	h := newAPIHarness(t)
	alice, _ := h.signup(t, "alice")
	bob, bobID := h.signup(t, "bob")
	bobOtherDevice, _ := h.login(t, "bob")
	tw := h.postTweet(t, bob, "still here")

	// Cache the profile so the deactivation must drop it.
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, fmt.Sprintf("/api/users/%d", bobID), "", nil, nil))

	var msg struct {
		Message string `json:"message"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodDelete, "/api/users/me", bob, nil, &msg))
	assert.Equal(t, "Account deactivated", msg.Message)

	// The token used to deactivate is revoked; any other one is refused as inactive.
	assert.Equal(t, http.StatusUnauthorized, h.call(t, http.MethodGet, "/api/auth/me", bob, nil, nil))
	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodPost, "/api/interactions/like", bobOtherDevice, fiber.Map{"tweet_id": tw.ID}, nil))

	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email": "bob@example.com", "password": "Secret123",
	}, nil))
	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodGet, fmt.Sprintf("/api/users/%d", bobID), "", nil, nil))

	// Soft delete keeps content.
	assert.Equal(t, http.StatusOK, h.call(t, http.MethodGet, fmt.Sprintf("/api/tweets/%d", tw.ID), "", nil, nil))

	var suggestions struct {
		Suggestions []struct {
			ID uint `json:"id"`
		} `json:"suggestions"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/api/users/suggestions/for-you", alice, nil, &suggestions))
	for _, sg := range suggestions.Suggestions {
		assert.NotEqual(t, bobID, sg.ID)
	}

	assert.Equal(t, http.StatusUnauthorized, h.call(t, http.MethodDelete, "/api/users/me", "", nil, nil))
}

func TestAPI_InteractionRepliesAlias(t *testing.T) {
	h := newAPIHarness(t)
	alice, _ := h.signup(t, "alice")
	tw := h.postTweet(t, alice, "root")
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, "/api/interactions/reply", alice, fiber.Map{
		"parent_tweet_id": tw.ID, "content": "self reply",
	}, nil))

	path := fmt.Sprintf("/api/interactions/%d/replies", tw.ID)
	assert.Equal(t, http.StatusUnauthorized, h.call(t, http.MethodGet, path, "", nil, nil))

	var replies struct {
		Replies    []tweetBody `json:"replies"`
		TotalCount int64       `json:"total_count"`
	}
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, path+"?limit=5", alice, nil, &replies))
	assert.Equal(t, int64(1), replies.TotalCount)
	require.Len(t, replies.Replies, 1)
	assert.Equal(t, "self reply", replies.Replies[0].Content)
}
