package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"flock/internal/cache"
	"flock/internal/featureflags"
	"flock/internal/models"
	"flock/internal/repository"
	"flock/internal/validation"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultSuggestionLimit = 5
	MaxSuggestionLimit     = 20
	moodWindow             = 24 * time.Hour
)

// UserService serves profiles, the follow graph and follow suggestions.
type UserService struct {
	users       repository.UserRepository
	edges       repository.InteractionRepository
	expressions repository.ExpressionRepository
	flags       *featureflags.Manager
	redis       *redis.Client
	now         func() time.Time
}

// ProfilePatch carries the editable profile fields; nil means unchanged.
type ProfilePatch struct {
	Firstname       *string `json:"firstname" validate:"omitempty,max=255"`
	Lastname        *string `json:"lastname" validate:"omitempty,max=255"`
	Bio             *string `json:"bio" validate:"omitempty,max=500"`
	ProfileImageURL *string `json:"profile_image_url" validate:"omitempty,max=2048"`
	BannerImageURL  *string `json:"banner_image_url" validate:"omitempty,max=2048"`
}

// UserPage is a page of users with the unpaged total.
type UserPage struct {
	Users      []models.User
	TotalCount int64
}

// Suggestion is one user the viewer might follow.
type Suggestion struct {
	ID              uint     `json:"id"`
	Username        string   `json:"username"`
	Firstname       string   `json:"firstname"`
	Lastname        string   `json:"lastname"`
	Bio             string   `json:"bio"`
	ProfileImageURL string   `json:"profile_image_url"`
	FollowersCount  int64    `json:"followers_count"`
	TweetsCount     int64    `json:"tweets_count"`
	CurrentMood     *string  `json:"current_mood"`
	MoodConfidence  *float64 `json:"mood_confidence"`
}

// SuggestionResult is the suggestions response body.
type SuggestionResult struct {
	Suggestions       []Suggestion `json:"suggestions"`
	TotalCount        int          `json:"total_count"`
	FilteredByEmotion *string      `json:"filtered_by_emotion"`
}

// NewUserService returns a new UserService.
func NewUserService(
	users repository.UserRepository,
	edges repository.InteractionRepository,
	expressions repository.ExpressionRepository,
	flags *featureflags.Manager,
	rdb *redis.Client,
) *UserService {
	return &UserService{
		users:       users,
		edges:       edges,
		expressions: expressions,
		flags:       flags,
		redis:       rdb,
		now:         time.Now,
	}
}

// Profile returns an active user with follower, following and tweet counts.
func (s *UserService) Profile(ctx context.Context, id uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := cache.Aside(ctx, s.redis, "profile", cache.ProfileKey(id), &profile, cache.ProfileTTL, func() error {
		user, err := s.users.GetActiveByID(ctx, id)
		if err != nil {
			return err
		}
		followers, following, tweets, err := s.users.Counts(ctx, id)
		if err != nil {
			return err
		}
		profile = models.UserProfile{
			User:           *user,
			FollowersCount: followers,
			FollowingCount: following,
			TweetsCount:    tweets,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile applies the non-nil fields of patch.
func (s *UserService) UpdateProfile(ctx context.Context, id uint, patch ProfilePatch) (*models.User, error) {
	fields := make(map[string]any)

	if patch.Firstname != nil {
		name := strings.TrimSpace(*patch.Firstname)
		if err := validation.ValidateName("firstname", name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["firstname"] = name
	}
	if patch.Lastname != nil {
		name := strings.TrimSpace(*patch.Lastname)
		if err := validation.ValidateName("lastname", name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["lastname"] = name
	}
	if patch.Bio != nil {
		if utf8.RuneCountInString(*patch.Bio) > validation.MaxBioLength {
			return nil, models.NewValidationError("Bio must be at most 500 characters")
		}
		fields["bio"] = *patch.Bio
	}
	if patch.ProfileImageURL != nil {
		fields["profile_image_url"] = strings.TrimSpace(*patch.ProfileImageURL)
	}
	if patch.BannerImageURL != nil {
		fields["banner_image_url"] = strings.TrimSpace(*patch.BannerImageURL)
	}

	if err := s.users.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	cache.InvalidateProfiles(ctx, s.redis, id)
	return s.users.GetByID(ctx, id)
}

// Deactivate soft-deletes an account. Its rows stay, but it can no longer
// authenticate and drops out of profiles and suggestions.
func (s *UserService) Deactivate(ctx context.Context, id uint) error {
	if err := s.users.UpdateFields(ctx, id, map[string]any{"is_active": false}); err != nil {
		return err
	}
	cache.Invalidate(ctx, s.redis, cache.ProfileKey(id), cache.ActiveUserKey(id))
	return nil
}

// Followers lists users following id.
func (s *UserService) Followers(ctx context.Context, id uint, limit, offset int) (*UserPage, error) {
	limit, offset = ClampPage(limit, offset)
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return nil, err
	}
	users, total, err := s.users.Followers(ctx, id, limit, offset)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, TotalCount: total}, nil
}

// Following lists users id follows.
func (s *UserService) Following(ctx context.Context, id uint, limit, offset int) (*UserPage, error) {
	limit, offset = ClampPage(limit, offset)
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return nil, err
	}
	users, total, err := s.users.Following(ctx, id, limit, offset)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, TotalCount: total}, nil
}

// Suggestions ranks active users the viewer does not follow. When the viewer
// has a recent mood, users sharing it come first; the rest pad by recency.
func (s *UserService) Suggestions(ctx context.Context, viewerID uint, limit int) (*SuggestionResult, error) {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	if limit > MaxSuggestionLimit {
		limit = MaxSuggestionLimit
	}

	followed, err := s.edges.FollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	exclude := append([]uint{viewerID}, followed...)
	since := s.now().Add(-moodWindow)

	var filter *string
	if s.flags.Enabled(featureflags.EmotionSuggestions, viewerID) {
		latest, err := s.expressions.Latest(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		if latest != nil && !latest.CreatedAt.Before(since) {
			emotion := latest.Emotion
			filter = &emotion
		}
	}

	var picked []models.User
	if filter != nil {
		matched, err := s.users.SuggestionCandidates(ctx, exclude, *filter, since, limit)
		if err != nil {
			return nil, err
		}
		picked = append(picked, matched...)
		for _, u := range matched {
			exclude = append(exclude, u.ID)
		}
	}
	if len(picked) < limit {
		rest, err := s.users.SuggestionCandidates(ctx, exclude, "", time.Time{}, limit-len(picked))
		if err != nil {
			return nil, err
		}
		picked = append(picked, rest...)
	}

	ids := make([]uint, 0, len(picked))
	for _, u := range picked {
		ids = append(ids, u.ID)
	}
	followerCounts, err := s.users.FollowerCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	tweetCounts, err := s.users.TweetCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	moods, err := s.expressions.LatestSince(ctx, ids, since)
	if err != nil {
		return nil, err
	}

	out := make([]Suggestion, 0, len(picked))
	for _, u := range picked {
		sg := Suggestion{
			ID:              u.ID,
			Username:        u.Username,
			Firstname:       u.Firstname,
			Lastname:        u.Lastname,
			Bio:             u.Bio,
			ProfileImageURL: u.ProfileImageURL,
			FollowersCount:  followerCounts[u.ID],
			TweetsCount:     tweetCounts[u.ID],
		}
		if mood, ok := moods[u.ID]; ok {
			emotion, confidence := mood.Emotion, mood.Confidence
			sg.CurrentMood = &emotion
			sg.MoodConfidence = &confidence
		}
		out = append(out, sg)
	}

	return &SuggestionResult{Suggestions: out, TotalCount: len(out), FilteredByEmotion: filter}, nil
}
