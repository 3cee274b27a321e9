// Package seed generates demo users, tweets and interactions for development
// databases. It is not used by the API server.
package seed

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"flock/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

var nonUsername = regexp.MustCompile(`[^a-z0-9_]+`)

// Factory builds domain entities with fake but plausible content.
type Factory struct {
	faker *gofakeit.Faker
	rng   *rand.Rand
	seq   int
}

// NewFactory returns a Factory. A zero seed picks one from the clock.
func NewFactory(seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		faker: gofakeit.New(seed),
		//nolint:gosec // Weak random number generator is fine for seeding
		rng: rand.New(rand.NewSource(seed)),
	}
}

// BuildUser returns an unsaved user with a unique username and email.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	f.seq++
	base := nonUsername.ReplaceAllString(strings.ToLower(f.faker.Username()), "")
	if len(base) > 40 {
		base = base[:40]
	}
	if len(base) < 3 {
		base = "user"
	}
	username := fmt.Sprintf("%s_%d", base, f.seq)

	user := &models.User{
		Firstname:       f.faker.FirstName(),
		Lastname:        f.faker.LastName(),
		Username:        username,
		Email:           username + "@example.com",
		Bio:             f.faker.Sentence(10),
		ProfileImageURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		IsActive:        true,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// TweetContent returns tweet text, optionally tagged with a hashtag and a mention.
func (f *Factory) TweetContent(hashtags []string, mention string) string {
	parts := []string{f.faker.Sentence(f.rng.Intn(12) + 4)}
	if len(hashtags) > 0 && f.rng.Intn(3) > 0 {
		parts = append(parts, "#"+hashtags[f.rng.Intn(len(hashtags))])
	}
	if mention != "" {
		parts = append(parts, "@"+mention)
	}
	return truncateRunes(strings.Join(parts, " "), 280)
}

// ReplyContent returns a short reply.
func (f *Factory) ReplyContent() string {
	return truncateRunes(f.faker.Sentence(f.rng.Intn(8)+3), 280)
}

// Backdate returns a time within the last maxDays days.
func (f *Factory) Backdate(maxDays int) time.Time {
	if maxDays <= 0 {
		maxDays = 30
	}
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour - time.Duration(minsBack)*time.Minute)
}

// Pick returns n distinct indexes from [0, size) excluding skip.
func (f *Factory) Pick(size, n, skip int) []int {
	candidates := make([]int, 0, size)
	for i := 0; i < size; i++ {
		if i != skip {
			candidates = append(candidates, i)
		}
	}
	f.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}

// Mood picks a mood and a confidence in [0.5, 1).
func (f *Factory) Mood(moods []string) (string, float64) {
	return moods[f.rng.Intn(len(moods))], 0.5 + f.rng.Float64()/2
}

func (f *Factory) chance(oneIn int) bool {
	return f.rng.Intn(oneIn) == 0
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
