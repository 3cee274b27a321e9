package seed

import (
	"context"
	"fmt"
	"log"
	"strings"

	"flock/internal/database"
	"flock/internal/models"
	"flock/internal/repository"
	"flock/internal/service"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Stats reports what a run created. Duplicate edges are skipped, so the edge
// counts can be lower than the scenario asks for.
type Stats struct {
	Users       int
	Tweets      int
	Follows     int
	Likes       int
	Replies     int
	Expressions int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d users, %d tweets, %d follows, %d likes, %d replies, %d expressions",
		s.Users, s.Tweets, s.Follows, s.Likes, s.Replies, s.Expressions)
}

// Seeder writes demo data through the same services the API uses so counters,
// hashtags and notifications stay consistent.
type Seeder struct {
	db           *gorm.DB
	users        repository.UserRepository
	expressions  repository.ExpressionRepository
	tweets       *service.TweetService
	interactions *service.InteractionService
	factory      *Factory
	bcryptCost   int
}

// NewSeeder wires a Seeder against db. Notifications are stored but not published.
func NewSeeder(db *gorm.DB, factory *Factory) *Seeder {
	users := repository.NewUserRepository(db)
	tweets := repository.NewTweetRepository(db)
	edges := repository.NewInteractionRepository(db)
	notes := repository.NewNotificationRepository(db)
	tags := repository.NewHashtagRepository(db)

	return &Seeder{
		db:           db,
		users:        users,
		expressions:  repository.NewExpressionRepository(db),
		tweets:       service.NewTweetService(db, users, tweets, edges, notes, tags, nil, nil),
		interactions: service.NewInteractionService(db, users, tweets, edges, notes, tags, nil, nil),
		factory:      factory,
		bcryptCost:   bcrypt.DefaultCost,
	}
}

// WithBcryptCost lowers the hashing cost for tests.
func (s *Seeder) WithBcryptCost(cost int) *Seeder {
	s.bcryptCost = cost
	return s
}

// Run generates the scenario. Every user shares sc.Password.
func (s *Seeder) Run(ctx context.Context, sc Scenario) (Stats, error) {
	var stats Stats
	if err := sc.Validate(); err != nil {
		return stats, err
	}
	log.Printf("🌱 Seeding %d users...", sc.Users)

	hash, err := bcrypt.GenerateFromPassword([]byte(sc.Password), s.bcryptCost)
	if err != nil {
		return stats, fmt.Errorf("hash password: %w", err)
	}

	users := make([]*models.User, 0, sc.Users)
	for i := 0; i < sc.Users; i++ {
		u := s.factory.BuildUser(func(u *models.User) { u.Password = string(hash) })
		u.CreatedAt = s.factory.Backdate(sc.MaxDays)
		if err := s.users.Create(ctx, u); err != nil {
			return stats, fmt.Errorf("create user %s: %w", u.Username, err)
		}
		users = append(users, u)
	}
	stats.Users = len(users)
	log.Printf("✓ %d users created", stats.Users)

	for i, u := range users {
		for _, j := range s.factory.Pick(len(users), sc.FollowsPerUser, i) {
			_, err := s.interactions.Follow(ctx, u.ID, users[j].ID)
			ok, err := created(err)
			if err != nil {
				return stats, fmt.Errorf("follow: %w", err)
			}
			if ok {
				stats.Follows++
			}
		}
	}
	log.Printf("✓ %d follows created", stats.Follows)

	tweets := make([]*models.Tweet, 0, sc.Users*sc.TweetsPerUser)
	for _, u := range users {
		for k := 0; k < sc.TweetsPerUser; k++ {
			mention := ""
			if s.factory.chance(5) {
				mention = users[s.factory.rng.Intn(len(users))].Username
			}
			tw, err := s.tweets.Create(ctx, service.CreateTweetInput{
				UserID:  u.ID,
				Content: s.factory.TweetContent(sc.Hashtags, mention),
			})
			if err != nil {
				return stats, fmt.Errorf("create tweet: %w", err)
			}
			if err := s.backdate(ctx, tw.ID, sc.MaxDays); err != nil {
				return stats, err
			}
			tweets = append(tweets, tw)
		}
	}
	stats.Tweets = len(tweets)
	log.Printf("✓ %d tweets created", stats.Tweets)

	if len(tweets) > 0 {
		for _, u := range users {
			for _, idx := range s.factory.Pick(len(tweets), sc.LikesPerUser, -1) {
				_, err := s.interactions.Like(ctx, u.ID, tweets[idx].ID)
				ok, err := created(err)
				if err != nil {
					return stats, fmt.Errorf("like: %w", err)
				}
				if ok {
					stats.Likes++
				}
			}
			for _, idx := range s.factory.Pick(len(tweets), sc.RepliesPerUser, -1) {
				res, err := s.interactions.Reply(ctx, u.ID, tweets[idx].ID, s.factory.ReplyContent())
				if err != nil {
					return stats, fmt.Errorf("reply: %w", err)
				}
				if err := s.backdate(ctx, res.Tweet.ID, sc.MaxDays); err != nil {
					return stats, err
				}
				stats.Replies++
			}
		}
	}
	log.Printf("✓ %d likes and %d replies created", stats.Likes, stats.Replies)

	if len(sc.Moods) > 0 {
		for _, u := range users {
			emotion, confidence := s.factory.Mood(sc.Moods)
			expr := &models.FacialExpression{
				UserID:     u.ID,
				Emotion:    strings.ToLower(emotion),
				Confidence: confidence,
			}
			if err := s.expressions.Create(ctx, expr); err != nil {
				return stats, fmt.Errorf("create expression: %w", err)
			}
			stats.Expressions++
		}
	}

	log.Printf("🎉 Seeding complete: %s", stats)
	return stats, nil
}

func (s *Seeder) backdate(ctx context.Context, tweetID uint, maxDays int) error {
	err := s.db.WithContext(ctx).Model(&models.Tweet{}).
		Where("id = ?", tweetID).
		UpdateColumn("created_at", s.factory.Backdate(maxDays)).Error
	if err != nil {
		return fmt.Errorf("backdate tweet %d: %w", tweetID, err)
	}
	return nil
}

// ClearAll deletes every row from the schema-managed tables, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("🗑️  Clearing existing data...")
	all := database.PersistentModels()
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Unscoped().Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	return nil
}

// created reports whether an edge was written. Duplicates and self-follows
// are skips, not failures.
func created(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if models.IsCode(err, models.CodeConflict) || models.IsCode(err, models.CodeValidation) {
		return false, nil
	}
	return false, err
}
