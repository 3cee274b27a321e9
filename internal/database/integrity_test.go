package database

import (
	"context"
	"testing"

	"flock/internal/config"
	"flock/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(PersistentModels()...))
	return db
}

// seedTweets creates two users, a tweet with one like and one reply, and
// returns the parent tweet.
func seedTweets(t *testing.T, db *gorm.DB) *models.Tweet {
	t.Helper()
	alice := &models.User{Firstname: "Alice", Lastname: "A", Username: "alice", Email: "alice@example.com", Password: "x", IsActive: true}
	bob := &models.User{Firstname: "Bob", Lastname: "B", Username: "bob", Email: "bob@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)

	parent := &models.Tweet{UserID: alice.ID, Content: "hello", LikesCount: 1, RepliesCount: 1}
	require.NoError(t, db.Create(parent).Error)
	child := &models.Tweet{UserID: bob.ID, Content: "hi back"}
	require.NoError(t, db.Create(child).Error)

	require.NoError(t, db.Create(&models.Like{UserID: bob.ID, TweetID: parent.ID}).Error)
	require.NoError(t, db.Create(&models.Reply{TweetID: child.ID, ParentTweetID: parent.ID}).Error)
	return parent
}

func TestCheckCounters(t *testing.T) {
	ctx := context.Background()

	t.Run("consistent", func(t *testing.T) {
		db := newSQLiteDB(t)
		seedTweets(t, db)

		drift, err := CheckCounters(ctx, db)
		require.NoError(t, err)
		assert.Empty(t, drift)
	})

	t.Run("reports drift", func(t *testing.T) {
		db := newSQLiteDB(t)
		parent := seedTweets(t, db)
		require.NoError(t, db.Model(&models.Tweet{}).Where("id = ?", parent.ID).
			Updates(map[string]any{"likes_count": 4, "retweets_count": 2}).Error)

		drift, err := CheckCounters(ctx, db)
		require.NoError(t, err)
		require.Len(t, drift, 2)
		assert.Equal(t, CounterDrift{TweetID: parent.ID, Column: "likes_count", Stored: 4, Actual: 1}, drift[0])
		assert.Equal(t, CounterDrift{TweetID: parent.ID, Column: "retweets_count", Stored: 2, Actual: 0}, drift[1])
	})
}

func TestRepairCounters(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	parent := seedTweets(t, db)
	require.NoError(t, db.Model(&models.Tweet{}).Where("id = ?", parent.ID).
		Updates(map[string]any{"likes_count": 9, "replies_count": 0}).Error)

	fixed, err := RepairCounters(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fixed["likes_count"])
	assert.Equal(t, int64(1), fixed["replies_count"])
	assert.Equal(t, int64(0), fixed["retweets_count"])

	var got models.Tweet
	require.NoError(t, db.First(&got, parent.ID).Error)
	assert.Equal(t, 1, got.LikesCount)
	assert.Equal(t, 1, got.RepliesCount)

	drift, err := CheckCounters(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestGetSchemaStatus(t *testing.T) {
	db := newSQLiteDB(t)
	seedTweets(t, db)

	status, err := GetSchemaStatus(context.Background(), db, &config.Config{Env: "development"})
	require.NoError(t, err)

	assert.True(t, status.Plan.SQL)
	assert.True(t, status.Plan.Auto)
	assert.Empty(t, status.AppliedVersions)
	assert.Len(t, status.PendingMigrations, len(GetMigrations()))

	rows := make(map[string]int64, len(status.Tables))
	for _, tc := range status.Tables {
		rows[tc.Table] = tc.Rows
	}
	assert.Len(t, rows, len(PersistentModels()))
	assert.Equal(t, int64(2), rows["users"])
	assert.Equal(t, int64(2), rows["tweets"])
	assert.Equal(t, int64(1), rows["likes"])
	assert.Equal(t, int64(0), rows["notifications"])
}
