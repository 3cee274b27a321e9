package repository

import (
	"context"
	"fmt"
	"testing"

	"flock/internal/models"
	"flock/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	return testutil.NewDB(t)
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Firstname: "Test",
		Lastname:  username,
		Username:  username,
		Email:     fmt.Sprintf("%s@example.com", username),
		Password:  "hash",
		IsActive:  true,
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func createTweet(t *testing.T, db *gorm.DB, userID uint, content string) *models.Tweet {
	t.Helper()
	tweet := &models.Tweet{UserID: userID, Content: content}
	require.NoError(t, NewTweetRepository(db).Create(context.Background(), tweet))
	return tweet
}
