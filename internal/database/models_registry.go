package database

import "flock/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Tweet{},
		&models.Like{},
		&models.Retweet{},
		&models.Reply{},
		&models.Follow{},
		&models.Bookmark{},
		&models.Notification{},
		&models.Hashtag{},
		&models.TweetHashtag{},
		&models.Mention{},
		&models.FacialExpression{},
	}
}
