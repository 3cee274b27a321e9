package models

import (
	"time"
)

// Hashtag is stored lowercased without the leading '#'.
type Hashtag struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	UsageCount int       `gorm:"not null;default:0" json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Hashtag) TableName() string {
	return "hashtags"
}

// TweetHashtag is the join row between tweets and hashtags.
type TweetHashtag struct {
	TweetID   uint `gorm:"primaryKey;autoIncrement:false" json:"tweet_id"`
	HashtagID uint `gorm:"primaryKey;autoIncrement:false;index" json:"hashtag_id"`
}

// TableName specifies the table name for GORM
func (TweetHashtag) TableName() string {
	return "tweet_hashtags"
}

// Mention records an @username reference in a tweet.
type Mention struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TweetID         uint      `gorm:"not null;index" json:"tweet_id"`
	MentionedUserID uint      `gorm:"not null;index" json:"mentioned_user_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Mention) TableName() string {
	return "mentions"
}
