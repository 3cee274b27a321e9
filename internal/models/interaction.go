package models

import (
	"time"
)

// Like is a (user, tweet) edge.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_tweet" json:"user_id"`
	TweetID   uint      `gorm:"not null;uniqueIndex:idx_likes_user_tweet;index" json:"tweet_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Like) TableName() string {
	return "likes"
}

// Retweet is a (user, original tweet) edge with an optional quote comment.
type Retweet struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_retweets_user_tweet" json:"user_id"`
	OriginalTweetID uint      `gorm:"not null;uniqueIndex:idx_retweets_user_tweet;index" json:"original_tweet_id"`
	Comment         *string   `gorm:"size:280" json:"comment"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Retweet) TableName() string {
	return "retweets"
}

// Reply links a child tweet to the tweet it answers.
type Reply struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TweetID       uint      `gorm:"not null;uniqueIndex" json:"tweet_id"`
	ParentTweetID uint      `gorm:"not null;index" json:"parent_tweet_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Reply) TableName() string {
	return "replies"
}

// Follow is a directed follower -> following edge.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:idx_follows_pair" json:"follower_id"`
	FollowingID uint      `gorm:"not null;uniqueIndex:idx_follows_pair;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// Bookmark is a private (user, tweet) edge. It has no counter and never notifies.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_tweet" json:"user_id"`
	TweetID   uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_tweet;index" json:"tweet_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Bookmark) TableName() string {
	return "bookmarks"
}

// BookmarkEntry is a bookmark with its tweet attached.
type BookmarkEntry struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Tweet     *Tweet    `json:"tweet"`
}
