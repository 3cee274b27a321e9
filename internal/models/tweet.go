package models

import (
	"time"
)

// MaxTweetLength is the rune limit for tweet and reply content.
const MaxTweetLength = 280

// Tweet is a post. The three counters are denormalized from the edge tables
// and are only changed by the interaction service.
type Tweet struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	ImageURL      string    `json:"image_url"`
	VideoURL      string    `json:"video_url"`
	LikesCount    int       `gorm:"not null;default:0" json:"likes_count"`
	RetweetsCount int       `gorm:"not null;default:0" json:"retweets_count"`
	RepliesCount  int       `gorm:"not null;default:0" json:"replies_count"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Computed per request
	Author       *Author  `gorm:"-" json:"author,omitempty"`
	Hashtags     []string `gorm:"-" json:"hashtags"`
	IsLiked      bool     `gorm:"-" json:"is_liked"`
	IsRetweeted  bool     `gorm:"-" json:"is_retweeted"`
	IsBookmarked bool     `gorm:"-" json:"is_bookmarked"`
}

// TableName specifies the table name for GORM
func (Tweet) TableName() string {
	return "tweets"
}

// Counter columns on tweets.
const (
	CounterLikes    = "likes_count"
	CounterRetweets = "retweets_count"
	CounterReplies  = "replies_count"
)
