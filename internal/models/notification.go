package models

import (
	"time"
)

// NotificationType enumerates fan-out events.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationRetweet NotificationType = "retweet"
	NotificationReply   NotificationType = "reply"
	NotificationFollow  NotificationType = "follow"
	NotificationMention NotificationType = "mention"
)

// Notification is append-only; only IsRead changes after insert.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	SenderID  *uint            `json:"sender_id"`
	TweetID   *uint            `gorm:"index" json:"tweet_id"`
	Content   string           `gorm:"type:text;not null" json:"content"`
	IsRead    bool             `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}
