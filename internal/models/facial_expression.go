package models

import (
	"time"
)

// FacialExpression is one classified frame for a user.
type FacialExpression struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_expressions_user_created" json:"user_id"`
	TweetID    *uint     `gorm:"index" json:"tweet_id"`
	Emotion    string    `gorm:"size:50;not null;index" json:"emotion"`
	Confidence float64   `gorm:"not null" json:"confidence"`
	ImageURL   *string   `json:"image_url"`
	CreatedAt  time.Time `gorm:"index:idx_expressions_user_created" json:"created_at"`
}

// TableName specifies the table name for GORM
func (FacialExpression) TableName() string {
	return "facial_expressions"
}
