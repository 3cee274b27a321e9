// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an account holder.
type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Firstname       string    `gorm:"size:255;not null" json:"firstname"`
	Lastname        string    `gorm:"size:255;not null" json:"lastname"`
	Username        string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email           string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password        string    `gorm:"not null" json:"-"`
	Bio             string    `gorm:"size:500" json:"bio"`
	ProfileImageURL string    `json:"profile_image_url"`
	BannerImageURL  string    `json:"banner_image_url"`
	IsActive        bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// DisplayName is the "First Last" form used in follow notifications.
func (u *User) DisplayName() string {
	if u.Lastname == "" {
		return u.Firstname
	}
	return u.Firstname + " " + u.Lastname
}

// UserProfile is a user plus aggregate counts.
type UserProfile struct {
	User
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	TweetsCount    int64 `json:"tweets_count"`
}

// Author is the public subset of a user embedded in tweets.
type Author struct {
	ID              uint   `json:"id"`
	Username        string `json:"username"`
	Firstname       string `json:"firstname"`
	Lastname        string `json:"lastname"`
	ProfileImageURL string `json:"profile_image_url"`
}

// AuthorOf projects a user onto the Author shape.
func AuthorOf(u *User) *Author {
	if u == nil {
		return nil
	}
	return &Author{
		ID:              u.ID,
		Username:        u.Username,
		Firstname:       u.Firstname,
		Lastname:        u.Lastname,
		ProfileImageURL: u.ProfileImageURL,
	}
}
