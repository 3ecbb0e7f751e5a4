// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a bountyboard account. PasswordHash is only populated by the
// lookups that authenticate; profile reads leave it empty.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Note         string
	FacebookLink string
	TelegramLink string
	RedditLink   string
	LinkedInLink string
	GitHubLink   string
	// ProfileImage is an object-store key, resolved to a URL by services.
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileUpdate replaces the editable profile fields of a user.
type ProfileUpdate struct {
	Username     string
	Email        string
	Note         string
	FacebookLink string
	TelegramLink string
	RedditLink   string
	LinkedInLink string
	GitHubLink   string
}
