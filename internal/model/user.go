// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account together with its public profile.
//
// Accounts come from two places: email/password registration (PasswordHash
// set, GitHubID zero) or GitHub OAuth (GitHubID set, PasswordHash empty).
// Both end up in the same users table; the profile fields are one-to-one with
// the account so they live on the same row.
//
// PasswordHash is never serialized — note the json:"-" tag.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GitHubID     int64     `json:"-"` // zero when the account is not linked to GitHub
	Username     string    `json:"username"`
	FullName     string    `json:"fullName"`
	Bio          string    `json:"bio"`
	AvatarURL    string    `json:"avatarUrl"`
	Website      string    `json:"website"`
	GitHubURL    string    `json:"githubUrl"`
	LinkedinURL  string    `json:"linkedinUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile is the public view of a user — what /api/users/{username} returns.
// It deliberately omits the email address.
type Profile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	FullName    string    `json:"fullName"`
	Bio         string    `json:"bio"`
	AvatarURL   string    `json:"avatarUrl"`
	Website     string    `json:"website"`
	GitHubURL   string    `json:"githubUrl"`
	LinkedinURL string    `json:"linkedinUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PublicProfile trims a User down to its public Profile view.
func (u *User) PublicProfile() *Profile {
	return &Profile{
		ID:          u.ID,
		Username:    u.Username,
		FullName:    u.FullName,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		Website:     u.Website,
		GitHubURL:   u.GitHubURL,
		LinkedinURL: u.LinkedinURL,
		CreatedAt:   u.CreatedAt,
	}
}

// AuthorView returns the compact author reference embedded in snippet cards.
func (u *User) AuthorView() *Author {
	return &Author{
		Username:  u.Username,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
	}
}
