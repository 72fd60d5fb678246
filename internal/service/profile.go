package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/codeboxhq/codebox/internal/apperror"
	"github.com/codeboxhq/codebox/internal/model"
	"github.com/codeboxhq/codebox/internal/repository"
)

// Profile field limits.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinFullNameLength = 2
	MaxFullNameLength = 50
	MaxBioLength      = 500
)

// ProfileInput is the payload for PUT /api/profile. Every field is
// replaced wholesale — there is no patch semantics.
type ProfileInput struct {
	Username    string `json:"username"`
	FullName    string `json:"fullName"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatarUrl"`
	Website     string `json:"website"`
	GitHubURL   string `json:"githubUrl"`
	LinkedinURL string `json:"linkedinUrl"`
}

// ProfileService handles public profile reads and the owner's profile edits.
type ProfileService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewProfileService(users repository.UserRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{users: users, logger: logger}
}

// GetByUsername returns the public profile for a username.
func (s *ProfileService) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return user.PublicProfile(), nil
}

// Update validates and saves the caller's profile. A username already held
// by another account surfaces as a Conflict from the repository.
func (s *ProfileService) Update(ctx context.Context, userID string, in ProfileInput) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("login required")
	}
	if err := validateProfile(&in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Username = in.Username
	user.FullName = in.FullName
	user.Bio = in.Bio
	user.AvatarURL = in.AvatarURL
	user.Website = in.Website
	user.GitHubURL = in.GitHubURL
	user.LinkedinURL = in.LinkedinURL

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated",
		slog.String("userID", userID),
		slog.String("username", user.Username),
	)
	return user, nil
}

func validateProfile(in *ProfileInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Bio = strings.TrimSpace(in.Bio)

	if err := ValidateUsername(in.Username); err != nil {
		return err
	}
	if len(in.FullName) < MinFullNameLength || len(in.FullName) > MaxFullNameLength {
		return apperror.ValidationFailed("fullName",
			fmt.Sprintf("full name must be between %d and %d characters", MinFullNameLength, MaxFullNameLength))
	}
	if len(in.Bio) > MaxBioLength {
		return apperror.ValidationFailed("bio",
			fmt.Sprintf("bio must be %d characters or less", MaxBioLength))
	}

	links := []struct{ field, value string }{
		{"avatarUrl", in.AvatarURL},
		{"website", in.Website},
		{"githubUrl", in.GitHubURL},
		{"linkedinUrl", in.LinkedinURL},
	}
	for _, l := range links {
		if l.value == "" {
			continue
		}
		if !validHTTPURL(l.value) {
			return apperror.ValidationFailed(l.field, "must be a valid http(s) URL")
		}
	}

	return nil
}

// ValidateUsername enforces the username rules shared by registration and
// profile edits: 3-20 characters from [a-zA-Z0-9_].
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength))
	}
	for _, r := range username {
		if !isUsernameRune(r) {
			return apperror.ValidationFailed("username", "username may only contain letters, digits, and underscores")
		}
	}
	return nil
}

func isUsernameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
