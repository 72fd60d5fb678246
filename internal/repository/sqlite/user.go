package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/codeboxhq/codebox/internal/apperror"
	"github.com/codeboxhq/codebox/internal/model"
	"github.com/codeboxhq/codebox/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, password_hash, github_id, username, full_name,
	bio, avatar_url, website, github_url, linkedin_url, created_at, updated_at`

// CreateUser inserts an email/password account. The caller sets Email,
// PasswordHash, and Username; ID and timestamps are generated here.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, github_id, username,
			full_name, bio, avatar_url, website, github_url, linkedin_url,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		emailValue(user.Email),
		user.PasswordHash,
		githubIDValue(user.GitHubID),
		user.Username,
		user.FullName,
		user.Bio,
		user.AvatarURL,
		user.Website,
		user.GitHubURL,
		user.LinkedinURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(conflictMessage(err))
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email", email)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, "username", username)
}

// UpsertByGitHubID inserts a user on first OAuth login, or refreshes their
// name/avatar on subsequent logins. The user keeps their internal ID, email,
// and any profile fields they edited; only GitHub-sourced fields update.
func (db *DB) UpsertByGitHubID(ctx context.Context, user *model.User) error {
	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	if existingID != "" {
		user.ID = existingID
		user.UpdatedAt = time.Now()
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET full_name = ?, avatar_url = ?, updated_at = ?
			 WHERE id = ?`,
			user.FullName,
			user.AvatarURL,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	return db.CreateUser(ctx, user)
}

// UpdateProfile writes the user-editable profile fields. Username uniqueness
// violations surface as Conflict so the settings form can show "taken".
func (db *DB) UpdateProfile(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET username = ?, full_name = ?, bio = ?, avatar_url = ?,
		     website = ?, github_url = ?, linkedin_url = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username,
		user.FullName,
		user.Bio,
		user.AvatarURL,
		user.Website,
		user.GitHubURL,
		user.LinkedinURL,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("username is already taken")
		}
		return fmt.Errorf("sqlite: updating profile %s: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}

func (db *DB) getUser(ctx context.Context, column, value string) (*model.User, error) {
	var u model.User
	var email sql.NullString
	var githubID sql.NullInt64

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value,
	).Scan(
		&u.ID, &email, &u.PasswordHash, &githubID, &u.Username, &u.FullName,
		&u.Bio, &u.AvatarURL, &u.Website, &u.GitHubURL, &u.LinkedinURL,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}

	u.Email = email.String
	u.GitHubID = githubID.Int64
	return &u, nil
}

// githubIDValue maps the zero GitHubID to NULL so the UNIQUE constraint on
// github_id only applies to linked accounts (SQLite allows repeated NULLs).
func githubIDValue(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// emailValue maps an absent email to NULL for the same reason: GitHub users
// can hide their email, and two hidden emails must not collide on the
// users.email UNIQUE constraint.
func emailValue(email string) any {
	if email == "" {
		return nil
	}
	return email
}

// conflictMessage turns a UNIQUE violation into a user-facing message naming
// the colliding field.
func conflictMessage(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.email"):
		return "email is already registered"
	case strings.Contains(msg, "users.username"):
		return "username is already taken"
	default:
		return "account already exists"
	}
}
