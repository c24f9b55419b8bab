package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// userIDNamespace is the UUIDv5 namespace for deterministic user ids.
// The same username always maps to the same id, so a rebuilt database
// reassigns identical ids to returning clients.
var userIDNamespace = uuid.MustParse("a1b2c3d4-e5f6-7890-abcd-ef1234567890")

// MakeUserID derives the deterministic user id for a username.
func MakeUserID(username string) string {
	return uuid.NewSHA1(userIDNamespace, []byte(username)).String()
}

// User is a registered account.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	DisplayName  string
	Email        string
	Mobile       string
	Department   string
	CreatedAt    int64
}

const userColumns = "id, username, password_hash, display_name, email, mobile, department, created_at"

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName,
		&u.Email, &u.Mobile, &u.Department, &u.CreatedAt)
	if err != nil {
		return nil, one(err)
	}
	return &u, nil
}

// CreateUser inserts u. An empty ID is filled with the deterministic id
// for the username. Returns ErrUsernameTaken when the username exists.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = MakeUserID(u.Username)
	}
	if u.CreatedAt == 0 {
		u.CreatedAt = nowMillis()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		u.ID, u.Username, u.PasswordHash, u.DisplayName, u.Email, u.Mobile, u.Department, u.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrUsernameTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// ErrUsernameTaken is returned when registering a username that exists.
var ErrUsernameTaken = fmt.Errorf("store: username already exists")

// UserByID returns the user with the given id.
func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// UserByUsername returns the user with the given username.
func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return scanUser(row)
}

// EnsureUser returns the user with the given username, creating it with
// the deterministic id and an empty password when absent.
func (s *Store) EnsureUser(ctx context.Context, username string) (*User, error) {
	u, err := s.UserByUsername(ctx, username)
	if err == nil {
		return u, nil
	}
	if err != ErrNotFound {
		return nil, err
	}
	u = &User{Username: username, DisplayName: username}
	if err := s.CreateUser(ctx, u); err != nil {
		if err == ErrUsernameTaken {
			// Lost a create race; the row exists now.
			return s.UserByUsername(ctx, username)
		}
		return nil, err
	}
	return u, nil
}

// SetPassword replaces a user's password hash.
func (s *Store) SetPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, userID)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}
