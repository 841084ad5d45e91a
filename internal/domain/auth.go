// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrEmailTaken is returned by UserStore.InsertUser when the email is already
// registered.
var ErrEmailTaken = errors.New("email already registered")

// User represents a registered account.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// Session represents an active login. ID is the lowercase hex SHA-256 of the
// raw token held in the client's cookie; the raw token is never stored.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionWithUser is a session row joined with its owner.
type SessionWithUser struct {
	Session Session
	User    User
}

// UserStore defines the port for user persistence operations.
// SelectUserByEmail returns (nil, nil) when no user matches.
type UserStore interface {
	InsertUser(ctx context.Context, email, passwordHash string) (*User, error)
	SelectUserByEmail(ctx context.Context, email string) (*User, error)
}

// SessionStore defines the port for session persistence operations.
// SelectSessionWithUser returns (nil, nil) when no session matches, and
// DeleteSession on a missing id is a no-op.
type SessionStore interface {
	InsertSession(ctx context.Context, s Session) error
	SelectSessionWithUser(ctx context.Context, sessionID string) (*SessionWithUser, error)
	UpdateSessionExpiry(ctx context.Context, sessionID string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sessionID string) error
}
