// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"warden/internal/domain"
)

// ErrUnknownUser is returned when a session references a user that does not
// exist, mirroring the foreign key in the SQL schemas.
var ErrUnknownUser = errors.New("unknown user")

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	users    map[int64]domain.User
	byEmail  map[string]int64
	sessions map[string]domain.Session

	userIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		users:    make(map[int64]domain.User),
		byEmail:  make(map[string]int64),
		sessions: make(map[string]domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.UserStore = (*DB)(nil)
var _ domain.SessionStore = (*DB)(nil)

// --- UserStore ---

// InsertUser creates a user. Emails are unique.
func (db *DB) InsertUser(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.byEmail[email]; ok {
		return nil, domain.ErrEmailTaken
	}

	db.userIDCounter++
	u := domain.User{ID: db.userIDCounter, Email: email, PasswordHash: passwordHash}
	db.users[u.ID] = u
	db.byEmail[email] = u.ID
	return &u, nil
}

// SelectUserByEmail returns the user with the given email, or nil.
func (db *DB) SelectUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	id, ok := db.byEmail[email]
	if !ok {
		return nil, nil
	}
	u := db.users[id]
	return &u, nil
}

// DeleteUser removes a user and, like ON DELETE CASCADE, all of its sessions.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return nil
	}
	delete(db.users, id)
	delete(db.byEmail, u.Email)
	for sid, s := range db.sessions {
		if s.UserID == id {
			delete(db.sessions, sid)
		}
	}
	return nil
}

// --- SessionStore ---

// InsertSession stores a new session.
func (db *DB) InsertSession(ctx context.Context, s domain.Session) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[s.UserID]; !ok {
		return fmt.Errorf("insert session: %w", ErrUnknownUser)
	}
	if _, ok := db.sessions[s.ID]; ok {
		return fmt.Errorf("insert session: duplicate id")
	}
	db.sessions[s.ID] = s
	return nil
}

// SelectSessionWithUser returns the session joined with its user, or nil.
func (db *DB) SelectSessionWithUser(ctx context.Context, sessionID string) (*domain.SessionWithUser, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	u, ok := db.users[s.UserID]
	if !ok {
		return nil, nil
	}
	return &domain.SessionWithUser{Session: s, User: u}, nil
}

// UpdateSessionExpiry sets a new expiry. Updating a missing session is a no-op.
func (db *DB) UpdateSessionExpiry(ctx context.Context, sessionID string, expiresAt time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if s, ok := db.sessions[sessionID]; ok {
		s.ExpiresAt = expiresAt
		db.sessions[sessionID] = s
	}
	return nil
}

// DeleteSession removes a session. Deleting a missing session is a no-op.
func (db *DB) DeleteSession(ctx context.Context, sessionID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.sessions, sessionID)
	return nil
}

// Ping always succeeds.
func (db *DB) Ping(ctx context.Context) error { return nil }
