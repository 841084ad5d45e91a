package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"warden/internal/domain"
)

var (
	_ domain.UserStore    = (*DB)(nil)
	_ domain.SessionStore = (*DB)(nil)
)

// InsertUser creates a user. A duplicate email yields domain.ErrEmailTaken.
func (d *DB) InsertUser(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	res, err := d.sql.ExecContext(ctx,
		"INSERT INTO users (email, password_hash) VALUES (?, ?)",
		email, passwordHash,
	)
	if isUniqueViolation(err) {
		return nil, domain.ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: id, Email: email, PasswordHash: passwordHash}, nil
}

// SelectUserByEmail retrieves a user by email.
func (d *DB) SelectUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := d.sql.QueryRowContext(ctx,
		"SELECT id, email, password_hash FROM users WHERE email = ?",
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser deletes a user. Foreign keys are enforced, so its sessions
// are removed too.
func (d *DB) DeleteUser(ctx context.Context, id int64) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	return err
}

// InsertSession creates a new session.
func (d *DB) InsertSession(ctx context.Context, s domain.Session) error {
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)",
		s.ID, s.UserID, s.ExpiresAt.Unix(),
	)
	return err
}

// SelectSessionWithUser retrieves a session and its owner.
func (d *DB) SelectSessionWithUser(ctx context.Context, sessionID string) (*domain.SessionWithUser, error) {
	var (
		row       domain.SessionWithUser
		expiresAt int64
	)
	err := d.sql.QueryRowContext(ctx,
		`SELECT s.id, s.user_id, s.expires_at, u.id, u.email, u.password_hash
		FROM sessions s INNER JOIN users u ON u.id = s.user_id
		WHERE s.id = ?`,
		sessionID,
	).Scan(&row.Session.ID, &row.Session.UserID, &expiresAt, &row.User.ID, &row.User.Email, &row.User.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.Session.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &row, nil
}

// UpdateSessionExpiry sets a session's expiry.
func (d *DB) UpdateSessionExpiry(ctx context.Context, sessionID string, expiresAt time.Time) error {
	_, err := d.sql.ExecContext(ctx,
		"UPDATE sessions SET expires_at = ? WHERE id = ?",
		expiresAt.Unix(), sessionID,
	)
	return err
}

// DeleteSession deletes a session by id.
func (d *DB) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	return err
}
