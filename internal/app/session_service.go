package app

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"warden/internal/domain"
)

const (
	// SessionLifetime is how long a session lives after creation or renewal.
	SessionLifetime = 30 * 24 * time.Hour
	// SessionRenewThreshold is the remaining lifetime below which a
	// validated session is extended.
	SessionRenewThreshold = 15 * 24 * time.Hour

	tokenBytes = 20
)

// ErrSessionCreation is returned when a new session cannot be persisted.
// Callers should treat it as an internal, retryable failure.
var ErrSessionCreation = errors.New("failed to create session")

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ValidationStatus is the outcome of validating a session token.
type ValidationStatus int

const (
	// SessionNotFound means no session matches the token.
	SessionNotFound ValidationStatus = iota
	// SessionExpired means the session existed but had expired; it has been
	// removed.
	SessionExpired
	// SessionValid means the session is active.
	SessionValid
)

func (s ValidationStatus) String() string {
	switch s {
	case SessionNotFound:
		return "not_found"
	case SessionExpired:
		return "expired"
	case SessionValid:
		return "valid"
	default:
		return fmt.Sprintf("ValidationStatus(%d)", int(s))
	}
}

// Validation is the result of SessionService.ValidateSessionToken. Session
// and User are set only when Status is SessionValid.
type Validation struct {
	Status  ValidationStatus
	Session *domain.Session
	User    *domain.User
	// Renewed reports whether the expiry was extended during validation.
	Renewed bool
}

// Valid reports whether the validation produced an active session.
func (v Validation) Valid() bool { return v.Status == SessionValid }

// SessionService manages the session lifecycle.
type SessionService struct {
	store domain.SessionStore
	now   func() time.Time
	log   *slog.Logger
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithSessionClock overrides the time source.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// WithSessionLogger sets the logger used for swallowed store failures.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *SessionService) { s.log = l }
}

// NewSessionService creates a SessionService backed by store.
func NewSessionService(store domain.SessionStore, opts ...SessionOption) *SessionService {
	s := &SessionService{
		store: store,
		now:   time.Now,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateToken returns a new random session token: 20 bytes from the system
// CSPRNG, lowercase base32 without padding (32 characters).
func (s *SessionService) GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return strings.ToLower(tokenEncoding.EncodeToString(b)), nil
}

// SessionIDFromToken derives the storage id for a raw token.
func SessionIDFromToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// expiry returns now+SessionLifetime at the one-second precision stores use.
func (s *SessionService) expiry(now time.Time) time.Time {
	return now.Add(SessionLifetime).Truncate(time.Second).UTC()
}

// CreateSession persists a new session for userID keyed by the hash of token.
func (s *SessionService) CreateSession(ctx context.Context, token string, userID int64) (*domain.Session, error) {
	sess := domain.Session{
		ID:        SessionIDFromToken(token),
		UserID:    userID,
		ExpiresAt: s.expiry(s.now()),
	}
	if err := s.store.InsertSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionCreation, err)
	}
	return &sess, nil
}

// ValidateSessionToken looks up the session for token. Missing and expired
// sessions are reported through Validation.Status; the returned error is
// non-nil only when the store fails.
//
// Expired sessions are deleted on read. Sessions with less than
// SessionRenewThreshold remaining are extended to a full SessionLifetime.
func (s *SessionService) ValidateSessionToken(ctx context.Context, token string) (Validation, error) {
	id := SessionIDFromToken(token)

	row, err := s.store.SelectSessionWithUser(ctx, id)
	if err != nil {
		return Validation{}, fmt.Errorf("select session: %w", err)
	}
	if row == nil {
		return Validation{Status: SessionNotFound}, nil
	}

	now := s.now()
	sess, user := row.Session, row.User

	if !now.Before(sess.ExpiresAt) {
		if err := s.store.DeleteSession(ctx, sess.ID); err != nil {
			s.log.WarnContext(ctx, "delete expired session", "error", err)
		}
		return Validation{Status: SessionExpired}, nil
	}

	renewed := false
	if sess.ExpiresAt.Sub(now) < SessionRenewThreshold {
		expiresAt := s.expiry(now)
		if err := s.store.UpdateSessionExpiry(ctx, sess.ID, expiresAt); err != nil {
			return Validation{}, fmt.Errorf("renew session: %w", err)
		}
		sess.ExpiresAt = expiresAt
		renewed = true
	}

	return Validation{Status: SessionValid, Session: &sess, User: &user, Renewed: renewed}, nil
}

// InvalidateSession deletes the session. Store failures are logged and
// otherwise ignored; the session will still expire on its own.
func (s *SessionService) InvalidateSession(ctx context.Context, sessionID string) {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		s.log.WarnContext(ctx, "invalidate session", "error", err)
	}
}
