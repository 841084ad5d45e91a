// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"warden/internal/domain"
)

// RegisterInput is the payload of a registration attempt.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"min=8,max=1024"`
	Confirm  string `json:"confirm" validate:"eqfield=Password"`
}

// LoginInput is the payload of a login attempt.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"max=1024"`
}

// AuthResult is returned by successful Register and Login calls. Token is
// the raw session token for the client cookie and must not be logged.
type AuthResult struct {
	Token   string
	Session *domain.Session
	User    *domain.User
}

// Limiters groups the rate limiters guarding the auth actions.
type Limiters struct {
	Login    *RateLimiter
	Register *RateLimiter
}

// AuthService handles registration, login and logout.
type AuthService struct {
	users    domain.UserStore
	sessions *SessionService
	hasher   *PasswordHasher
	limiters Limiters
	validate *validator.Validate
	log      *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserStore, sessions *SessionService, hasher *PasswordHasher, limiters Limiters, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		limiters: limiters,
		validate: v,
		log:      log,
	}
}

// Register creates an account and logs it in. clientKey identifies the
// caller for throttling (usually the client IP).
func (s *AuthService) Register(ctx context.Context, in RegisterInput, clientKey string) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return nil, err
	}
	if !s.limiters.Register.IsAllowed(clientKey) {
		return nil, rateLimited(s.limiters.Register, clientKey)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.InsertUser(ctx, in.Email, hash)
	if errors.Is(err, domain.ErrEmailTaken) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s.log.InfoContext(ctx, "user registered", "user_id", user.ID)
	return s.startSession(ctx, user)
}

// Login verifies credentials and creates a session. A successful login
// clears clientKey's login attempts.
func (s *AuthService) Login(ctx context.Context, in LoginInput, clientKey string) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return nil, err
	}
	if !s.limiters.Login.IsAllowed(clientKey) {
		return nil, rateLimited(s.limiters.Login, clientKey)
	}

	user, err := s.users.SelectUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	if user == nil {
		s.hasher.DummyVerify(in.Password)
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(user.PasswordHash, in.Password)
	if err != nil {
		s.log.ErrorContext(ctx, "verify password", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	res, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.limiters.Login.Reset(clientKey)
	return res, nil
}

// Logout invalidates the session. It never fails: the client cookie is
// cleared regardless and a leftover row simply expires.
func (s *AuthService) Logout(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	s.sessions.InvalidateSession(ctx, sessionID)
}

func (s *AuthService) startSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, err := s.sessions.GenerateToken()
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.CreateSession(ctx, token, user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Session: sess, User: user}, nil
}

func (s *AuthService) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "eqfield":
		return "passwords don't match"
	default:
		return "is invalid"
	}
}

func rateLimited(l *RateLimiter, key string) error {
	wait, _ := l.RemainingTime(key)
	return &RateLimitError{RetryAfter: wait}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
