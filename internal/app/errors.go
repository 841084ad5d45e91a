package app

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"warden/internal/domain"
)

var (
	// ErrInvalidCredentials indicates that the email or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken indicates that registration hit an existing account.
	ErrEmailTaken = domain.ErrEmailTaken
	// ErrRateLimited matches every *RateLimitError.
	ErrRateLimited = errors.New("too many attempts")
)

// RateLimitError is returned when a client has exhausted its attempts.
type RateLimitError struct {
	// RetryAfter is how long the client must stay idle before the limit lapses.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %s", e.RetryAfter.Round(time.Second))
}

// Is makes errors.Is(err, ErrRateLimited) true.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// ValidationError reports rejected user input, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, name+": "+e.Fields[name])
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}
