package app

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const limiterShards = 32

type attempt struct {
	count       int
	lastAttempt time.Time
}

type limiterShard struct {
	mu       sync.Mutex
	attempts map[string]*attempt
}

// RateLimiter bounds the number of attempts per key within a window.
//
// The window is anchored to the most recent allowed attempt, not to the first
// one: every allowed attempt pushes the window forward. A key is only released
// after a full window of inactivity (or an explicit Reset).
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	now         func() time.Time
	shards      [limiterShards]limiterShard
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithLimiterClock overrides the time source.
func WithLimiterClock(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) { l.now = now }
}

// NewRateLimiter creates a limiter allowing maxAttempts per window per key.
// It panics if either parameter is not positive.
func NewRateLimiter(maxAttempts int, window time.Duration, opts ...RateLimiterOption) *RateLimiter {
	if maxAttempts <= 0 {
		panic("app: rate limiter maxAttempts must be positive")
	}
	if window <= 0 {
		panic("app: rate limiter window must be positive")
	}
	l := &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
	for i := range l.shards {
		l.shards[i].attempts = make(map[string]*attempt)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxAttempts returns the configured attempt budget.
func (l *RateLimiter) MaxAttempts() int { return l.maxAttempts }

// Window returns the configured window.
func (l *RateLimiter) Window() time.Duration { return l.window }

func (l *RateLimiter) shard(key string) *limiterShard {
	return &l.shards[xxhash.Sum64String(key)%limiterShards]
}

func (l *RateLimiter) expired(a *attempt, now time.Time) bool {
	return now.Sub(a.lastAttempt) > l.window
}

// IsAllowed records an attempt for key and reports whether it is within
// budget. Denied attempts are not recorded.
func (l *RateLimiter) IsAllowed(key string) bool {
	sh := l.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := l.now()
	a, ok := sh.attempts[key]
	if !ok || l.expired(a, now) {
		sh.attempts[key] = &attempt{count: 1, lastAttempt: now}
		return true
	}
	if a.count < l.maxAttempts {
		a.count++
		a.lastAttempt = now
		return true
	}
	return false
}

// Reset forgets all attempts for key.
func (l *RateLimiter) Reset(key string) {
	sh := l.shard(key)
	sh.mu.Lock()
	delete(sh.attempts, key)
	sh.mu.Unlock()
}

// RemainingAttempts returns how many more attempts key may make in the
// current window.
func (l *RateLimiter) RemainingAttempts(key string) int {
	sh := l.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	a, ok := sh.attempts[key]
	if !ok || l.expired(a, l.now()) {
		return l.maxAttempts
	}
	return max(0, l.maxAttempts-a.count)
}

// RemainingTime returns the time until key's window lapses. The boolean is
// false when key has no recorded attempts.
func (l *RateLimiter) RemainingTime(key string) (time.Duration, bool) {
	sh := l.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	a, ok := sh.attempts[key]
	if !ok {
		return 0, false
	}
	return max(0, l.window-l.now().Sub(a.lastAttempt)), true
}

// CleanupStaleEntries drops every key whose window has lapsed and returns the
// number of keys removed. Shards are locked one at a time.
func (l *RateLimiter) CleanupStaleEntries() int {
	removed := 0
	for i := range l.shards {
		sh := &l.shards[i]
		sh.mu.Lock()
		now := l.now()
		for key, a := range sh.attempts {
			if l.expired(a, now) {
				delete(sh.attempts, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len returns the number of keys currently tracked.
func (l *RateLimiter) Len() int {
	n := 0
	for i := range l.shards {
		sh := &l.shards[i]
		sh.mu.Lock()
		n += len(sh.attempts)
		sh.mu.Unlock()
	}
	return n
}
