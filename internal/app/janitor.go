package app

import (
	"context"
	"log/slog"
	"time"
)

// Janitor periodically drops stale rate-limit entries. It does nothing until
// Run is called and stops when Run's context is cancelled.
type Janitor struct {
	interval time.Duration
	limiters map[string]*RateLimiter
	log      *slog.Logger
}

// NewJanitor creates a Janitor sweeping the named limiters every interval.
func NewJanitor(interval time.Duration, log *slog.Logger, limiters map[string]*RateLimiter) *Janitor {
	if log == nil {
		log = slog.Default()
	}
	return &Janitor{interval: interval, limiters: limiters, log: log}
}

// Run sweeps on every tick until ctx is done. It always returns ctx.Err().
func (j *Janitor) Run(ctx context.Context) error {
	t := time.NewTicker(j.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			j.Sweep()
		}
	}
}

// Sweep runs one cleanup pass over all limiters.
func (j *Janitor) Sweep() {
	for name, l := range j.limiters {
		if n := l.CleanupStaleEntries(); n > 0 {
			j.log.Debug("rate limiter cleanup", "limiter", name, "removed", n, "tracked", l.Len())
		}
	}
}
