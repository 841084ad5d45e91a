package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJanitor_Sweep(t *testing.T) {
	clk := newFakeClock()
	login := NewRateLimiter(5, time.Minute, WithLimiterClock(clk.Now))
	register := NewRateLimiter(3, time.Hour, WithLimiterClock(clk.Now))

	login.IsAllowed("1.2.3.4")
	register.IsAllowed("1.2.3.4")
	clk.Advance(2 * time.Minute)

	j := NewJanitor(time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)), map[string]*RateLimiter{
		"login":    login,
		"register": register,
	})
	j.Sweep()

	assert.Zero(t, login.Len())
	assert.Equal(t, 1, register.Len(), "register window has not lapsed")
}

func TestJanitor_RunStopsOnCancel(t *testing.T) {
	l := NewRateLimiter(1, time.Nanosecond)
	l.IsAllowed("k")

	j := NewJanitor(time.Millisecond, nil, map[string]*RateLimiter{"login": l})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	require.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
