// Package storetest holds behaviour tests shared by every store adapter.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/internal/domain"
)

// Store is the full surface an adapter exposes.
type Store interface {
	domain.UserStore
	domain.SessionStore
	DeleteUser(ctx context.Context, id int64) error
}

// Run exercises a fresh, empty store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("cascade", func(t *testing.T) { testCascade(t, newStore(t)) })
	t.Run("missing rows", func(t *testing.T) { testMissing(t, newStore(t)) })
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()

	u, err := s.InsertUser(ctx, "a@example.com", "hash-a")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "a@example.com", u.Email)

	_, err = s.InsertUser(ctx, "a@example.com", "hash-b")
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	other, err := s.InsertUser(ctx, "b@example.com", "hash-b")
	require.NoError(t, err)
	assert.NotEqual(t, u.ID, other.ID)

	got, err := s.SelectUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *u, *got)

	missing, err := s.SelectUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testSessions(t *testing.T, s Store) {
	ctx := context.Background()

	u, err := s.InsertUser(ctx, "a@example.com", "hash")
	require.NoError(t, err)

	exp := time.Date(2031, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, s.InsertSession(ctx, domain.Session{ID: "sid", UserID: u.ID, ExpiresAt: exp}))

	assert.Error(t, s.InsertSession(ctx, domain.Session{ID: "orphan", UserID: u.ID + 1000, ExpiresAt: exp}),
		"sessions must reference an existing user")

	row, err := s.SelectSessionWithUser(ctx, "sid")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "sid", row.Session.ID)
	assert.Equal(t, u.ID, row.Session.UserID)
	assert.True(t, row.Session.ExpiresAt.Equal(exp), "got %v", row.Session.ExpiresAt)
	assert.Equal(t, *u, row.User)

	later := exp.Add(10 * 24 * time.Hour)
	require.NoError(t, s.UpdateSessionExpiry(ctx, "sid", later))
	row, err = s.SelectSessionWithUser(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, row.Session.ExpiresAt.Equal(later))

	require.NoError(t, s.DeleteSession(ctx, "sid"))
	row, err = s.SelectSessionWithUser(ctx, "sid")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func testCascade(t *testing.T, s Store) {
	ctx := context.Background()

	u, err := s.InsertUser(ctx, "a@example.com", "hash")
	require.NoError(t, err)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, s.InsertSession(ctx, domain.Session{ID: "s1", UserID: u.ID, ExpiresAt: exp}))
	require.NoError(t, s.InsertSession(ctx, domain.Session{ID: "s2", UserID: u.ID, ExpiresAt: exp}))

	require.NoError(t, s.DeleteUser(ctx, u.ID))

	for _, id := range []string{"s1", "s2"} {
		row, err := s.SelectSessionWithUser(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, row, id)
	}
	got, err := s.SelectUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testMissing(t *testing.T, s Store) {
	ctx := context.Background()

	row, err := s.SelectSessionWithUser(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, row)

	assert.NoError(t, s.UpdateSessionExpiry(ctx, "nope", time.Now()))
	assert.NoError(t, s.DeleteSession(ctx, "nope"))
	assert.NoError(t, s.DeleteUser(ctx, 12345))
}
