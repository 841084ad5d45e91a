package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/internal/adapter/storetest"
	"warden/internal/db"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(context.Background(), filepath.Join(t.TempDir(), "warden.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store { return openTestDB(t) })
}

func TestOpen_MigratesOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "warden.db")

	d, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = d.InsertUser(ctx, "a@example.com", "hash")
	require.NoError(t, err)
	v, err := db.Version(ctx, d.sql, db.SQLite)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	require.NoError(t, d.Close())

	// Reopening keeps data and does not re-run migrations.
	d, err = Open(ctx, path)
	require.NoError(t, err)
	defer d.Close()
	u, err := d.SelectUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.NotNil(t, u)
	assert.NoError(t, d.Ping(ctx))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(fmt.Errorf("plain")))
	assert.True(t, isUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}))
	assert.False(t, isUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}))
}
