// Package sqlite implements the domain stores using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"warden/internal/db"
)

// DB wraps a single-writer SQLite connection.
type DB struct {
	sql *sql.DB
}

// Open opens (creating if needed) the database at path with WAL mode and
// foreign keys enabled, and runs migrations.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000", path)
	s, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.PingContext(pingCtx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := db.Migrate(ctx, s, db.SQLite); err != nil {
		_ = s.Close()
		return nil, err
	}

	// Single writer from here on.
	s.SetMaxOpenConns(1)
	return &DB{sql: s}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
