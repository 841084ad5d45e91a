// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StoreKind names a storage backend.
type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreSQLite   StoreKind = "sqlite"
	StoreMemory   StoreKind = "memory"
)

// Config holds the process settings.
type Config struct {
	Addr        string
	DatabaseURL string
	AppEnv      string
	LogLevel    slog.Level
	WebDir      string

	LoginMaxAttempts    int
	LoginWindow         time.Duration
	RegisterMaxAttempts int
	RegisterWindow      time.Duration
	CleanupInterval     time.Duration

	// StoreTimeout bounds each store call made while authenticating a request.
	StoreTimeout      time.Duration
	TrustProxyHeaders bool
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var l loader
	c := &Config{
		Addr:        l.getEnv("ADDR", ":8080"),
		DatabaseURL: l.getEnv("DATABASE_URL", "sqlite:warden.db"),
		AppEnv:      l.getEnv("APP_ENV", "development"),
		LogLevel:    l.getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
		WebDir:      l.getEnv("WEB_DIR", "web"),

		LoginMaxAttempts:    l.getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:         l.getEnvAsDuration("LOGIN_WINDOW", 15*time.Minute),
		RegisterMaxAttempts: l.getEnvAsInt("REGISTER_MAX_ATTEMPTS", 3),
		RegisterWindow:      l.getEnvAsDuration("REGISTER_WINDOW", 30*time.Minute),
		CleanupInterval:     l.getEnvAsDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),

		StoreTimeout:      l.getEnvAsDuration("STORE_TIMEOUT", 3*time.Second),
		TrustProxyHeaders: l.getEnvAsBool("TRUST_PROXY_HEADERS", false),
	}
	if err := errors.Join(l.errs...); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("ADDR must not be empty"))
	}
	if _, _, err := c.Store(); err != nil {
		errs = append(errs, err)
	}
	positive := []struct {
		name string
		ok   bool
	}{
		{"LOGIN_MAX_ATTEMPTS", c.LoginMaxAttempts > 0},
		{"LOGIN_WINDOW", c.LoginWindow > 0},
		{"REGISTER_MAX_ATTEMPTS", c.RegisterMaxAttempts > 0},
		{"REGISTER_WINDOW", c.RegisterWindow > 0},
		{"RATE_LIMIT_CLEANUP_INTERVAL", c.CleanupInterval > 0},
		{"STORE_TIMEOUT", c.StoreTimeout > 0},
	}
	for _, p := range positive {
		if !p.ok {
			errs = append(errs, fmt.Errorf("%s must be positive", p.name))
		}
	}
	return errors.Join(errs...)
}

// Production reports whether APP_ENV is "production".
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

// Store resolves DATABASE_URL to a backend and its connection string.
func (c *Config) Store() (StoreKind, string, error) {
	u := c.DatabaseURL
	switch {
	case u == "memory":
		return StoreMemory, "", nil
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return StorePostgres, u, nil
	case strings.HasPrefix(u, "sqlite:"):
		path := strings.TrimPrefix(u, "sqlite:")
		if path == "" {
			return "", "", errors.New("DATABASE_URL: sqlite path is empty")
		}
		return StoreSQLite, path, nil
	case strings.HasSuffix(u, ".db"):
		return StoreSQLite, u, nil
	default:
		return "", "", fmt.Errorf("DATABASE_URL: unsupported value %q", u)
	}
}

// loader collects parse failures so every bad variable is reported at once.
type loader struct {
	errs []error
}

func (l *loader) getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (l *loader) getEnvAsInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (l *loader) getEnvAsDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (l *loader) getEnvAsBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (l *loader) getEnvAsLevel(key string, def slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return lvl
}
