// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"warden/internal/app"
	"warden/internal/metrics"
)

// Authenticator performs the account actions behind the auth endpoints.
type Authenticator interface {
	Register(ctx context.Context, in app.RegisterInput, clientKey string) (*app.AuthResult, error)
	Login(ctx context.Context, in app.LoginInput, clientKey string) (*app.AuthResult, error)
	Logout(ctx context.Context, sessionID string)
}

// SessionValidator resolves a raw session token.
type SessionValidator interface {
	ValidateSessionToken(ctx context.Context, token string) (app.Validation, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune the server.
type Options struct {
	WebDir string
	// SecureCookies sets the Secure attribute on the session cookie.
	SecureCookies bool
	// StoreTimeout bounds session validation for each request.
	StoreTimeout      time.Duration
	TrustProxyHeaders bool
	// Health is pinged by /api/health when set.
	Health Pinger
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth     Authenticator
	sessions SessionValidator
	metrics  *metrics.Metrics
	log      *slog.Logger
	opts     Options
}

// New creates a Server wired to the given application services.
func New(auth Authenticator, sessions SessionValidator, m *metrics.Metrics, log *slog.Logger, opts Options) *Server {
	if log == nil {
		log = slog.Default()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 3 * time.Second
	}
	return &Server{auth: auth, sessions: sessions, metrics: m, log: log, opts: opts}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /health", s.handleHealth)

	api.HandleFunc("POST /auth/register", s.handleRegister)
	api.HandleFunc("POST /auth/login", s.handleLogin)
	api.HandleFunc("POST /auth/logout", s.handleLogout)
	api.Handle("GET /auth/me", s.requireUser(http.HandlerFunc(s.handleMe)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("GET /metrics", s.metrics.Handler())
	if s.opts.WebDir != "" {
		root.Handle("/", spaFromDisk(s.opts.WebDir))
	}

	var h http.Handler = withNoCache(root)
	h = s.sessionGuard(h)
	h = s.recoverer(h)
	h = s.loggingMiddleware(h)
	return requestID(h)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.StoreTimeout)
		defer cancel()
		if err := s.opts.Health.Ping(ctx); err != nil {
			s.log.WarnContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
