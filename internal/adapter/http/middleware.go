package adapthttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"warden/internal/app"
	"warden/internal/domain"
)

type contextKey string

const (
	identityContextKey  contextKey = "identity"
	requestIDContextKey contextKey = "request_id"

	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"
)

// Identity is the authenticated principal attached to a request. Anonymous
// requests carry no Identity.
type Identity struct {
	Session *domain.Session
	User    *domain.User
}

// IdentityFrom returns the request's identity, if the session cookie was valid.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(*Identity)
	return id, ok && id != nil
}

// RequestIDFrom returns the request ID assigned by the requestID middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// requestID propagates X-Request-ID or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionGuard resolves the session cookie into an Identity. It never blocks
// a request: anything but a valid session continues anonymously.
func (s *Server) sessionGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.opts.StoreTimeout)
		v, err := s.sessions.ValidateSessionToken(ctx, cookie.Value)
		cancel()
		if err != nil {
			// Keep the cookie: a store outage must not log everyone out.
			s.metrics.SessionValidation("error")
			s.log.ErrorContext(r.Context(), "validate session",
				"request_id", RequestIDFrom(r.Context()),
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}
		s.metrics.SessionValidation(v.Status.String())

		if !v.Valid() {
			s.clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		s.setSessionCookie(w, cookie.Value, v.Session.ExpiresAt)
		id := &Identity{Session: v.Session, User: v.User}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityContextKey, id)))
	})
}

// requireUser rejects anonymous requests with 401.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, apiError{Code: "UNAUTHORIZED", Message: "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// loggingMiddleware logs each request at a level chosen by its status and
// records it in the request metrics.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		s.metrics.ObserveRequest(r.Method, rec.status, elapsed)

		level := slog.LevelDebug
		switch {
		case rec.status >= 500:
			level = slog.LevelError
		case rec.status >= 400:
			level = slog.LevelWarn
		}
		s.log.Log(r.Context(), level, "request",
			"request_id", RequestIDFrom(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

// recoverer turns a handler panic into a 500.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(p)
				}
				s.log.ErrorContext(r.Context(), "panic recovered",
					"request_id", RequestIDFrom(r.Context()),
					"panic", p,
					"method", r.Method,
					"path", r.URL.Path,
				)
				writeError(w, http.StatusInternalServerError, apiError{Code: "INTERNAL_ERROR", Message: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// sessionIDFrom returns the id of the session presented by the request, even
// when the guard did not accept it.
func sessionIDFrom(r *http.Request) string {
	if id, ok := IdentityFrom(r.Context()); ok {
		return id.Session.ID
	}
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return app.SessionIDFromToken(c.Value)
	}
	return ""
}
