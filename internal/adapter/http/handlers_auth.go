package adapthttp

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"warden/internal/app"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in app.RegisterInput
	if err := parseJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, apiError{Code: "BAD_REQUEST", Message: err.Error()})
		return
	}

	res, err := s.auth.Register(r.Context(), in, clientIP(r, s.opts.TrustProxyHeaders))
	if err != nil {
		s.writeAuthError(w, r, "register", err)
		return
	}
	s.metrics.AuthAttempt("register", "success")

	s.setSessionCookie(w, res.Token, res.Session.ExpiresAt)
	writeJSON(w, http.StatusCreated, map[string]any{"user": res.User})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in app.LoginInput
	if err := parseJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, apiError{Code: "BAD_REQUEST", Message: err.Error()})
		return
	}

	res, err := s.auth.Login(r.Context(), in, clientIP(r, s.opts.TrustProxyHeaders))
	if err != nil {
		s.writeAuthError(w, r, "login", err)
		return
	}
	s.metrics.AuthAttempt("login", "success")

	s.setSessionCookie(w, res.Token, res.Session.ExpiresAt)
	writeJSON(w, http.StatusOK, map[string]any{"user": res.User})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(r.Context(), sessionIDFrom(r))
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      id.User,
		"expiresAt": id.Session.ExpiresAt,
	})
}

// writeAuthError maps an AuthService error to its response.
func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, action string, err error) {
	var (
		verr *app.ValidationError
		rerr *app.RateLimitError
	)
	switch {
	case errors.As(err, &verr):
		s.metrics.AuthAttempt(action, "validation_error")
		writeError(w, http.StatusBadRequest, apiError{
			Code:    "VALIDATION_ERROR",
			Message: "invalid input",
			Details: verr.Fields,
		})
	case errors.As(err, &rerr):
		s.metrics.AuthAttempt(action, "rate_limited")
		s.metrics.RateLimited(action)
		secs := retryAfterSeconds(rerr)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeError(w, http.StatusTooManyRequests, apiError{
			Code:              "TOO_MANY_REQUESTS",
			Message:           "too many attempts, try again later",
			RetryAfterSeconds: secs,
		})
	case errors.Is(err, app.ErrEmailTaken):
		s.metrics.AuthAttempt(action, "conflict")
		writeError(w, http.StatusConflict, apiError{Code: "CONFLICT", Message: "email already registered"})
	case errors.Is(err, app.ErrInvalidCredentials):
		s.metrics.AuthAttempt(action, "invalid_credentials")
		writeError(w, http.StatusUnauthorized, apiError{Code: "UNAUTHORIZED", Message: "invalid email or password"})
	default:
		s.metrics.AuthAttempt(action, "error")
		s.log.ErrorContext(r.Context(), action+" failed",
			"request_id", RequestIDFrom(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, apiError{Code: "INTERNAL_ERROR", Message: "internal error"})
	}
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(e *app.RateLimitError) int {
	return max(1, int(math.Ceil(e.RetryAfter.Seconds())))
}
