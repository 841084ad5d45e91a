package adapthttp

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie carrying the raw session token.
const SessionCookieName = "session"

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	replaceSessionCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	replaceSessionCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// replaceSessionCookie drops any session cookie already queued on the
// response so that at most one Set-Cookie for it is sent.
func replaceSessionCookie(w http.ResponseWriter, c *http.Cookie) {
	h := w.Header()
	prefix := SessionCookieName + "="
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	http.SetCookie(w, c)
}
