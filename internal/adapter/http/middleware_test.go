package adapthttp

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"warden/internal/metrics"
)

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	s := &Server{
		log:     slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		metrics: metrics.New(),
	}
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("OK"))
	})

	handler := requestID(s.loggingMiddleware(nextHandler))

	req := httptest.NewRequest("GET", "/test-path", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status %d, got %d", http.StatusTeapot, w.Code)
	}

	logOutput := buf.String()
	for _, want := range []string{"level=WARN", "method=GET", "path=/test-path", "status=418", "request_id=req-1"} {
		if !strings.Contains(logOutput, want) {
			t.Errorf("log output missing %q. Got: %s", want, logOutput)
		}
	}
}

func TestRecoverer(t *testing.T) {
	var buf bytes.Buffer
	s := &Server{log: slog.New(slog.NewTextHandler(&buf, nil))}
	handler := s.recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("expected panic to be logged, got: %s", buf.String())
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{"remote addr", "192.0.2.1:1234", nil, false, "192.0.2.1"},
		{"ipv6", "[2001:db8::1]:443", nil, false, "2001:db8::1"},
		{"no port", "192.0.2.1", nil, false, "192.0.2.1"},
		{"untrusted xff ignored", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.9"}, false, "10.0.0.1"},
		{"trusted xff first hop", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.2"}, true, "203.0.113.9"},
		{"trusted x-real-ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "203.0.113.7"}, true, "203.0.113.7"},
		{"trusted without headers", "10.0.0.1:1", nil, true, "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := clientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplaceSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	http.SetCookie(w, &http.Cookie{Name: "theme", Value: "dark"})
	http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "old"})

	replaceSessionCookie(w, &http.Cookie{Name: SessionCookieName, Value: "new"})

	got := w.Header().Values("Set-Cookie")
	if len(got) != 2 {
		t.Fatalf("expected 2 cookies, got %v", got)
	}
	if got[0] != "theme=dark" || got[1] != "session=new" {
		t.Errorf("unexpected cookies %v", got)
	}
}
