package adapthttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	s := &Server{log: slog.New(slog.NewJSONHandler(&buf, nil))}

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, requestID(r))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("OK"))
	})
	handler := s.loggingMiddleware(nextHandler)

	req := httptest.NewRequest("GET", "/test-path", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "GET", rec["method"])
	assert.Equal(t, "/test-path", rec["path"])
	assert.Equal(t, 418.0, rec["status"])
	assert.Equal(t, "req-123", rec["request_id"])
}

func TestFailHidesInternalErrors(t *testing.T) {
	var buf bytes.Buffer
	s := &Server{log: slog.New(slog.NewTextHandler(&buf, nil))}

	w := httptest.NewRecorder()
	s.fail(w, httptest.NewRequest("GET", "/api/log", nil), errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
	assert.Contains(t, buf.String(), "connection refused")
}

func TestWriteJSONUnencodableValue(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusCreated, map[string]any{"total_calories": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestSSOStateCookieHonoursSecureCookies(t *testing.T) {
	oidcCfg := OIDCConfig{
		Enabled: true,
		OAuth2Config: &oauth2.Config{
			ClientID: "mealtracker",
			Endpoint: oauth2.Endpoint{AuthURL: "https://idp.example.com/auth"},
		},
	}

	for _, secure := range []bool{false, true} {
		s := New(Services{}, t.TempDir(), WithOIDC(oidcCfg), WithSecureCookies(secure))
		w := httptest.NewRecorder()
		s.handleSSOLogin(w, httptest.NewRequest("GET", "/api/auth/sso/login", nil))

		require.Equal(t, http.StatusFound, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "https://idp.example.com/auth")

		var state *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == "oauth_state" {
				state = c
			}
		}
		require.NotNil(t, state)
		assert.Equal(t, secure, state.Secure)
	}
}

func TestSessionToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, sessionToken(r))

	r.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", sessionToken(r))

	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "cookie"})
	assert.Equal(t, "cookie", sessionToken(r))
}

func TestIPLimiter(t *testing.T) {
	var disabled *ipLimiter
	assert.True(t, disabled.allow("1.1.1.1"))

	l := newIPLimiter(1)
	assert.True(t, l.allow("1.1.1.1"))
	assert.False(t, l.allow("1.1.1.1"))
	assert.True(t, l.allow("2.2.2.2"))
}

func TestIPLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(1)
	l.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		l.allow(fmt.Sprintf("10.0.0.%d", i))
	}
	assert.Equal(t, 100, l.size())
	assert.False(t, l.allow("10.0.0.1"))

	now = now.Add(limiterIdleTTL / 2)
	assert.True(t, l.allow("192.168.1.1"))

	now = now.Add(limiterIdleTTL/2 + time.Second)
	assert.True(t, l.allow("192.168.1.2"))
	assert.Equal(t, 2, l.size(), "idle clients are dropped, recent ones kept")

	now = now.Add(2 * limiterIdleTTL)
	l.allow("172.16.0.1")
	assert.Equal(t, 1, l.size())
}
