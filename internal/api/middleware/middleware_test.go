package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motia-studio/engine/internal/api/types"
	"github.com/motia-studio/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.UseNop()
	os.Exit(m.Run())
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetUserID(r.Context())))
	})
}

func signed(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestAuth_DefaultUserWithoutSecret(t *testing.T) {
	h := Auth(nil, "demo-user")(echoUser())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "demo-user", rr.Body.String())
}

func TestAuth_BearerToken(t *testing.T) {
	secret := []byte("s3cret")
	h := Auth(secret, "demo-user")(echoUser())

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + signed(t, []byte("other"), jwt.MapClaims{"sub": "u1"}), http.StatusUnauthorized, ""},
		{"expired", "Bearer " + signed(t, secret, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized, ""},
		{"no subject", "Bearer " + signed(t, secret, jwt.MapClaims{"name": "x"}), http.StatusUnauthorized, ""},
		{"valid", "Bearer " + signed(t, secret, jwt.MapClaims{"sub": "u1"}), http.StatusOK, "u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			require.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusOK {
				require.Equal(t, tt.body, rr.Body.String())
				return
			}
			var resp types.APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			require.False(t, resp.Success)
			require.Equal(t, "unauthorized", resp.Error.Code)
		})
	}
}

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	h := RateLimit(0.001, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "1", rr.Header().Get("Retry-After"))

	// Other clients have their own bucket.
	other := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestVisitorsGC(t *testing.T) {
	v := &visitors{entries: map[string]*limiterEntry{}, rps: 1, burst: 1}
	now := time.Now()
	v.allow("a", now.Add(-2*visitorTTL))
	v.allow("b", now)
	v.gc(now)
	assert.NotContains(t, v.entries, "a")
	assert.Contains(t, v.entries, "b")
}

func TestRequestIDAndRecovery(t *testing.T) {
	h := RequestID(Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "req-123", rr.Header().Get("X-Request-ID"))
	var resp types.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "req-123", resp.Meta.RequestID)
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/v1/generate", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	require.False(t, called)
}
