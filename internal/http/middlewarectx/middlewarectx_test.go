package middlewarectx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/tradeboard/billing-service/internal/lib/jwt"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestJWTMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	token, err := maker.GenerateToken("user-1", "user")
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantUID    string
	}{
		{
			name:       "valid token passes and fills context",
			authHeader: "Bearer " + token,
			wantStatus: http.StatusOK,
			wantUID:    "user-1",
		},
		{
			name:       "missing header is rejected",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non-bearer header is rejected",
			authHeader: "Basic abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token is rejected",
			authHeader: "Bearer not-a-token",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotUID string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUID, _ = r.Context().Value(UserUID).(string)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/subscriptions/me", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()

			JWTMiddleware(maker, newNoopLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantUID != "" {
				assert.Equal(t, tc.wantUID, gotUID)
			}
		})
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("internal-key"), bcrypt.DefaultCost)
	require.NoError(t, err)

	tests := []struct {
		name       string
		apiKey     string
		wantStatus int
	}{
		{name: "valid key passes", apiKey: "internal-key", wantStatus: http.StatusOK},
		{name: "missing key is rejected", apiKey: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong key is rejected", apiKey: "wrong-key", wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/internal/subscriptions/user-1", nil)
			if tc.apiKey != "" {
				req.Header.Set("X-API-Key", tc.apiKey)
			}
			rec := httptest.NewRecorder()

			APIKeyMiddleware(newNoopLogger(), string(hash))(next).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(0), 2)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitMiddleware(newNoopLogger(), limiter)(next)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plans", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plans", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
