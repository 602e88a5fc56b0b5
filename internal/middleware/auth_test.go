package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubVerifier map[string]string

func (s stubVerifier) VerifyAccessToken(_ context.Context, token string) (string, error) {
	userID, ok := s[token]
	if !ok {
		return "", errors.New("unknown token")
	}
	return userID, nil
}

func TestAuthMiddleware(t *testing.T) {
	verifier := stubVerifier{"good-token": "user-1"}

	var seen string
	handler := AuthMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, "auth.token.missing"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "auth.token.missing"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "auth.token.missing"},
		{"unknown token", "Bearer bad-token", http.StatusUnauthorized, "auth.token.invalid"},
		{"valid token", "Bearer good-token", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Contains(t, w.Body.String(), tt.body)
				assert.Empty(t, seen)
				return
			}
			assert.Equal(t, "user-1", seen)
		})
	}
}

func TestWithUserID(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	userID, ok := UserIDFromContext(WithUserID(context.Background(), "user-2"))
	assert.True(t, ok)
	assert.Equal(t, "user-2", userID)

	_, ok = UserIDFromContext(WithUserID(context.Background(), ""))
	assert.False(t, ok)
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
