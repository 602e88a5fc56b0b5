package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/bankledger/backend/internal/services"
)

type contextKey string

const (
	userIDKey      contextKey = "userID"
	accessTokenKey contextKey = "accessToken"
)

// TokenVerifier resolves an access token to the id of its user.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (string, error)
}

// AuthMiddleware requires a valid Bearer access token and stores its user id
// in the request context.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				services.SendErrorResponse(w, "auth.token.missing", http.StatusUnauthorized, nil)
				return
			}

			userID, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				services.SendErrorResponse(w, "auth.token.invalid", http.StatusUnauthorized, nil)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, accessTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// WithUserID returns ctx carrying userID, as AuthMiddleware would set it.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
