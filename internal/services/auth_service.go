package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var errTokenInvalid = errors.New("token invalid")

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Document string `json:"document" validate:"required,max=14" example:"12345678909"` // CPF, punctuation allowed
	Password string `json:"password" validate:"required" example:"secret123"`
}

// RefreshRequest carries a refresh token for refresh and logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair represents the authentication response
// @Description Access and refresh tokens
type TokenPair struct {
	Token        string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Message      string `json:"message" example:"login.ok"`
}

// AuthService issues and revokes JWTs. Refresh tokens are persisted, one per
// user; revoked access tokens are blacklisted in Redis until they expire.
type AuthService struct {
	db    *sql.DB
	redis *redis.Client
	users *UserService
}

func NewAuthService(db *sql.DB, redisClient *redis.Client, users *UserService) *AuthService {
	return &AuthService{
		db:    db,
		redis: redisClient,
		users: users,
	}
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	userID, hashed, err := s.users.credentialsByDocument(ctx, req.Document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrUnauthorized, "login.nok")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	if !verifyPassword(req.Password, hashed) {
		zap.L().Info("Login rejected", zap.String("user_id", userID))
		return nil, newError(ErrUnauthorized, "login.nok")
	}

	pair, err := s.issue(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	pair.Message = "login.ok"
	return pair, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := parseToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, newError(ErrUnauthorized, "user.refresh.nok").wrap(err)
	}

	pair, err := s.issue(ctx, claims.Subject, refreshToken)
	if err != nil {
		return nil, err
	}
	pair.Message = "user.refresh.ok"
	return pair, nil
}

// Logout revokes the refresh token and, when given, blacklists the access token.
func (s *AuthService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE token = $1`, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	} else if n == 0 {
		return newError(ErrUnauthorized, "user.logout.nok")
	}

	if accessToken != "" {
		s.blacklist(ctx, accessToken)
	}
	return nil
}

// VerifyAccessToken returns the user id carried by a valid, non-revoked access token.
func (s *AuthService) VerifyAccessToken(ctx context.Context, accessToken string) (string, error) {
	claims, err := parseToken(accessToken, tokenTypeAccess)
	if err != nil {
		return "", err
	}

	if s.redis != nil {
		exists, err := s.redis.Exists(ctx, blacklistKey(accessToken)).Result()
		if err != nil {
			zap.L().Warn("Token blacklist lookup failed", zap.Error(err))
		} else if exists > 0 {
			return "", errTokenInvalid
		}
	}
	return claims.Subject, nil
}

// issue signs a new pair for userID and stores the refresh token in place of
// previous, the token being rotated, or of any token the user held.
func (s *AuthService) issue(ctx context.Context, userID, previous string) (*TokenPair, error) {
	access, err := signToken(userID, tokenTypeAccess)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := signToken(userID, tokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if previous != "" {
		result, err := tx.ExecContext(ctx, `DELETE FROM tokens WHERE token = $1 AND user_id = $2`, previous, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return nil, fmt.Errorf("failed to check rows affected: %w", err)
		} else if n == 0 {
			return nil, newError(ErrUnauthorized, "user.refresh.nok")
		}
	} else if _, err := tx.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("failed to clear refresh tokens: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO tokens (id, user_id, token, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		uuid.NewString(), userID, refresh, now)
	if err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit tokens: %w", err)
	}
	return &TokenPair{Token: access, RefreshToken: refresh}, nil
}

func (s *AuthService) blacklist(ctx context.Context, accessToken string) {
	if s.redis == nil {
		return
	}

	ttl := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
	if claims, err := parseToken(accessToken, tokenTypeAccess); err == nil && claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return
	}

	if err := s.redis.Set(ctx, blacklistKey(accessToken), "1", ttl).Err(); err != nil {
		zap.L().Warn("Failed to blacklist token", zap.Error(err))
	}
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}

type tokenClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

func tokenSecret(tokenType string) []byte {
	if tokenType == tokenTypeRefresh {
		if secret := viper.GetString("jwt.refresh_secret_key"); secret != "" {
			return []byte(secret)
		}
	}
	return []byte(viper.GetString("jwt.secret_key"))
}

func tokenLifetime(tokenType string) time.Duration {
	if tokenType == tokenTypeRefresh {
		if h := viper.GetInt("jwt.refresh_expiry_hours"); h > 0 {
			return time.Duration(h) * time.Hour
		}
		return 7 * 24 * time.Hour
	}
	if h := viper.GetInt("jwt.expiry_hours"); h > 0 {
		return time.Duration(h) * time.Hour
	}
	return time.Hour
}

func signToken(userID, tokenType string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime(tokenType))),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tokenSecret(tokenType))
}

func parseToken(tokenString, tokenType string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return tokenSecret(tokenType), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Type != tokenType || claims.Subject == "" {
		return nil, errTokenInvalid
	}
	return claims, nil
}
