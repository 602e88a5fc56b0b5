package handlers

import (
	"net/http"

	"github.com/bankledger/backend/internal/middleware"
	"github.com/bankledger/backend/internal/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth   *services.AuthService
	reader *requestReader
}

func NewAuthHandler(auth *services.AuthService, maxBodyBytes int64) *AuthHandler {
	return &AuthHandler{auth: auth, reader: newRequestReader(maxBodyBytes)}
}

// Login handles user login
// @Summary Login
// @Description Authenticate with document and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginRequest true "Credentials"
// @Success 200 {object} services.TokenPair
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	zap.L().Debug("Login attempt", zap.String("remote_addr", r.RemoteAddr))

	var req services.LoginRequest
	if !h.reader.decode(w, r, &req) {
		return
	}

	pair, err := h.auth.Login(r.Context(), req)
	if err != nil {
		services.SendServiceError(w, err, "login.error")
		return
	}
	services.SendJSON(w, http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a new token pair
// @Summary Refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.RefreshRequest true "Refresh token"
// @Success 200 {object} services.TokenPair
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req services.RefreshRequest
	if !h.reader.decode(w, r, &req) {
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		services.SendServiceError(w, err, "user.refresh.error")
		return
	}
	services.SendJSON(w, http.StatusOK, pair)
}

// Logout handles user logout
// @Summary Logout user
// @Description Revoke the refresh token and blacklist the bearer access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.RefreshRequest true "Refresh token"
// @Success 200 {object} services.ErrorResponse "user.logout.ok"
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req services.RefreshRequest
	if !h.reader.decode(w, r, &req) {
		return
	}

	accessToken, _ := middleware.BearerToken(r)
	if err := h.auth.Logout(r.Context(), req.RefreshToken, accessToken); err != nil {
		services.SendServiceError(w, err, "user.logout.error")
		return
	}
	services.SendJSON(w, http.StatusOK, map[string]string{"message": "user.logout.ok"})
}
