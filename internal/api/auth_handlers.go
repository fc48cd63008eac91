package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/campuscart/backend/internal/auth"
	"github.com/campuscart/backend/internal/middleware"
)

// RefreshRequest represents the request body for POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse carries a fresh access/refresh token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthHandlers holds dependencies for authentication HTTP handlers.
type AuthHandlers struct {
	jwtService *auth.JWTService

	// roleLookup resolves a user's current role when minting a new access
	// token. Optional; defaults to the regular user role.
	roleLookup func(userID string) string
}

// NewAuthHandlers creates a new AuthHandlers instance. roleLookup may be nil.
func NewAuthHandlers(jwtService *auth.JWTService, roleLookup func(userID string) string) *AuthHandlers {
	return &AuthHandlers{jwtService: jwtService, roleLookup: roleLookup}
}

// Refresh handles POST /auth/refresh - exchanges a valid refresh token for a
// new access/refresh token pair. Tokens signed with the previous secret are
// accepted during key rotation.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if strings.TrimSpace(req.RefreshToken) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "refresh_token is required")
		return
	}

	claims, err := h.jwtService.ValidateToken(req.RefreshToken)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid or expired refresh token")
		return
	}

	// Access tokens cannot be exchanged for new tokens.
	if claims.Type != auth.TokenTypeRefresh {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Refresh token required")
		return
	}

	role := auth.RoleUser
	if h.roleLookup != nil {
		role = h.roleLookup(claims.Subject)
	}

	accessToken, err := h.jwtService.GenerateAccessToken(claims.Subject, role)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate access token")
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(claims.Subject)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate refresh token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}); err != nil {
		return
	}
}
