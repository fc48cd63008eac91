package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campuscart/backend/internal/auth"
	"github.com/campuscart/backend/internal/middleware"
)

func TestRefresh(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	handlers := NewAuthHandlers(jwtService, nil)

	refreshToken, err := jwtService.GenerateRefreshToken("user-1")
	if err != nil {
		t.Fatalf("failed to generate refresh token: %v", err)
	}

	body, _ := json.Marshal(RefreshRequest{RefreshToken: refreshToken})
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handlers.Refresh(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp RefreshResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	claims, err := jwtService.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("new access token invalid: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("expected subject user-1, got %s", claims.Subject)
	}
	if claims.Type != auth.TokenTypeAccess {
		t.Errorf("expected access token, got %s", claims.Type)
	}
	if claims.Role != auth.RoleUser {
		t.Errorf("expected default role user, got %s", claims.Role)
	}

	newRefresh, err := jwtService.ValidateToken(resp.RefreshToken)
	if err != nil {
		t.Fatalf("new refresh token invalid: %v", err)
	}
	if newRefresh.Type != auth.TokenTypeRefresh {
		t.Errorf("expected refresh token, got %s", newRefresh.Type)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	handlers := NewAuthHandlers(jwtService, nil)

	accessToken, err := jwtService.GenerateAccessToken("user-1", auth.RoleUser)
	if err != nil {
		t.Fatalf("failed to generate access token: %v", err)
	}

	body, _ := json.Marshal(RefreshRequest{RefreshToken: accessToken})
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handlers.Refresh(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestRefresh_RoleLookup(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	handlers := NewAuthHandlers(jwtService, func(userID string) string {
		if userID == "mod-1" {
			return auth.RoleAdmin
		}
		return auth.RoleUser
	})

	refreshToken, err := jwtService.GenerateRefreshToken("mod-1")
	if err != nil {
		t.Fatalf("failed to generate refresh token: %v", err)
	}

	body, _ := json.Marshal(RefreshRequest{RefreshToken: refreshToken})
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handlers.Refresh(w, req)

	var resp RefreshResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	claims, err := jwtService.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims.Role != auth.RoleAdmin {
		t.Errorf("expected admin role from lookup, got %s", claims.Role)
	}
}

func TestRefresh_BadToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	handlers := NewAuthHandlers(jwtService, nil)

	body, _ := json.Marshal(RefreshRequest{RefreshToken: "not-a-token"})
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handlers.Refresh(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestRequireAuth(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	authMW := NewAuthMiddleware(jwtService)

	var seenUserID string
	protected := authMW.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = middleware.GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No header
	req := httptest.NewRequest(http.MethodGet, "/listings", nil)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	// Garbage token
	req = httptest.NewRequest(http.MethodGet, "/listings", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", w.Code)
	}

	// Refresh token is not accepted for API calls
	refreshToken, _ := jwtService.GenerateRefreshToken("user-1")
	req = httptest.NewRequest(http.MethodGet, "/listings", nil)
	req.Header.Set("Authorization", "Bearer "+refreshToken)
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with refresh token, got %d", w.Code)
	}

	// Valid access token
	accessToken, _ := jwtService.GenerateAccessToken("user-1", auth.RoleUser)
	req = httptest.NewRequest(http.MethodGet, "/listings", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d: %s", w.Code, w.Body.String())
	}
	if seenUserID != "user-1" {
		t.Errorf("expected user ID in context, got %q", seenUserID)
	}
}

func TestRequireAdmin(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	authMW := NewAuthMiddleware(jwtService)

	protected := authMW.RequireAuth(authMW.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	// Regular user is rejected
	userToken, _ := jwtService.GenerateAccessToken("user-1", auth.RoleUser)
	req := httptest.NewRequest(http.MethodGet, "/admin/reports", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", w.Code)
	}

	// Admin passes
	adminToken, _ := jwtService.GenerateAccessToken("admin-1", auth.RoleAdmin)
	req = httptest.NewRequest(http.MethodGet, "/admin/reports", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", w.Code)
	}
}
