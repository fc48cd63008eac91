package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/campuscart/backend/internal/api"
	"github.com/campuscart/backend/internal/audit"
	"github.com/campuscart/backend/internal/auth"
	"github.com/campuscart/backend/internal/listing"
	"github.com/campuscart/backend/internal/message"
	"github.com/campuscart/backend/internal/middleware"
	"github.com/campuscart/backend/internal/notification"
	"github.com/campuscart/backend/internal/report"
	"github.com/campuscart/backend/internal/review"
	"github.com/campuscart/backend/internal/roommate"
)

func testMux(t *testing.T) *http.ServeMux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	jwtService := auth.NewJWTService("test-secret")
	authMW := api.NewAuthMiddleware(jwtService)
	auditRepo := audit.NewInMemoryRepository()
	listings := listing.NewInMemoryRepository()
	reports := report.NewInMemoryRepository()
	messages := message.NewInMemoryRepository()
	reviews := review.NewInMemoryRepository()
	canary := middleware.NewCanaryRouter(middleware.CanaryConfig{}, logger)

	passthrough := func(h http.Handler) http.Handler { return h }

	return newMux(routeDeps{
		authMW:        authMW,
		auth:          api.NewAuthHandlers(jwtService, nil),
		listings:      api.NewListingHandlers(listings, nil),
		roommates:     api.NewRoommateHandlers(roommate.NewInMemoryRepository(), nil),
		conversations: api.NewConversationHandlers(messages),
		reviews:       api.NewReviewHandlers(reviews, listings),
		reports:       api.NewReportHandlers(reports),
		audits:        api.NewAuditHandlers(auditRepo),
		notifications: api.NewNotificationHandlers(notification.NewInMemoryRepository()),
		stats:         api.NewStatsHandlers(listings, reports, messages, reviews),
		canary:        api.NewCanaryHandler(canary, logger),
		health:        api.NewHealthHandlers(api.HealthHandlersConfig{}),
		searchLimiter: passthrough,
		authLimiter:   passthrough,
	})
}

func TestRoutes_ListingsCollection(t *testing.T) {
	mux := testMux(t)

	tests := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{name: "GET /listings is public search", method: http.MethodGet, target: "/listings", want: http.StatusOK},
		{name: "GET /listings/search", method: http.MethodGet, target: "/listings/search", want: http.StatusOK},
		{name: "GET /listings/nearby rejects bad coordinates", method: http.MethodGet, target: "/listings/nearby?lat=95&lng=0", want: http.StatusBadRequest},
		{name: "POST /listings requires auth", method: http.MethodPost, target: "/listings", want: http.StatusUnauthorized},
		{name: "PUT /listings is not allowed", method: http.MethodPut, target: "/listings", want: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("%s %s = %d, want %d: %s", tt.method, tt.target, w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRoutes_AdminRequireAuth(t *testing.T) {
	mux := testMux(t)

	for _, target := range []string{"/admin/reports", "/admin/stats", "/admin/audit/export"} {
		r := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token = %d, want 401", target, w.Code)
		}
	}
}

func TestRoutes_UnknownPathIs404(t *testing.T) {
	mux := testMux(t)

	r := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown path, got %d", w.Code)
	}
}
