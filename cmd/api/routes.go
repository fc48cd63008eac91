package main

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campuscart/backend/internal/api"
	"github.com/campuscart/backend/internal/middleware"
)

// routeDeps collects the handlers and per-route middleware the mux is
// assembled from. uploads is optional; a nil value disables upload signing.
type routeDeps struct {
	authMW        *api.AuthMiddleware
	auth          *api.AuthHandlers
	listings      *api.ListingHandlers
	roommates     *api.RoommateHandlers
	conversations *api.ConversationHandlers
	reviews       *api.ReviewHandlers
	reports       *api.ReportHandlers
	audits        *api.AuditHandlers
	notifications *api.NotificationHandlers
	stats         *api.StatsHandlers
	canary        *api.CanaryHandler
	health        *api.HealthHandlers
	uploads       *api.UploadHandlers

	searchLimiter func(http.Handler) http.Handler
	authLimiter   func(http.Handler) http.Handler
}

// newMux builds the route table. Route-level rate limits and auth are
// applied here; the global middleware chain wraps the returned mux.
func newMux(d routeDeps) *http.ServeMux {
	authMW := d.authMW
	mux := http.NewServeMux()

	// Probes and metrics.
	mux.HandleFunc("/health", d.health.Health)
	mux.HandleFunc("/ready", d.health.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// Token refresh.
	mux.Handle("/auth/refresh", d.authLimiter(methodHandler(http.MethodPost, http.HandlerFunc(d.auth.Refresh))))

	// Listings. Reads are public; mutations require a valid access token.
	// GET /listings is an alias for /listings/search.
	mux.Handle("/listings", dispatch(map[string]http.Handler{
		http.MethodGet:  d.searchLimiter(http.HandlerFunc(d.listings.SearchListings)),
		http.MethodPost: authMW.RequireAuth(http.HandlerFunc(d.listings.CreateListing)),
	}))
	mux.Handle("/listings/search", d.searchLimiter(methodHandler(http.MethodGet, http.HandlerFunc(d.listings.SearchListings))))
	mux.Handle("/listings/nearby", d.searchLimiter(methodHandler(http.MethodGet, http.HandlerFunc(d.listings.NearbyListings))))
	mux.Handle("/listings/", dispatch(map[string]http.Handler{
		http.MethodGet:    http.HandlerFunc(d.listings.GetListing),
		http.MethodPatch:  authMW.RequireAuth(http.HandlerFunc(d.listings.UpdateListing)),
		http.MethodDelete: authMW.RequireAuth(http.HandlerFunc(d.listings.DeleteListing)),
	}))

	// Roommate profiles and matching.
	mux.Handle("/roommates/profile", authMW.RequireAuth(dispatch(map[string]http.Handler{
		http.MethodPut:    http.HandlerFunc(d.roommates.UpsertProfile),
		http.MethodGet:    http.HandlerFunc(d.roommates.GetProfile),
		http.MethodDelete: http.HandlerFunc(d.roommates.DeleteProfile),
	})))
	mux.Handle("/roommates/matches", d.searchLimiter(authMW.RequireAuth(methodHandler(http.MethodGet, http.HandlerFunc(d.roommates.Matches)))))

	// Conversations and messages.
	mux.Handle("/conversations", authMW.RequireAuth(dispatch(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(d.conversations.CreateConversation),
		http.MethodGet:  http.HandlerFunc(d.conversations.ListConversations),
	})))
	mux.Handle("/conversations/", authMW.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && pathAction(r.URL.Path) == "messages":
			d.conversations.SendMessage(w, r)
		case r.Method == http.MethodGet && pathAction(r.URL.Path) == "messages":
			d.conversations.ListMessages(w, r)
		case r.Method == http.MethodPost && pathAction(r.URL.Path) == "read":
			d.conversations.MarkRead(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Reviews.
	mux.Handle("/reviews", authMW.RequireAuth(methodHandler(http.MethodPost, http.HandlerFunc(d.reviews.CreateReview))))
	mux.Handle("/sellers/", methodHandler(http.MethodGet, http.HandlerFunc(d.reviews.SellerReviews)))

	// Reports and moderation.
	mux.Handle("/reports", authMW.RequireAuth(methodHandler(http.MethodPost, http.HandlerFunc(d.reports.CreateReport))))
	adminOnly := func(h http.Handler) http.Handler {
		return authMW.RequireAuth(authMW.RequireAdmin(h))
	}
	mux.Handle("/admin/reports", adminOnly(methodHandler(http.MethodGet, http.HandlerFunc(d.reports.ListOpenReports))))
	mux.Handle("/admin/reports/", adminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && pathAction(r.URL.Path) == "resolve":
			d.reports.ResolveReport(w, r)
		case r.Method == http.MethodPost && pathAction(r.URL.Path) == "dismiss":
			d.reports.DismissReport(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Notifications.
	mux.Handle("/notifications", authMW.RequireAuth(methodHandler(http.MethodGet, http.HandlerFunc(d.notifications.ListNotifications))))
	mux.Handle("/notifications/unread_count", authMW.RequireAuth(methodHandler(http.MethodGet, http.HandlerFunc(d.notifications.UnreadCount))))
	mux.Handle("/notifications/", authMW.RequireAuth(methodHandler(http.MethodPost, http.HandlerFunc(d.notifications.MarkRead))))

	// Photo upload signing and post-upload processing.
	if d.uploads != nil {
		mux.Handle("/uploads/sign", authMW.RequireAuth(methodHandler(http.MethodPost, http.HandlerFunc(d.uploads.SignUpload))))
		mux.Handle("/uploads/complete", authMW.RequireAuth(methodHandler(http.MethodPost, http.HandlerFunc(d.uploads.CompleteUpload))))
	}

	// Admin dashboards and canary management.
	mux.Handle("/admin/stats", adminOnly(methodHandler(http.MethodGet, http.HandlerFunc(d.stats.GetStats))))
	mux.Handle("/admin/audit/export", adminOnly(methodHandler(http.MethodGet, http.HandlerFunc(d.audits.Export))))
	mux.Handle("/admin/canary/metrics", adminOnly(http.HandlerFunc(d.canary.GetMetrics)))
	mux.Handle("/admin/canary/rollback", adminOnly(http.HandlerFunc(d.canary.Rollback)))
	mux.Handle("/admin/canary/reset", adminOnly(http.HandlerFunc(d.canary.ResetMetrics)))

	// Root: structured 404 for unknown paths.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"campuscart-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	return mux
}

// methodHandler restricts a handler to a single HTTP method.
func methodHandler(method string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// dispatch routes by HTTP method, returning 405 for anything unlisted.
func dispatch(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.Method]
		if !ok {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// pathAction returns the final segment of a two-level resource path, e.g.
// "messages" for /conversations/{id}/messages.
func pathAction(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
