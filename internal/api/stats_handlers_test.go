package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campuscart/backend/internal/listing"
	"github.com/campuscart/backend/internal/message"
	"github.com/campuscart/backend/internal/report"
	"github.com/campuscart/backend/internal/review"
)

func TestGetStats(t *testing.T) {
	listings := listing.NewInMemoryRepository()
	reports := report.NewInMemoryRepository()
	messages := message.NewInMemoryRepository()
	reviews := review.NewInMemoryRepository()
	handlers := NewStatsHandlers(listings, reports, messages, reviews)

	seedListing(t, listings, "seller-1", "Calculus textbook", 2000, nil)
	seedListing(t, listings, "seller-2", "Desk lamp", 1500, nil)

	reportHandlers := NewReportHandlers(reports)
	fileReport(t, reportHandlers, "user-1", CreateReportRequest{
		TargetType: report.TargetListing, TargetID: "a", Reason: "spam",
	})

	if _, err := messages.EnsureConversation("user-1", "user-2", nil); err != nil {
		t.Fatalf("failed to seed conversation: %v", err)
	}
	if _, err := messages.EnsureConversation("user-2", "user-3", nil); err != nil {
		t.Fatalf("failed to seed conversation: %v", err)
	}

	r := authedRequest(http.MethodGet, "/admin/stats", "admin-1", nil)
	w := httptest.NewRecorder()
	handlers.GetStats(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp AdminStatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse stats: %v", err)
	}
	if resp.ActiveListings != 2 {
		t.Errorf("expected 2 active listings, got %d", resp.ActiveListings)
	}
	if resp.Reports[report.StatusOpen] != 1 {
		t.Errorf("expected 1 open report, got %d", resp.Reports[report.StatusOpen])
	}
	if resp.UsersMessaged != 3 {
		t.Errorf("expected 3 users messaged, got %d", resp.UsersMessaged)
	}
	if resp.Reviews != 0 {
		t.Errorf("expected 0 reviews, got %d", resp.Reviews)
	}
}
