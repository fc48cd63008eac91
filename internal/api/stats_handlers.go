package api

import (
	"encoding/json"
	"net/http"

	"github.com/campuscart/backend/internal/listing"
	"github.com/campuscart/backend/internal/message"
	"github.com/campuscart/backend/internal/middleware"
	"github.com/campuscart/backend/internal/review"
)

// StatsHandlers serves the admin activity overview.
type StatsHandlers struct {
	listings listing.Repository
	reports  reportCounter
	messages message.Repository
	reviews  review.Repository
}

// reportCounter is the slice of the report repository the stats endpoint
// needs.
type reportCounter interface {
	CountByStatus() (map[string]int, error)
}

// NewStatsHandlers creates a new StatsHandlers instance.
func NewStatsHandlers(listings listing.Repository, reports reportCounter, messages message.Repository, reviews review.Repository) *StatsHandlers {
	return &StatsHandlers{
		listings: listings,
		reports:  reports,
		messages: messages,
		reviews:  reviews,
	}
}

// AdminStatsResponse is the payload for GET /admin/stats.
type AdminStatsResponse struct {
	ActiveListings int            `json:"active_listings"`
	Reports        map[string]int `json:"reports"`
	UsersMessaged  int            `json:"users_messaged"`
	Reviews        int            `json:"reviews"`
}

// GetStats handles GET /admin/stats - activity counts across the platform.
// Admin only.
func (h *StatsHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	result, err := h.listings.Search(listing.SearchOptions{PageSize: 1})
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to count listings")
		return
	}

	reportCounts, err := h.reports.CountByStatus()
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to count reports")
		return
	}

	usersMessaged, err := h.messages.CountParticipants()
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to count participants")
		return
	}

	reviewCount, err := h.reviews.Count()
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to count reviews")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(AdminStatsResponse{
		ActiveListings: result.Total,
		Reports:        reportCounts,
		UsersMessaged:  usersMessaged,
		Reviews:        reviewCount,
	}); err != nil {
		return
	}
}
