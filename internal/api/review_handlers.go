package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campuscart/backend/internal/listing"
	"github.com/campuscart/backend/internal/middleware"
	"github.com/campuscart/backend/internal/notification"
	"github.com/campuscart/backend/internal/review"
	"github.com/campuscart/backend/internal/validate"
)

// CreateReviewRequest represents the request body for POST /reviews.
type CreateReviewRequest struct {
	ListingID string `json:"listing_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

// SellerReviewsResponse combines a seller's reviews with their aggregate
// summary.
type SellerReviewsResponse struct {
	Summary *review.SellerSummary `json:"summary"`
	Reviews []review.Review       `json:"reviews"`
}

// ReviewHandlers holds dependencies for review HTTP handlers.
type ReviewHandlers struct {
	repo     review.Repository
	listings listing.Repository
	notifier *notification.Notifier
}

// NewReviewHandlers creates a new ReviewHandlers instance.
func NewReviewHandlers(repo review.Repository, listings listing.Repository) *ReviewHandlers {
	return &ReviewHandlers{repo: repo, listings: listings}
}

// WithNotifier enables in-app notifications for received reviews.
func (h *ReviewHandlers) WithNotifier(n *notification.Notifier) *ReviewHandlers {
	h.notifier = n
	return h
}

// CreateReview handles POST /reviews - records the caller's rating of a
// seller for a listing. Sellers cannot review themselves, and a reviewer
// leaves at most one review per listing.
func (h *ReviewHandlers) CreateReview(w http.ResponseWriter, r *http.Request) {
	reviewerID := middleware.GetUserID(r.Context())

	var req CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if strings.TrimSpace(req.ListingID) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "listing_id is required")
		return
	}

	if !review.ValidRating(req.Rating) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "rating must be between 1 and 5")
		return
	}

	comment, err := validate.ReviewComment(req.Comment)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	target, err := h.listings.GetByID(req.ListingID)
	if err != nil {
		switch {
		case errors.Is(err, listing.ErrListingNotFound), errors.Is(err, listing.ErrListingDeleted):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeListingNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeListingNotFound, "Listing not found")
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve listing")
		}
		return
	}

	if target.SellerID == reviewerID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeSelfReview)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeSelfReview, "Cannot review your own listing")
		return
	}

	newReview := &review.Review{
		ID:         uuid.New().String(),
		ListingID:  req.ListingID,
		SellerID:   target.SellerID,
		ReviewerID: reviewerID,
		Rating:     req.Rating,
		Comment:    comment,
		CreatedAt:  time.Now(),
	}

	if err := h.repo.Create(newReview); err != nil {
		switch {
		case errors.Is(err, review.ErrDuplicateReview):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeDuplicateReview)
			WriteError(w, ctx, http.StatusConflict, ErrCodeDuplicateReview, "You already reviewed this listing")
		case errors.Is(err, review.ErrInvalidRating):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "rating must be between 1 and 5")
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create review")
		}
		return
	}

	if h.notifier != nil {
		notif := &notification.Notification{
			UserID: target.SellerID,
			Type:   notification.TypeReviewReceived,
			Title:  "New review",
			Body:   "A buyer left a review on one of your listings.",
		}
		if err := h.notifier.Notify(r.Context(), notif); err != nil {
			slog.WarnContext(r.Context(), "failed to store notification", "user_id", target.SellerID, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(newReview); err != nil {
		return
	}
}

// SellerReviews handles GET /sellers/{id}/reviews - a seller's reviews
// (newest first) with their aggregate rating summary - and
// GET /sellers/{id}/rating - the summary alone.
func (h *ReviewHandlers) SellerReviews(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/sellers/"), "/")
	if len(parts) < 2 || parts[0] == "" || (parts[1] != "reviews" && parts[1] != "rating") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Seller ID is required")
		return
	}
	sellerID := parts[0]

	if parts[1] == "rating" {
		summary, err := h.repo.SellerSummary(sellerID)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to summarize reviews")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(summary); err != nil {
			return
		}
		return
	}

	reviews, err := h.repo.ListBySeller(sellerID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list reviews")
		return
	}

	summary, err := h.repo.SellerSummary(sellerID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to summarize reviews")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(SellerReviewsResponse{
		Summary: summary,
		Reviews: reviews,
	}); err != nil {
		return
	}
}
