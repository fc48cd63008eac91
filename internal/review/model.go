// Package review provides models and repositories for seller reviews.
package review

import (
	"errors"
	"time"
)

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)

// Repository errors.
var (
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrDuplicateReview = errors.New("reviewer already reviewed this listing")
	ErrReviewNotFound  = errors.New("review not found")
)

// Review is one reviewer's rating of a seller for a specific listing.
// A reviewer may leave at most one review per listing.
type Review struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listing_id"`
	SellerID   string    `json:"seller_id"`
	ReviewerID string    `json:"reviewer_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SellerSummary aggregates a seller's reviews. AverageRating is rounded to
// one decimal and zero when the seller has no reviews.
type SellerSummary struct {
	SellerID      string  `json:"seller_id"`
	ReviewCount   int     `json:"review_count"`
	AverageRating float64 `json:"average_rating"`
}

// ValidRating reports whether r is within the accepted range.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
