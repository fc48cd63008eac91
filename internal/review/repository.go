package review

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines review data operations.
type Repository interface {
	// Create stores a new review. At most one review per reviewer and
	// listing is allowed.
	Create(review *Review) error

	// GetByID retrieves a review by ID.
	GetByID(id string) (*Review, error)

	// ListBySeller returns a seller's reviews, newest first.
	ListBySeller(sellerID string) ([]Review, error)

	// SellerSummary aggregates a seller's review count and average rating.
	SellerSummary(sellerID string) (*SellerSummary, error)

	// Count returns the total number of reviews.
	Count() (int, error)
}

// InMemoryRepository is an in-memory implementation of Repository, used for
// testing and development. Safe for concurrent use.
type InMemoryRepository struct {
	mu      sync.RWMutex
	reviews map[string]*Review
}

// NewInMemoryRepository creates a new in-memory review repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{reviews: make(map[string]*Review)}
}

// Create stores a new review.
func (r *InMemoryRepository) Create(review *Review) error {
	if !ValidRating(review.Rating) {
		return ErrInvalidRating
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.reviews {
		if existing.ReviewerID == review.ReviewerID && existing.ListingID == review.ListingID {
			return ErrDuplicateReview
		}
	}

	review.ID = uuid.NewString()
	review.CreatedAt = time.Now().UTC()

	cp := *review
	r.reviews[cp.ID] = &cp
	return nil
}

// GetByID retrieves a review by ID.
func (r *InMemoryRepository) GetByID(id string) (*Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rev, ok := r.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}
	cp := *rev
	return &cp, nil
}

// ListBySeller returns a seller's reviews, newest first.
func (r *InMemoryRepository) ListBySeller(sellerID string) ([]Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Review
	for _, rev := range r.reviews {
		if rev.SellerID == sellerID {
			out = append(out, *rev)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SellerSummary aggregates a seller's review count and average rating.
func (r *InMemoryRepository) SellerSummary(sellerID string) (*SellerSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary := &SellerSummary{SellerID: sellerID}
	total := 0
	for _, rev := range r.reviews {
		if rev.SellerID == sellerID {
			summary.ReviewCount++
			total += rev.Rating
		}
	}
	if summary.ReviewCount > 0 {
		summary.AverageRating = roundToTenth(float64(total) / float64(summary.ReviewCount))
	}
	return summary, nil
}

// roundToTenth rounds half away from zero to one decimal.
func roundToTenth(x float64) float64 {
	return math.Round(x*10) / 10
}

// Count returns the total number of reviews.
func (r *InMemoryRepository) Count() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reviews), nil
}
