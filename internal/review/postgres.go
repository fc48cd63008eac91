package review

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresRepository implements Repository using PostgreSQL. The reviews
// table carries a UNIQUE (reviewer_id, listing_id) constraint; duplicate
// inserts surface as ErrDuplicateReview.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores a new review.
func (r *PostgresRepository) Create(review *Review) error {
	if !ValidRating(review.Rating) {
		return ErrInvalidRating
	}

	review.ID = uuid.New().String()
	review.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO reviews (id, listing_id, seller_id, reviewer_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(
		query,
		review.ID, review.ListingID, review.SellerID, review.ReviewerID,
		review.Rating, review.Comment, review.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateReview
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// GetByID retrieves a review by ID.
func (r *PostgresRepository) GetByID(id string) (*Review, error) {
	query := `
		SELECT id, listing_id, seller_id, reviewer_id, rating, comment, created_at
		FROM reviews
		WHERE id = $1
	`

	rev := &Review{}
	err := r.db.QueryRow(query, id).Scan(
		&rev.ID, &rev.ListingID, &rev.SellerID, &rev.ReviewerID,
		&rev.Rating, &rev.Comment, &rev.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return rev, nil
}

// ListBySeller returns a seller's reviews, newest first.
func (r *PostgresRepository) ListBySeller(sellerID string) ([]Review, error) {
	query := `
		SELECT id, listing_id, seller_id, reviewer_id, rating, comment, created_at
		FROM reviews
		WHERE seller_id = $1
		ORDER BY created_at DESC, id ASC
	`

	rows, err := r.db.Query(query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		rev := Review{}
		err := rows.Scan(
			&rev.ID, &rev.ListingID, &rev.SellerID, &rev.ReviewerID,
			&rev.Rating, &rev.Comment, &rev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return out, nil
}

// SellerSummary aggregates a seller's review count and average rating.
// Rounding to one decimal happens in SQL to match the in-memory backend.
func (r *PostgresRepository) SellerSummary(sellerID string) (*SellerSummary, error) {
	query := `
		SELECT COUNT(*), COALESCE(round(avg(rating)::numeric, 1), 0)
		FROM reviews
		WHERE seller_id = $1
	`

	summary := &SellerSummary{SellerID: sellerID}
	err := r.db.QueryRow(query, sellerID).Scan(&summary.ReviewCount, &summary.AverageRating)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize reviews: %w", err)
	}
	return summary, nil
}

// Count returns the total number of reviews.
func (r *PostgresRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM reviews`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}
