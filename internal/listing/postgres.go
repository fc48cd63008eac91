package listing

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/campuscart/backend/internal/geo"
	"github.com/campuscart/backend/internal/ranking"
)

// haversineSQL is the great-circle distance in kilometers between the
// listing's coordinates and a ($lat, $lng) parameter pair, rounded to 2
// decimals. It mirrors geo.DistanceKm so both backends order identically.
const haversineSQL = `round((2 * 6371 * asin(sqrt(
	power(sin(radians(lat - %[1]s) / 2), 2) +
	cos(radians(%[1]s)) * cos(radians(lat)) *
	power(sin(radians(lng - %[2]s) / 2), 2)
)))::numeric, 2)`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new listing with a generated UUID.
func (r *PostgresRepository) Create(l *Listing) error {
	now := time.Now().UTC()
	l.ID = uuid.New().String()
	l.CreatedAt = now
	l.UpdatedAt = now
	if l.Status == "" {
		l.Status = StatusActive
	}

	query := `
		INSERT INTO listings (
			id, seller_id, title, description, category, status, price_cents,
			lat, lng, photo_keys, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	lat, lng := pointColumns(l.Point)
	_, err := r.db.Exec(
		query,
		l.ID, l.SellerID, l.Title, l.Description, l.Category, l.Status,
		l.PriceCents, lat, lng, pq.Array(l.PhotoKeys), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// Update updates mutable fields of an existing listing.
func (r *PostgresRepository) Update(l *Listing) error {
	query := `
		UPDATE listings
		SET title = $2, description = $3, category = $4, status = $5,
		    price_cents = $6, lat = $7, lng = $8, photo_keys = $9,
		    updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`

	lat, lng := pointColumns(l.Point)
	res, err := r.db.Exec(
		query,
		l.ID, l.Title, l.Description, l.Category, l.Status,
		l.PriceCents, lat, lng, pq.Array(l.PhotoKeys),
	)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return ErrListingNotFound
	}
	return nil
}

// Delete soft-deletes a listing by setting deleted_at.
func (r *PostgresRepository) Delete(id string) error {
	query := `
		UPDATE listings
		SET deleted_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`

	res, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return ErrListingNotFound
	}
	return nil
}

// GetByID retrieves a listing by UUID, excluding soft-deleted listings.
func (r *PostgresRepository) GetByID(id string) (*Listing, error) {
	query := `
		SELECT id, seller_id, title, description, category, status,
		       price_cents, lat, lng, photo_keys, created_at, updated_at
		FROM listings
		WHERE id = $1 AND deleted_at IS NULL
	`

	l, err := scanListing(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

// Search applies the filters in opts as a single SQL query and returns one
// page of results plus the total match count across all pages
// (COUNT(*) OVER() before LIMIT/OFFSET).
func (r *PostgresRepository) Search(opts SearchOptions) (*SearchResult, error) {
	opts.Normalize()

	status := opts.Status
	if status == "" {
		status = StatusActive
	}

	var (
		conditions []string
		args       []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions = append(conditions, "deleted_at IS NULL")
	conditions = append(conditions, "status = "+arg(status))

	if opts.Category != "" {
		conditions = append(conditions, "category = "+arg(opts.Category))
	}
	if opts.MinPriceCents != nil {
		conditions = append(conditions, "price_cents >= "+arg(*opts.MinPriceCents))
	}
	if opts.MaxPriceCents != nil {
		conditions = append(conditions, "price_cents <= "+arg(*opts.MaxPriceCents))
	}
	if opts.Query != "" {
		p := arg("%" + opts.Query + "%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE %[1]s OR description ILIKE %[1]s)", p))
	}

	// Distance column: NULL when either side lacks a location.
	distanceExpr := "NULL::numeric"
	if opts.Center != nil {
		latParam := arg(opts.Center.Lat)
		lngParam := arg(opts.Center.Lng)
		distanceExpr = fmt.Sprintf(
			"CASE WHEN lat IS NOT NULL THEN "+haversineSQL+" END",
			latParam, lngParam,
		)
	}

	// Hard radius cutoff happens outside the subquery so it can reference
	// the computed distance; listings with no location are excluded too.
	outer := ""
	if opts.Center != nil && opts.RadiusKm > 0 {
		outer = "WHERE distance_km IS NOT NULL AND distance_km <= " + arg(opts.RadiusKm)
	}

	orderBy := "ORDER BY created_at DESC, id ASC"
	if opts.Sort == SortDistance {
		orderBy = "ORDER BY distance_km ASC NULLS LAST, created_at DESC, id ASC"
	}

	limitParam := arg(opts.PageSize)
	offsetParam := arg((opts.Page - 1) * opts.PageSize)

	query := fmt.Sprintf(`
		SELECT id, seller_id, title, description, category, status,
		       price_cents, lat, lng, photo_keys, created_at, updated_at,
		       distance_km, COUNT(*) OVER() AS total
		FROM (
			SELECT *, %s AS distance_km
			FROM listings
			WHERE %s
		) matched
		%s
		%s
		LIMIT %s OFFSET %s
	`, distanceExpr, strings.Join(conditions, " AND "), outer, orderBy, limitParam, offsetParam)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	defer rows.Close()

	result := &SearchResult{
		Items:    []SearchItem{},
		Page:     opts.Page,
		PageSize: opts.PageSize,
	}

	for rows.Next() {
		l := &Listing{}
		var (
			lat, lng, distance sql.NullFloat64
			photoKeys          pq.StringArray
			total              int
		)
		err := rows.Scan(
			&l.ID, &l.SellerID, &l.Title, &l.Description, &l.Category,
			&l.Status, &l.PriceCents, &lat, &lng, &photoKeys,
			&l.CreatedAt, &l.UpdatedAt, &distance, &total,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}

		l.Point = pointFromColumns(lat, lng)
		l.PhotoKeys = photoKeys
		result.Total = total

		item := SearchItem{Listing: l}
		if distance.Valid {
			d := distance.Float64
			item.DistanceKm = &d
		}
		result.Items = append(result.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}

	return result, nil
}

// candidateFetchLimit caps the snapshot handed to the ranker. The ranker is
// a pure transform; the fetch supplies its per-request snapshot.
const candidateFetchLimit = 500

// NearbyRanked fetches a snapshot of active listings and ranks it around the
// viewer's location.
func (r *PostgresRepository) NearbyRanked(viewer *geo.Point, limit int, cfg *ranking.ScoreConfig) ([]RankedListing, error) {
	query := `
		SELECT id, seller_id, title, description, category, status,
		       price_cents, lat, lng, photo_keys, created_at, updated_at
		FROM listings
		WHERE deleted_at IS NULL AND status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(query, StatusActive, candidateFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nearby candidates: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Listing)
	var candidates []ranking.Candidate
	for rows.Next() {
		l := &Listing{}
		var (
			lat, lng  sql.NullFloat64
			photoKeys pq.StringArray
		)
		err := rows.Scan(
			&l.ID, &l.SellerID, &l.Title, &l.Description, &l.Category,
			&l.Status, &l.PriceCents, &lat, &lng, &photoKeys,
			&l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		l.Point = pointFromColumns(lat, lng)
		l.PhotoKeys = photoKeys

		byID[l.ID] = l
		candidates = append(candidates, ranking.Candidate{
			ID:        l.ID,
			Point:     l.Point,
			CreatedAt: l.CreatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}

	ranked := ranking.RankNearby(viewer, candidates, limit, cfg)

	results := make([]RankedListing, 0, len(ranked))
	for _, rr := range ranked {
		results = append(results, RankedListing{
			Listing:      byID[rr.ID],
			DistanceKm:   rr.DistanceKm,
			ScorePercent: rr.ScorePercent,
		})
	}
	return results, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanListing.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanListing scans one listing row without distance/total columns.
func scanListing(s scanner) (*Listing, error) {
	l := &Listing{}
	var (
		lat, lng  sql.NullFloat64
		photoKeys pq.StringArray
	)
	err := s.Scan(
		&l.ID, &l.SellerID, &l.Title, &l.Description, &l.Category,
		&l.Status, &l.PriceCents, &lat, &lng, &photoKeys,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Point = pointFromColumns(lat, lng)
	l.PhotoKeys = photoKeys
	return l, nil
}

// pointColumns splits an optional Point into nullable lat/lng columns.
func pointColumns(p *geo.Point) (lat, lng sql.NullFloat64) {
	if p == nil {
		return
	}
	lat = sql.NullFloat64{Float64: p.Lat, Valid: true}
	lng = sql.NullFloat64{Float64: p.Lng, Valid: true}
	return
}

// pointFromColumns rebuilds an optional Point from nullable lat/lng columns.
func pointFromColumns(lat, lng sql.NullFloat64) *geo.Point {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
}
