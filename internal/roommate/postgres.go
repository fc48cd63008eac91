package roommate

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/campuscart/backend/internal/geo"
	"github.com/campuscart/backend/internal/ranking"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert creates the caller's profile or replaces the existing one, keyed by
// user ID.
func (r *PostgresRepository) Upsert(p *Profile) error {
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}

	query := `
		INSERT INTO roommate_profiles (
			id, user_id, headline, bio, budget_min_cents, budget_max_cents,
			move_in_date, lat, lng, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			headline = EXCLUDED.headline,
			bio = EXCLUDED.bio,
			budget_min_cents = EXCLUDED.budget_min_cents,
			budget_max_cents = EXCLUDED.budget_max_cents,
			move_in_date = EXCLUDED.move_in_date,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`

	lat, lng := profilePointColumns(p.Point)
	err := r.db.QueryRow(
		query,
		p.ID, p.UserID, p.Headline, p.Bio, p.BudgetMinCents, p.BudgetMaxCents,
		moveInColumn(p.MoveInDate), lat, lng, p.Status, now,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert roommate profile: %w", err)
	}
	return nil
}

// GetByID retrieves a profile by its ID.
func (r *PostgresRepository) GetByID(id string) (*Profile, error) {
	return r.getByColumn("id", id)
}

// GetByUserID retrieves the profile owned by the given user.
func (r *PostgresRepository) GetByUserID(userID string) (*Profile, error) {
	return r.getByColumn("user_id", userID)
}

func (r *PostgresRepository) getByColumn(column, value string) (*Profile, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, headline, bio, budget_min_cents, budget_max_cents,
		       move_in_date, lat, lng, status, created_at, updated_at
		FROM roommate_profiles
		WHERE %s = $1
	`, column)

	p, err := scanProfile(r.db.QueryRow(query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get roommate profile: %w", err)
	}
	return p, nil
}

// Delete removes the profile owned by the given user.
func (r *PostgresRepository) Delete(userID string) error {
	res, err := r.db.Exec(`DELETE FROM roommate_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete roommate profile: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// matchFetchLimit caps the candidate snapshot handed to the ranker.
const matchFetchLimit = 500

// Matches fetches a snapshot of active profiles and ranks it around the
// viewer. A nil viewer point falls back to the viewer's profile location.
func (r *PostgresRepository) Matches(viewerUserID string, viewer *geo.Point, limit int, cfg *ranking.ScoreConfig) ([]Match, error) {
	limit = ClampMatchLimit(limit)

	if viewer == nil {
		if own, err := r.GetByUserID(viewerUserID); err == nil {
			viewer = own.Point
		} else if !errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
	}

	query := `
		SELECT id, user_id, headline, bio, budget_min_cents, budget_max_cents,
		       move_in_date, lat, lng, status, created_at, updated_at
		FROM roommate_profiles
		WHERE user_id != $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Query(query, viewerUserID, StatusActive, matchFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch match candidates: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Profile)
	var candidates []ranking.Candidate
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match candidate: %w", err)
		}
		byID[p.ID] = p
		candidates = append(candidates, ranking.Candidate{
			ID:        p.ID,
			Point:     p.Point,
			CreatedAt: p.CreatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate match candidates: %w", err)
	}

	ranked := ranking.RankNearby(viewer, candidates, limit, cfg)

	matches := make([]Match, 0, len(ranked))
	for _, rr := range ranked {
		matches = append(matches, Match{
			Profile:      *byID[rr.ID],
			DistanceKm:   rr.DistanceKm,
			ScorePercent: rr.ScorePercent,
		})
	}
	return matches, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(s rowScanner) (*Profile, error) {
	p := &Profile{}
	var (
		lat, lng sql.NullFloat64
		moveIn   sql.NullTime
	)
	err := s.Scan(
		&p.ID, &p.UserID, &p.Headline, &p.Bio, &p.BudgetMinCents,
		&p.BudgetMaxCents, &moveIn, &lat, &lng, &p.Status,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		p.Point = &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	if moveIn.Valid {
		d := moveIn.Time
		p.MoveInDate = &d
	}
	return p, nil
}

func profilePointColumns(p *geo.Point) (lat, lng sql.NullFloat64) {
	if p == nil {
		return
	}
	lat = sql.NullFloat64{Float64: p.Lat, Valid: true}
	lng = sql.NullFloat64{Float64: p.Lng, Valid: true}
	return
}

func moveInColumn(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
