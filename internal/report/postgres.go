package report

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create files a new report in the open state.
func (r *PostgresRepository) Create(report *Report) error {
	if !ValidTargetType(report.TargetType) {
		return ErrInvalidTarget
	}
	if strings.TrimSpace(report.Reason) == "" {
		return ErrEmptyReason
	}

	report.ID = uuid.New().String()
	report.Status = StatusOpen
	report.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO reports (id, reporter_id, target_type, target_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(
		query,
		report.ID, report.ReporterID, report.TargetType, report.TargetID,
		report.Reason, report.Status, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// GetByID retrieves a report by ID.
func (r *PostgresRepository) GetByID(id string) (*Report, error) {
	query := `
		SELECT id, reporter_id, target_type, target_id, reason, status,
		       resolver_id, created_at, resolved_at
		FROM reports
		WHERE id = $1
	`
	rep, err := scanReport(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return rep, nil
}

// ListOpen returns open reports, oldest first.
func (r *PostgresRepository) ListOpen() ([]Report, error) {
	query := `
		SELECT id, reporter_id, target_type, target_id, reason, status,
		       resolver_id, created_at, resolved_at
		FROM reports
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(query, StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to list open reports: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return out, nil
}

// Close moves an open report to resolved or dismissed. The WHERE clause only
// matches open reports, so a second close affects zero rows.
func (r *PostgresRepository) Close(id, status, resolverID string) (*Report, error) {
	if !closedStatus(status) {
		return nil, ErrInvalidTransition
	}

	query := `
		UPDATE reports
		SET status = $2, resolver_id = $3, resolved_at = now()
		WHERE id = $1 AND status = $4
		RETURNING id, reporter_id, target_type, target_id, reason, status,
		          resolver_id, created_at, resolved_at
	`

	rep, err := scanReport(r.db.QueryRow(query, id, status, resolverID, StatusOpen))
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish missing from already closed.
		if _, getErr := r.GetByID(id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrReportClosed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to close report: %w", err)
	}
	return rep, nil
}

// CountByStatus returns report counts keyed by status.
func (r *PostgresRepository) CountByStatus() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM reports GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{
		StatusOpen:      0,
		StatusResolved:  0,
		StatusDismissed: 0,
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan report count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report counts: %w", err)
	}
	return counts, nil
}

type reportScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(s reportScanner) (*Report, error) {
	rep := &Report{}
	var (
		resolverID sql.NullString
		resolvedAt sql.NullTime
	)
	err := s.Scan(
		&rep.ID, &rep.ReporterID, &rep.TargetType, &rep.TargetID,
		&rep.Reason, &rep.Status, &resolverID, &rep.CreatedAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if resolverID.Valid {
		v := resolverID.String
		rep.ResolverID = &v
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		rep.ResolvedAt = &t
	}
	return rep, nil
}
