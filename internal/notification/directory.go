package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// Directory resolves a user ID to an email address. An empty address with a
// nil error means the user has no deliverable email.
type Directory interface {
	EmailFor(ctx context.Context, userID string) (string, error)
}

// InMemoryDirectory is a map-backed Directory for development and tests.
type InMemoryDirectory struct {
	mu     sync.RWMutex
	emails map[string]string
}

// NewInMemoryDirectory creates an empty in-memory directory.
func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{emails: make(map[string]string)}
}

// Register associates a user ID with an email address.
func (d *InMemoryDirectory) Register(userID, email string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emails[userID] = email
}

// EmailFor looks up the registered address. Unknown users resolve to "".
func (d *InMemoryDirectory) EmailFor(ctx context.Context, userID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.emails[userID], nil
}

// PostgresDirectory resolves email addresses from the users table.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory creates a PostgreSQL-backed directory.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// EmailFor fetches the user's email. A missing user resolves to "" so the
// caller can fall back to in-app delivery only.
func (d *PostgresDirectory) EmailFor(ctx context.Context, userID string) (string, error) {
	var email string
	err := d.db.QueryRowContext(ctx,
		`SELECT email FROM users WHERE id = $1`, userID,
	).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up email: %w", err)
	}
	return email, nil
}
