// Package audit provides audit logging for access to sensitive endpoints
// and moderation actions, for compliance and incident response.
package audit

import (
	"time"
)

// Outcome values for audit log entries.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuditLog represents a single audit event in the system.
type AuditLog struct {
	ID         string
	UserID     string
	EntityType string
	EntityID   string
	Action     string
	Outcome    string // "success" or "failure"
	CreatedAt  time.Time

	// Optional metadata
	RequestID string
	IPAddress string
	UserAgent string

	// Tamper detection
	PreviousHash string // SHA-256 hash of previous log entry for tamper detection
}

// LogEntry represents the input for creating an audit log entry.
type LogEntry struct {
	UserID     string
	EntityType string
	EntityID   string
	Action     string
	Outcome    string // "success" or "failure"

	// Optional metadata
	RequestID string
	IPAddress string
	UserAgent string
}
