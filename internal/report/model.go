// Package report provides models and repositories for user reports against
// listings and other users, with a simple moderation lifecycle.
package report

import (
	"errors"
	"time"
)

// Report statuses. A report opens as "open" and is closed exactly once, to
// either "resolved" or "dismissed".
const (
	StatusOpen      = "open"
	StatusResolved  = "resolved"
	StatusDismissed = "dismissed"
)

// Report target types.
const (
	TargetListing = "listing"
	TargetUser    = "user"
)

// Repository errors.
var (
	ErrReportNotFound    = errors.New("report not found")
	ErrReportClosed      = errors.New("report is already closed")
	ErrInvalidTransition = errors.New("invalid report status transition")
	ErrInvalidTarget     = errors.New("invalid report target type")
	ErrEmptyReason       = errors.New("report reason is empty")
)

// Report is a user-filed complaint about a listing or another user.
type Report struct {
	ID         string     `json:"id"`
	ReporterID string     `json:"reporter_id"`
	TargetType string     `json:"target_type"`
	TargetID   string     `json:"target_id"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	ResolverID *string    `json:"resolver_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// ValidTargetType reports whether t is a recognized target type.
func ValidTargetType(t string) bool {
	return t == TargetListing || t == TargetUser
}

// closedStatus reports whether s is a terminal status.
func closedStatus(s string) bool {
	return s == StatusResolved || s == StatusDismissed
}
