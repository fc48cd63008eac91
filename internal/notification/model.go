// Package notification provides in-app notifications and optional email
// delivery for account-level events.
package notification

import (
	"errors"
	"time"
)

// Notification types.
const (
	TypeMessageReceived = "message_received"
	TypeReviewReceived  = "review_received"
	TypeReportClosed    = "report_closed"
	TypeListingRemoved  = "listing_removed"
)

// Repository errors.
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidType          = errors.New("invalid notification type")
)

// Notification is one in-app notification for a user.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ValidType reports whether t is a recognized notification type.
func ValidType(t string) bool {
	switch t {
	case TypeMessageReceived, TypeReviewReceived, TypeReportClosed, TypeListingRemoved:
		return true
	}
	return false
}
