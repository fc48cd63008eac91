// Package roommate provides models and repositories for roommate-seeker
// profiles and proximity-based match suggestions.
package roommate

import (
	"time"

	"github.com/campuscart/backend/internal/geo"
)

// Profile statuses.
const (
	StatusActive = "active"
	StatusPaused = "paused"
)

// Match limit bounds. Requests outside the range are clamped rather than
// rejected.
const (
	DefaultMatchLimit = 3
	MaxMatchLimit     = 12
)

// Profile represents a roommate-seeker profile. A user has at most one
// profile. Point is optional: profiles without a location still appear in
// match results, ranked after located ones.
type Profile struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Headline       string     `json:"headline"`
	Bio            string     `json:"bio,omitempty"`
	BudgetMinCents int64      `json:"budget_min_cents"`
	BudgetMaxCents int64      `json:"budget_max_cents"`
	MoveInDate     *time.Time `json:"move_in_date,omitempty"`
	Point          *geo.Point `json:"point,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ValidStatus reports whether s is a recognized profile status.
func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusPaused
}

// ClampMatchLimit normalizes a requested match count into [1, MaxMatchLimit].
// Zero and negative values fall back to DefaultMatchLimit.
func ClampMatchLimit(limit int) int {
	if limit <= 0 {
		return DefaultMatchLimit
	}
	if limit > MaxMatchLimit {
		return MaxMatchLimit
	}
	return limit
}

func (p *Profile) clone() *Profile {
	cp := *p
	if p.Point != nil {
		pt := *p.Point
		cp.Point = &pt
	}
	if p.MoveInDate != nil {
		d := *p.MoveInDate
		cp.MoveInDate = &d
	}
	return &cp
}
