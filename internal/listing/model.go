// Package listing provides models and repository for marketplace item
// listings with filtered search and location-aware discovery.
package listing

import (
	"time"

	"github.com/campuscart/backend/internal/geo"
)

// Listing statuses.
const (
	StatusActive  = "active"
	StatusSold    = "sold"
	StatusHidden  = "hidden"
	StatusRemoved = "removed"
)

// Listing categories.
const (
	CategoryTextbooks   = "textbooks"
	CategoryFurniture   = "furniture"
	CategoryElectronics = "electronics"
	CategoryClothing    = "clothing"
	CategoryTickets     = "tickets"
	CategoryOther       = "other"
)

// Listing represents a marketplace item posted by a seller.
// Point is nil when the seller never shared a pickup location; absence means
// "unknown", not coordinate (0, 0).
type Listing struct {
	ID          string     `json:"id"`
	SellerID    string     `json:"seller_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	Status      string     `json:"status"`
	PriceCents  int64      `json:"price_cents"`
	Point       *geo.Point `json:"point,omitempty"`
	PhotoKeys   []string   `json:"photo_keys,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// ValidStatus reports whether s is a known listing status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusSold, StatusHidden, StatusRemoved:
		return true
	}
	return false
}

// ValidCategory reports whether c is a known listing category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryTextbooks, CategoryFurniture, CategoryElectronics,
		CategoryClothing, CategoryTickets, CategoryOther:
		return true
	}
	return false
}

// clone returns a deep copy of the listing to prevent external mutation.
func (l *Listing) clone() *Listing {
	cp := *l
	if l.Point != nil {
		p := *l.Point
		cp.Point = &p
	}
	if l.PhotoKeys != nil {
		cp.PhotoKeys = append([]string(nil), l.PhotoKeys...)
	}
	if l.DeletedAt != nil {
		t := *l.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}
