package listing

import (
	"strings"

	"github.com/campuscart/backend/internal/geo"
)

// Sort keys accepted by Search.
const (
	SortNewest   = "newest"
	SortDistance = "distance"
)

// Pagination bounds for listing search. Out-of-range values are silently
// clamped, never rejected; over-large page sizes are capped.
const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// SearchOptions describes a filtered, paginated listing search.
// All filters are combined with logical AND. When Center and RadiusKm are
// set, listings outside the radius are excluded entirely (hard cutoff) — the
// search layer is a filter, not a ranker.
type SearchOptions struct {
	Query         string     // Case-insensitive substring over title and description
	Category      string     // Exact category match ("" = any)
	Status        string     // Exact status match ("" = active only)
	MinPriceCents *int64     // Inclusive lower price bound
	MaxPriceCents *int64     // Inclusive upper price bound
	Center        *geo.Point // Geo filter center; nil disables the geo filter
	RadiusKm      float64    // Geo filter radius; ignored when Center is nil
	Sort          string     // SortNewest (default) or SortDistance
	Page          int        // 1-based page number
	PageSize      int        // Results per page
}

// SearchItem is a listing in a search result, decorated with its distance
// from the search center when a geo context was supplied.
type SearchItem struct {
	Listing    *Listing `json:"listing"`
	DistanceKm *float64 `json:"distance_km"`
}

// SearchResult is a page of matching listings plus the total match count
// across all pages.
type SearchResult struct {
	Items    []SearchItem `json:"items"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Total    int          `json:"total"`
}

// Normalize clamps pagination and sort values in place and returns the
// options for chaining. Page < 1 becomes 1; PageSize is defaulted and capped;
// unknown sort keys fall back to newest. Called by every repository before
// querying so that clamping is uniform across backends.
func (o *SearchOptions) Normalize() *SearchOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PageSize < 1 {
		o.PageSize = DefaultPageSize
	}
	if o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}
	if o.Sort != SortNewest && o.Sort != SortDistance {
		o.Sort = SortNewest
	}
	// Distance sorting needs a reference point to sort by.
	if o.Sort == SortDistance && o.Center == nil {
		o.Sort = SortNewest
	}
	if o.RadiusKm < 0 {
		o.RadiusKm = 0
	}
	return o
}

// matchesText reports whether the listing matches the free-text query with
// case-insensitive substring semantics over title and description.
func matchesText(l *Listing, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(l.Title), q) ||
		strings.Contains(strings.ToLower(l.Description), q)
}
