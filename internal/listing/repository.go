package listing

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campuscart/backend/internal/geo"
	"github.com/campuscart/backend/internal/ranking"
)

// Common errors for listing operations.
var (
	ErrListingNotFound = errors.New("listing not found")
	ErrListingDeleted  = errors.New("listing has been deleted")
)

// RankedListing is a listing decorated with its computed distance and match
// score for the nearby discovery endpoint.
type RankedListing struct {
	Listing      *Listing `json:"listing"`
	DistanceKm   *float64 `json:"distance_km"`
	ScorePercent int      `json:"score_percent"`
}

// Repository defines the interface for listing data operations.
type Repository interface {
	// Create inserts a new listing with a generated UUID.
	Create(l *Listing) error

	// Update updates mutable fields of an existing listing.
	Update(l *Listing) error

	// Delete soft-deletes a listing by setting deleted_at.
	Delete(id string) error

	// GetByID retrieves a listing by UUID, excluding soft-deleted listings.
	GetByID(id string) (*Listing, error)

	// Search applies the filters in opts and returns one page of results
	// plus the total match count across all pages. opts is normalized
	// before querying.
	Search(opts SearchOptions) (*SearchResult, error)

	// NearbyRanked returns up to limit active listings scored and ordered
	// around the viewer's location. A nil viewer falls back to recency
	// ordering with no distances. The caller clamps limit to its
	// endpoint's bounds.
	NearbyRanked(viewer *geo.Point, limit int, cfg *ranking.ScoreConfig) ([]RankedListing, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu       sync.RWMutex
	listings map[string]*Listing
}

// NewInMemoryRepository creates a new in-memory listing repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		listings: make(map[string]*Listing),
	}
}

// Create inserts a new listing with a generated UUID.
func (r *InMemoryRepository) Create(l *Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	l.ID = uuid.New().String()
	l.CreatedAt = now
	l.UpdatedAt = now
	if l.Status == "" {
		l.Status = StatusActive
	}

	r.listings[l.ID] = l.clone()
	return nil
}

// Update updates mutable fields of an existing listing.
func (r *InMemoryRepository) Update(l *Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.listings[l.ID]
	if !ok {
		return ErrListingNotFound
	}
	if existing.DeletedAt != nil {
		return ErrListingDeleted
	}

	existing.Title = l.Title
	existing.Description = l.Description
	existing.Category = l.Category
	existing.Status = l.Status
	existing.PriceCents = l.PriceCents
	if l.Point != nil {
		p := *l.Point
		existing.Point = &p
	} else {
		existing.Point = nil
	}
	existing.PhotoKeys = append([]string(nil), l.PhotoKeys...)
	existing.UpdatedAt = time.Now().UTC()

	return nil
}

// Delete soft-deletes a listing by setting deleted_at.
func (r *InMemoryRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[id]
	if !ok {
		return ErrListingNotFound
	}
	// Already deleted - treat as not found for idempotency
	if l.DeletedAt != nil {
		return ErrListingNotFound
	}

	now := time.Now().UTC()
	l.DeletedAt = &now
	return nil
}

// GetByID retrieves a listing by UUID, excluding soft-deleted listings.
func (r *InMemoryRepository) GetByID(id string) (*Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.listings[id]
	if !ok || l.DeletedAt != nil {
		return nil, ErrListingNotFound
	}
	return l.clone(), nil
}

// Search applies the filters in opts and returns one page of results plus
// the total match count across all pages.
func (r *InMemoryRepository) Search(opts SearchOptions) (*SearchResult, error) {
	opts.Normalize()

	r.mu.RLock()
	defer r.mu.RUnlock()

	status := opts.Status
	if status == "" {
		status = StatusActive
	}

	// Collect matches with their distance from the search center (if any).
	var matches []SearchItem
	for _, l := range r.listings {
		if l.DeletedAt != nil {
			continue
		}
		if l.Status != status {
			continue
		}
		if opts.Category != "" && l.Category != opts.Category {
			continue
		}
		if opts.MinPriceCents != nil && l.PriceCents < *opts.MinPriceCents {
			continue
		}
		if opts.MaxPriceCents != nil && l.PriceCents > *opts.MaxPriceCents {
			continue
		}
		if !matchesText(l, opts.Query) {
			continue
		}

		var distance *float64
		if opts.Center != nil && l.Point != nil {
			d := geo.PointDistanceKm(*opts.Center, *l.Point)
			distance = &d
		}

		// Hard radius cutoff: listings outside the radius are excluded,
		// and so are listings with no location when a radius is requested.
		if opts.Center != nil && opts.RadiusKm > 0 {
			if distance == nil || *distance > opts.RadiusKm {
				continue
			}
		}

		matches = append(matches, SearchItem{Listing: l.clone(), DistanceKm: distance})
	}

	total := len(matches)

	switch opts.Sort {
	case SortDistance:
		sort.SliceStable(matches, func(i, j int) bool {
			di, dj := matches[i].DistanceKm, matches[j].DistanceKm
			if di != nil && dj == nil {
				return true
			}
			if di == nil && dj != nil {
				return false
			}
			if di != nil && dj != nil && *di != *dj {
				return *di < *dj
			}
			return matches[i].Listing.CreatedAt.After(matches[j].Listing.CreatedAt)
		})
	default:
		sort.SliceStable(matches, func(i, j int) bool {
			li, lj := matches[i].Listing, matches[j].Listing
			if !li.CreatedAt.Equal(lj.CreatedAt) {
				return li.CreatedAt.After(lj.CreatedAt)
			}
			// Tie-break by ID ASC for stable pagination
			return li.ID < lj.ID
		})
	}

	// Page window
	start := (opts.Page - 1) * opts.PageSize
	if start > total {
		start = total
	}
	end := start + opts.PageSize
	if end > total {
		end = total
	}

	return &SearchResult{
		Items:    matches[start:end],
		Page:     opts.Page,
		PageSize: opts.PageSize,
		Total:    total,
	}, nil
}

// NearbyRanked returns up to limit active listings scored and ordered around
// the viewer's location.
func (r *InMemoryRepository) NearbyRanked(viewer *geo.Point, limit int, cfg *ranking.ScoreConfig) ([]RankedListing, error) {
	r.mu.RLock()

	byID := make(map[string]*Listing)
	candidates := make([]ranking.Candidate, 0, len(r.listings))
	for _, l := range r.listings {
		if l.DeletedAt != nil || l.Status != StatusActive {
			continue
		}
		cp := l.clone()
		byID[cp.ID] = cp
		candidates = append(candidates, ranking.Candidate{
			ID:        cp.ID,
			Point:     cp.Point,
			CreatedAt: cp.CreatedAt,
		})
	}
	r.mu.RUnlock()

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
