package roommate

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campuscart/backend/internal/geo"
	"github.com/campuscart/backend/internal/ranking"
)

// ErrProfileNotFound is returned when no profile exists for the given key.
var ErrProfileNotFound = errors.New("roommate profile not found")

// Match pairs a candidate profile with its proximity ranking relative to the
// viewer. DistanceKm is nil when either side has no location on file.
type Match struct {
	Profile      Profile  `json:"profile"`
	DistanceKm   *float64 `json:"distance_km"`
	ScorePercent int      `json:"score_percent"`
}

// Repository defines roommate profile data operations.
type Repository interface {
	// Upsert creates the caller's profile or replaces the existing one.
	// A user has at most one profile.
	Upsert(profile *Profile) error

	// GetByID retrieves a profile by its ID.
	GetByID(id string) (*Profile, error)

	// GetByUserID retrieves the profile owned by the given user.
	GetByUserID(userID string) (*Profile, error)

	// Delete removes the profile owned by the given user.
	Delete(userID string) error

	// Matches returns up to limit active profiles ranked by proximity to
	// the viewer. A non-nil viewer point overrides the location stored on
	// the viewer's own profile. The viewer's profile is excluded. When no
	// viewer location is available, candidates are ranked by recency.
	Matches(viewerUserID string, viewer *geo.Point, limit int, cfg *ranking.ScoreConfig) ([]Match, error)
}

// InMemoryRepository is an in-memory implementation of Repository, used for
// testing and development. Safe for concurrent use.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*Profile // keyed by profile ID
	byUser   map[string]string   // user ID -> profile ID
}

// NewInMemoryRepository creates a new in-memory roommate repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		profiles: make(map[string]*Profile),
		byUser:   make(map[string]string),
	}
}

// Upsert creates the caller's profile or replaces the existing one.
func (r *InMemoryRepository) Upsert(profile *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if existingID, ok := r.byUser[profile.UserID]; ok {
		existing := r.profiles[existingID]
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
	} else {
		profile.ID = uuid.NewString()
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	if profile.Status == "" {
		profile.Status = StatusActive
	}

	cp := profile.clone()
	r.profiles[cp.ID] = cp
	r.byUser[cp.UserID] = cp.ID
	return nil
}

// GetByID retrieves a profile by its ID.
func (r *InMemoryRepository) GetByID(id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p.clone(), nil
}

// GetByUserID retrieves the profile owned by the given user.
func (r *InMemoryRepository) GetByUserID(userID string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUser[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return r.profiles[id].clone(), nil
}

// Delete removes the profile owned by the given user.
func (r *InMemoryRepository) Delete(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byUser[userID]
	if !ok {
		return ErrProfileNotFound
	}
	delete(r.profiles, id)
	delete(r.byUser, userID)
	return nil
}

// Matches returns up to limit active profiles ranked by proximity to the
// viewer. A nil viewer point falls back to the viewer's profile location.
func (r *InMemoryRepository) Matches(viewerUserID string, viewer *geo.Point, limit int, cfg *ranking.ScoreConfig) ([]Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit = ClampMatchLimit(limit)

	if viewer == nil {
		if id, ok := r.byUser[viewerUserID]; ok {
			if p := r.profiles[id].Point; p != nil {
				pt := *p
				viewer = &pt
			}
		}
	}

	candidates := make([]ranking.Candidate, 0, len(r.profiles))
	byID := make(map[string]*Profile, len(r.profiles))
	for _, p := range r.profiles {
		if p.UserID == viewerUserID || p.Status != StatusActive {
			continue
		}
		candidates = append(candidates, ranking.Candidate{
			ID:        p.ID,
			Point:     p.Point,
			CreatedAt: p.CreatedAt,
		})
		byID[p.ID] = p
	}

	ranked := ranking.RankNearby(viewer, candidates, limit, cfg)
	matches := make([]Match, 0, len(ranked))
	for _, res := range ranked {
		matches = append(matches, Match{
			Profile:      *byID[res.ID].clone(),
			DistanceKm:   res.DistanceKm,
			ScorePercent: res.ScorePercent,
		})
	}
	return matches, nil
}
