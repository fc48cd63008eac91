package ranking

import (
	"sort"
	"time"

	"github.com/campuscart/backend/internal/geo"
)

// Candidate is a read-only snapshot of an entity being ranked: a marketplace
// listing or a roommate post. Point is nil when the entity has no known
// location; absence means "unknown", not coordinate (0, 0).
type Candidate struct {
	ID        string
	Point     *geo.Point
	CreatedAt time.Time
}

// RankedResult is a Candidate decorated with its computed distance and match
// score. DistanceKm is nil when either side of the pair lacks a location.
type RankedResult struct {
	Candidate
	DistanceKm   *float64
	ScorePercent int
}

// RankNearby scores and orders a candidate snapshot relative to a viewer's
// location. cfg may be nil to use the default score configuration.
//
// When viewer is non-nil, each candidate with a location gets a computed
// distance; candidates without one get a nil distance. Results are ordered
// by distance ascending with nil distances last, tie-breaking by created_at
// descending. When viewer is nil, no distances are computed and ordering is
// created_at descending only.
//
// limit is assumed already clamped by the caller to its endpoint's bounds; a
// non-positive limit yields an empty result. Candidates are never mutated;
// the result holds copies.
func RankNearby(viewer *geo.Point, candidates []Candidate, limit int, cfg *ScoreConfig) []RankedResult {
	if cfg == nil {
		cfg = DefaultScoreConfig()
	}
	if limit <= 0 {
		return []RankedResult{}
	}

	results := make([]RankedResult, 0, len(candidates))
	for _, c := range candidates {
		r := RankedResult{Candidate: c}
		if viewer != nil && c.Point != nil {
			d := geo.PointDistanceKm(*viewer, *c.Point)
			r.DistanceKm = &d
		}
		r.ScorePercent = cfg.Score(r.DistanceKm)
		results = append(results, r)
	}

	if viewer != nil {
		sortByDistanceThenRecency(results)
	} else {
		sortByRecency(results)
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// sortByDistanceThenRecency orders results by distance ascending with nil
// distances last, tie-breaking by created_at descending.
func sortByDistanceThenRecency(results []RankedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		di, dj := results[i].DistanceKm, results[j].DistanceKm

		// Known distance sorts before unknown, regardless of recency.
		if di != nil && dj == nil {
			return true
		}
		if di == nil && dj != nil {
			return false
		}
		if di != nil && dj != nil && *di != *dj {
			return *di < *dj
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
}

// sortByRecency orders results by created_at descending.
func sortByRecency(results []RankedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
}
