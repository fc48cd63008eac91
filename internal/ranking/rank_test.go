package ranking

import (
	"testing"
	"time"

	"github.com/campuscart/backend/internal/geo"
)

// makeCandidates builds a snapshot around the (40.0, -75.0) viewer used in
// most tests. One degree of latitude is ~111 km, so offsets are chosen to
// land near the intended distances.
func makeCandidates(base time.Time) []Candidate {
	return []Candidate{
		{
			ID:        "far",
			Point:     &geo.Point{Lat: 40.405, Lng: -75.0}, // ~45 km north
			CreatedAt: base.Add(3 * time.Hour),
		},
		{
			ID:        "near",
			Point:     &geo.Point{Lat: 40.018, Lng: -75.0}, // ~2 km north
			CreatedAt: base,
		},
		{
			ID:        "mid",
			Point:     &geo.Point{Lat: 40.135, Lng: -75.0}, // ~15 km north
			CreatedAt: base.Add(time.Hour),
		},
	}
}

// TestRankNearbyOrdersByDistance tests the concrete three-candidate scenario:
// distances ~{2, 15, 45} km must come back nearest-first with tier-appropriate
// scores regardless of creation order.
func TestRankNearbyOrdersByDistance(t *testing.T) {
	viewer := &geo.Point{Lat: 40.0, Lng: -75.0}
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	results := RankNearby(viewer, makeCandidates(base), 3, nil)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	wantOrder := []string{"near", "mid", "far"}
	for i, want := range wantOrder {
		if results[i].ID != want {
			t.Errorf("position %d: got %q, want %q", i, results[i].ID, want)
		}
	}

	// Tier checks: near in [90,100], mid in [70,90), far in [50,70).
	if s := results[0].ScorePercent; s < 90 || s > 100 {
		t.Errorf("near candidate score %d outside [90, 100]", s)
	}
	if s := results[1].ScorePercent; s < 70 || s >= 90 {
		t.Errorf("mid candidate score %d outside [70, 90)", s)
	}
	if s := results[2].ScorePercent; s < 50 || s >= 70 {
		t.Errorf("far candidate score %d outside [50, 70)", s)
	}

	for _, r := range results {
		if r.DistanceKm == nil {
			t.Errorf("candidate %q missing distance", r.ID)
		}
	}
}

// TestRankNearbyExactScores pins the exact scores for the {2, 15, 45} km
// scenario using explicit distances rather than coordinates.
func TestRankNearbyExactScores(t *testing.T) {
	tests := []struct {
		distance float64
		expected int
	}{
		{distance: 2, expected: 98},  // max(90, 100-2)
		{distance: 15, expected: 85}, // 90 - round(5)
		{distance: 45, expected: 62}, // 70 - min(20, round(7.5))
	}

	for _, tt := range tests {
		if got := ScoreFromDistance(floatPtr(tt.distance)); got != tt.expected {
			t.Errorf("ScoreFromDistance(%.0f) = %d, want %d", tt.distance, got, tt.expected)
		}
	}
}

// TestRankNearbyNilViewer tests the recency fallback: no distances computed,
// ordering purely by created_at descending.
func TestRankNearbyNilViewer(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	candidates := makeCandidates(base)

	results := RankNearby(nil, candidates, 10, nil)

	if len(results) != len(candidates) {
		t.Fatalf("expected %d results, got %d", len(candidates), len(results))
	}

	wantOrder := []string{"far", "mid", "near"} // newest first
	for i, want := range wantOrder {
		if results[i].ID != want {
			t.Errorf("position %d: got %q, want %q", i, results[i].ID, want)
		}
	}

	for _, r := range results {
		if r.DistanceKm != nil {
			t.Errorf("candidate %q has a distance with nil viewer", r.ID)
		}
		if r.ScorePercent != 70 {
			t.Errorf("candidate %q score %d, want 70", r.ID, r.ScorePercent)
		}
	}
}

// TestRankNearbyNoLocationSortsLast tests that a candidate without a
// coordinate always sorts after candidates with a computed distance, even
// when it is the newest.
func TestRankNearbyNoLocationSortsLast(t *testing.T) {
	viewer := &geo.Point{Lat: 40.0, Lng: -75.0}
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	candidates := append(makeCandidates(base), Candidate{
		ID:        "unlocated",
		Point:     nil,
		CreatedAt: base.Add(48 * time.Hour), // newest by far
	})

	results := RankNearby(viewer, candidates, 10, nil)

	last := results[len(results)-1]
	if last.ID != "unlocated" {
		t.Errorf("unlocated candidate at position %d, want last", indexOf(results, "unlocated"))
	}
	if last.DistanceKm != nil {
		t.Error("unlocated candidate has a non-nil distance")
	}
	if last.ScorePercent != 70 {
		t.Errorf("unlocated candidate score %d, want 70", last.ScorePercent)
	}
}

// TestRankNearbyLimit tests truncation and the non-positive limit guard.
func TestRankNearbyLimit(t *testing.T) {
	viewer := &geo.Point{Lat: 40.0, Lng: -75.0}
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	candidates := makeCandidates(base)

	tests := []struct {
		name     string
		limit    int
		expected int
	}{
		{name: "limit below snapshot size", limit: 2, expected: 2},
		{name: "limit above snapshot size", limit: 50, expected: 3},
		{name: "zero limit", limit: 0, expected: 0},
		{name: "negative limit", limit: -1, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := RankNearby(viewer, candidates, tt.limit, nil)
			if len(results) != tt.expected {
				t.Errorf("got %d results, want %d", len(results), tt.expected)
			}
		})
	}
}

// TestRankNearbyDoesNotMutateInput tests that the ranker only decorates
// copies of the supplied snapshot.
func TestRankNearbyDoesNotMutateInput(t *testing.T) {
	viewer := &geo.Point{Lat: 40.0, Lng: -75.0}
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	candidates := makeCandidates(base)

	originalOrder := make([]string, len(candidates))
	for i, c := range candidates {
		originalOrder[i] = c.ID
	}

	RankNearby(viewer, candidates, 3, nil)

	for i, c := range candidates {
		if c.ID != originalOrder[i] {
			t.Fatalf("input slice reordered at %d: got %q, want %q", i, c.ID, originalOrder[i])
		}
	}
}

// TestRankNearbyTieBreakByRecency tests that equal distances order newest first.
func TestRankNearbyTieBreakByRecency(t *testing.T) {
	viewer := &geo.Point{Lat: 40.0, Lng: -75.0}
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	point := &geo.Point{Lat: 40.018, Lng: -75.0}

	candidates := []Candidate{
		{ID: "older", Point: point, CreatedAt: base},
		{ID: "newer", Point: point, CreatedAt: base.Add(time.Hour)},
	}

	results := RankNearby(viewer, candidates, 2, nil)
	if results[0].ID != "newer" || results[1].ID != "older" {
		t.Errorf("tie-break order wrong: got [%s, %s], want [newer, older]",
			results[0].ID, results[1].ID)
	}
}

func indexOf(results []RankedResult, id string) int {
	for i, r := range results {
		if r.ID == id {
			return i
		}
	}
	return -1
}
