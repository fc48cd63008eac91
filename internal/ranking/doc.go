// Package ranking provides the distance-based match scoring and nearby
// candidate ordering used by marketplace and roommate discovery.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	cfg, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		log.Warn("using default score config", "error", err)
//	}
//
//	// Score a single candidate from its distance
//	score := cfg.Score(&distanceKm) // integer in [50, 100]
//	score = cfg.Score(nil)          // 70 when location is unknown
//
//	// Rank a candidate snapshot around a viewer
//	results := ranking.RankNearby(viewerPoint, candidates, limit, cfg)
//
// Scoring:
//
// ScoreFromDistance maps a distance (or its absence) to an integer match
// score in [0, 100] using a tiered heuristic: 90-100 within 10 km, linear
// decay to 70 at 30 km, then a slower half-point-per-km decay floored at 50.
// A candidate with no known location always scores the fixed default (70).
// The tier boundaries and caps are a product policy, not a derived model;
// they are kept stable for compatibility with existing clients.
//
// Ranking:
//
// RankNearby decorates a candidate snapshot with distance and score and
// orders it nearest-first, unknown-location candidates last, tie-breaking
// by recency. When the viewer has no known location, ordering falls back to
// recency alone and no distances are computed. The ranker never mutates its
// inputs and performs no I/O.
//
// Calibration:
//
// The calibration system allows deploy-time tuning of the score tiers via a
// JSON configuration file loaded at startup. Changing the shipped defaults
// changes ordering behavior for all clients, so overrides are logged.
package ranking
