package ranking

import (
	"math"
)

// ScoreConfig defines the tier boundaries and caps for distance-based match
// scoring. All distances are in kilometers, all scores are integer percents.
//
// The default mapping:
//   - 0 <= d <= NearCutoffKm: max(NearFloor, 100 - round(d))
//   - NearCutoffKm < d <= MidCutoffKm: NearFloor - round(d - NearCutoffKm)
//   - d > MidCutoffKm: NoLocationScore - min(MaxFarPenalty, round((d - MidCutoffKm) * FarDecayPerKm))
//
// With the defaults this yields 90-100 inside 10 km, a linear decay down to
// 70 at 30 km, then a half-point-per-km decay floored at 50.
type ScoreConfig struct {
	NearCutoffKm    float64 `json:"near_cutoff_km"`    // End of the near tier (default: 10)
	MidCutoffKm     float64 `json:"mid_cutoff_km"`     // End of the mid tier (default: 30)
	NearFloor       int     `json:"near_floor"`        // Minimum score inside the near tier (default: 90)
	NoLocationScore int     `json:"no_location_score"` // Fixed score when distance is unknown (default: 70)
	MaxFarPenalty   int     `json:"max_far_penalty"`   // Cap on the far-tier penalty (default: 20)
	FarDecayPerKm   float64 `json:"far_decay_per_km"`  // Far-tier decay rate per km (default: 0.5)
}

// DefaultScoreConfig returns the default score configuration.
//
// The tier boundaries (10 km, 30 km) and caps (90 floor, 20-point max
// penalty) are an explicit product heuristic. They are preserved exactly
// for compatibility with existing clients; do not smooth the 100 -> 90
// discontinuity at the near-tier boundary.
func DefaultScoreConfig() *ScoreConfig {
	return &ScoreConfig{
		NearCutoffKm:    10,
		MidCutoffKm:     30,
		NearFloor:       90,
		NoLocationScore: 70,
		MaxFarPenalty:   20,
		FarDecayPerKm:   0.5,
	}
}

// ScoreFromDistance maps a distance in kilometers (or its absence) to an
// integer match score using the default configuration.
//
// A nil distance means "location unknown" and always yields the fixed
// default score of 70. For known distances the result is in [50, 100] and
// non-increasing in distance within each tier.
func ScoreFromDistance(distanceKm *float64) int {
	return DefaultScoreConfig().Score(distanceKm)
}

// Score maps a distance in kilometers (or its absence) to an integer match
// score using this configuration. A nil config falls back to defaults.
//
// Rounding is half away from zero at each step (math.Round), matching the
// tier boundary behavior clients already depend on.
func (c *ScoreConfig) Score(distanceKm *float64) int {
	if c == nil {
		c = DefaultScoreConfig()
	}

	if distanceKm == nil {
		return c.NoLocationScore
	}

	d := *distanceKm
	if d < 0 {
		d = 0 // Clamp negative distances
	}

	switch {
	case d <= c.NearCutoffKm:
		score := 100 - int(math.Round(d))
		if score < c.NearFloor {
			score = c.NearFloor
		}
		return score

	case d <= c.MidCutoffKm:
		return c.NearFloor - int(math.Round(d-c.NearCutoffKm))

	default:
		penalty := int(math.Round((d - c.MidCutoffKm) * c.FarDecayPerKm))
		if penalty > c.MaxFarPenalty {
			penalty = c.MaxFarPenalty
		}
		return c.NoLocationScore - penalty
	}
}
