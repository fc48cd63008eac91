package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string      `json:"version"` // Config version for future compatibility
	Score   ScoreConfig `json:"score"`   // Score tier configuration
}

// LoadCalibration loads the score configuration from a JSON calibration file.
// If the file doesn't exist or can't be read, returns the default config with
// an error. Partial configurations are merged with defaults for graceful
// degradation.
//
// Parameters:
//   - filePath: Path to the calibration JSON file ("" uses defaults)
//
// Returns the loaded config and any error encountered.
// On error, returns the default config to ensure graceful degradation.
func LoadCalibration(filePath string) (*ScoreConfig, error) {
	// Return defaults if no file path provided
	if filePath == "" {
		return DefaultScoreConfig(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultScoreConfig(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultScoreConfig(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	// Merge loaded values with defaults to handle partial configurations
	defaults := DefaultScoreConfig()
	merged := MergeCalibration(defaults, &config.Score)
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges an override config with a base config.
// Only non-zero values from the override are applied, which allows partial
// overrides in the calibration file.
//
// Parameters:
//   - base: The base config to start from (typically defaults)
//   - override: The override config to merge in
//
// Returns a new ScoreConfig with merged values.
func MergeCalibration(base *ScoreConfig, override *ScoreConfig) *ScoreConfig {
	// Guard against nil base to avoid panics; fall back to defaults.
	if base == nil {
		return DefaultScoreConfig()
	}

	// If there is no override provided, return a copy of the base.
	if override == nil {
		result := *base
		return &result
	}

	result := *base // Copy base

	if override.NearCutoffKm != 0 {
		result.NearCutoffKm = override.NearCutoffKm
	}
	if override.MidCutoffKm != 0 {
		result.MidCutoffKm = override.MidCutoffKm
	}
	if override.NearFloor != 0 {
		result.NearFloor = override.NearFloor
	}
	if override.NoLocationScore != 0 {
		result.NoLocationScore = override.NoLocationScore
	}
	if override.MaxFarPenalty != 0 {
		result.MaxFarPenalty = override.MaxFarPenalty
	}
	if override.FarDecayPerKm != 0 {
		result.FarDecayPerKm = override.FarDecayPerKm
	}

	return &result
}

// logCalibrationOverrides logs which score values were overridden from defaults.
func logCalibrationOverrides(defaults *ScoreConfig, loaded *ScoreConfig) {
	var overrides []string

	if loaded.NearCutoffKm != defaults.NearCutoffKm {
		overrides = append(overrides, fmt.Sprintf("near_cutoff_km: %.1f -> %.1f",
			defaults.NearCutoffKm, loaded.NearCutoffKm))
	}
	if loaded.MidCutoffKm != defaults.MidCutoffKm {
		overrides = append(overrides, fmt.Sprintf("mid_cutoff_km: %.1f -> %.1f",
			defaults.MidCutoffKm, loaded.MidCutoffKm))
	}
	if loaded.NearFloor != defaults.NearFloor {
		overrides = append(overrides, fmt.Sprintf("near_floor: %d -> %d",
			defaults.NearFloor, loaded.NearFloor))
	}
	if loaded.NoLocationScore != defaults.NoLocationScore {
		overrides = append(overrides, fmt.Sprintf("no_location_score: %d -> %d",
			defaults.NoLocationScore, loaded.NoLocationScore))
	}
	if loaded.MaxFarPenalty != defaults.MaxFarPenalty {
		overrides = append(overrides, fmt.Sprintf("max_far_penalty: %d -> %d",
			defaults.MaxFarPenalty, loaded.MaxFarPenalty))
	}
	if loaded.FarDecayPerKm != defaults.FarDecayPerKm {
		overrides = append(overrides, fmt.Sprintf("far_decay_per_km: %.2f -> %.2f",
			defaults.FarDecayPerKm, loaded.FarDecayPerKm))
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
