package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// WeightOverrides is the weight section of a calibration file.
// Pointer fields distinguish an explicit zero from an absent key.
type WeightOverrides struct {
	Image *float64 `json:"image"`
	Text  *float64 `json:"text"`
	Color *float64 `json:"color"`
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string          `json:"version"` // Config version for future compatibility
	Weights WeightOverrides `json:"weights"` // Weight overrides
}

// DefaultWeights returns the default weight configuration.
//
// Formula: combined = (image * 0.6) + (text * 0.4) + (color * 0.0)
// - Image similarity from the nearest-neighbour index dominates
// - Text similarity against the species reference embedding refines it
// - Color scoring is opt-in per request
func DefaultWeights() *Weights {
	return &Weights{
		Image: 0.6,
		Text:  0.4,
		Color: 0.0,
	}
}

// LoadCalibration loads default weights from a JSON calibration file.
// If the file doesn't exist or can't be parsed, returns default weights with an error.
// Keys missing from the file keep their default values.
//
// Parameters:
//   - filePath: Path to the calibration JSON file
//
// Returns the loaded weights and any error encountered.
func LoadCalibration(filePath string) (*Weights, error) {
	// Return defaults if no file path provided
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	if err := merged.Validate(); err != nil {
		return DefaultWeights(), fmt.Errorf("invalid calibration file: %w", err)
	}
	logCalibrationOverrides(defaults, merged, config.Version)

	return merged, nil
}

// MergeCalibration applies the present overrides on top of base.
// A nil base falls back to defaults; the returned value is always a copy.
func MergeCalibration(base *Weights, override *WeightOverrides) *Weights {
	if base == nil {
		base = DefaultWeights()
	}

	result := *base
	if override == nil {
		return &result
	}

	if override.Image != nil {
		result.Image = *override.Image
	}
	if override.Text != nil {
		result.Text = *override.Text
	}
	if override.Color != nil {
		result.Color = *override.Color
	}

	return &result
}

// logCalibrationOverrides logs which weights were overridden from defaults.
func logCalibrationOverrides(defaults *Weights, loaded *Weights, version string) {
	var overrides []string

	if loaded.Image != defaults.Image {
		overrides = append(overrides, fmt.Sprintf("image: %.2f -> %.2f", defaults.Image, loaded.Image))
	}
	if loaded.Text != defaults.Text {
		overrides = append(overrides, fmt.Sprintf("text: %.2f -> %.2f", defaults.Text, loaded.Text))
	}
	if loaded.Color != defaults.Color {
		overrides = append(overrides, fmt.Sprintf("color: %.2f -> %.2f", defaults.Color, loaded.Color))
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"version", version,
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)", "version", version)
	}

	if loaded.IsDegenerate() {
		slog.Warn("calibrated weights are all zero; every identification will be a uniform tie")
	}
}
