package ranking

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultWeights verifies the default weight configuration.
func TestDefaultWeights(t *testing.T) {
	weights := DefaultWeights()

	if weights.Image != 0.6 {
		t.Errorf("expected image weight 0.6, got %f", weights.Image)
	}
	if weights.Text != 0.4 {
		t.Errorf("expected text weight 0.4, got %f", weights.Text)
	}
	if weights.Color != 0.0 {
		t.Errorf("expected color weight 0.0, got %f", weights.Color)
	}
}

// TestLoadCalibration_DefaultFile tests loading the shipped calibration file.
func TestLoadCalibration_DefaultFile(t *testing.T) {
	configPath := filepath.Join("..", "..", "configs", "ranking.calibration.json")
	weights, err := LoadCalibration(configPath)

	if _, statErr := os.Stat(configPath); statErr == nil {
		if err != nil {
			t.Fatalf("expected no error loading default calibration file, got: %v", err)
		}
		if *weights != *DefaultWeights() {
			t.Errorf("loaded weights don't match defaults:\nloaded: %+v\ndefaults: %+v",
				weights, DefaultWeights())
		}
	} else {
		if err == nil {
			t.Error("expected error when file doesn't exist")
		}
		if *weights != *DefaultWeights() {
			t.Error("should return defaults when file doesn't exist")
		}
	}
}

// TestLoadCalibration_EmptyPath tests loading with empty file path.
func TestLoadCalibration_EmptyPath(t *testing.T) {
	weights, err := LoadCalibration("")
	if err != nil {
		t.Errorf("expected no error with empty path, got: %v", err)
	}
	if *weights != *DefaultWeights() {
		t.Errorf("expected defaults, got %+v", weights)
	}
}

// TestLoadCalibration_Files tests parsing of calibration files.
func TestLoadCalibration_Files(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected Weights
		wantErr  bool
	}{
		{
			name:     "full override",
			content:  `{"version":"2","weights":{"image":0.5,"text":0.3,"color":0.2}}`,
			expected: Weights{Image: 0.5, Text: 0.3, Color: 0.2},
		},
		{
			name:     "partial override keeps defaults",
			content:  `{"version":"2","weights":{"color":0.15}}`,
			expected: Weights{Image: 0.6, Text: 0.4, Color: 0.15},
		},
		{
			name:     "explicit zero is honoured",
			content:  `{"weights":{"text":0}}`,
			expected: Weights{Image: 0.6, Text: 0, Color: 0},
		},
		{
			name:     "negative weights allowed",
			content:  `{"weights":{"image":-0.1}}`,
			expected: Weights{Image: -0.1, Text: 0.4, Color: 0},
		},
		{
			name:     "invalid JSON falls back to defaults",
			content:  `{"weights":`,
			expected: *DefaultWeights(),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "calibration.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("failed to write calibration file: %v", err)
			}

			weights, err := LoadCalibration(path)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if *weights != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, *weights)
			}
		})
	}
}

// TestLoadCalibration_MissingFile tests graceful degradation on a missing file.
func TestLoadCalibration_MissingFile(t *testing.T) {
	weights, err := LoadCalibration(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Error("expected error for missing file")
	}
	if *weights != *DefaultWeights() {
		t.Errorf("expected defaults, got %+v", weights)
	}
}

// TestMergeCalibration tests merge semantics.
func TestMergeCalibration(t *testing.T) {
	t.Run("nil base uses defaults", func(t *testing.T) {
		got := MergeCalibration(nil, nil)
		if *got != *DefaultWeights() {
			t.Errorf("expected defaults, got %+v", got)
		}
	})

	t.Run("nil override copies base", func(t *testing.T) {
		base := &Weights{Image: 1, Text: 2, Color: 3}
		got := MergeCalibration(base, nil)
		if *got != *base {
			t.Errorf("expected %+v, got %+v", base, got)
		}
		got.Image = 9
		if base.Image != 1 {
			t.Error("merge result should not alias the base")
		}
	})

	t.Run("override applied", func(t *testing.T) {
		got := MergeCalibration(DefaultWeights(), &WeightOverrides{Color: Float(0.3)})
		want := Weights{Image: 0.6, Text: 0.4, Color: 0.3}
		if *got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})
}
