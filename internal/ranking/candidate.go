package ranking

import (
	"errors"
	"fmt"
	"math"

	"github.com/wildlife-vision/speciesid/internal/color"
)

// Scoring errors.
var (
	// ErrEmptyCandidateSet is returned when there is nothing to combine or rank.
	ErrEmptyCandidateSet = errors.New("no candidates supplied")

	// ErrInvalidSimilarityValue is returned when a similarity or score is non-finite
	// or outside its documented range.
	ErrInvalidSimilarityValue = errors.New("invalid similarity value")

	// ErrInvalidWeight is returned when a weight is NaN or infinite.
	ErrInvalidWeight = errors.New("invalid weight")

	// ErrScoreOverflow is returned when finite weights and similarities combine
	// into a non-finite score.
	ErrScoreOverflow = errors.New("combined score overflowed")

	// ErrDegenerateWeights flags a weight configuration where every weight is zero.
	// It is advisory: Rerank still succeeds and reports it through Result.Degenerate.
	ErrDegenerateWeights = errors.New("all weights are zero")
)

// Candidate is one species hypothesis under evaluation.
type Candidate struct {
	CommonName    string `json:"common_name"`
	SpeciesID     string `json:"species"`
	EcoregionCode string `json:"eco_code"`

	ImageSimilarity float64  `json:"image_similarity"` // Cosine similarity [-1, 1]
	TextSimilarity  float64  `json:"text_similarity"`  // Cosine similarity [-1, 1]
	ColorSimilarity *float64 `json:"color_similarity"` // Optional, [0, 1]

	// Palettes are carried through for the response only and never scored directly.
	ImageColors   color.Profile `json:"image_colors,omitempty"`
	SpeciesColors color.Profile `json:"species_colors,omitempty"`

	CombinedScore float64 `json:"combined_score"`
	Probability   float64 `json:"probability"`
}

// ColorValue returns the colour similarity, or 0 when it is absent.
func (c Candidate) ColorValue() float64 {
	if c.ColorSimilarity == nil {
		return 0
	}
	return *c.ColorSimilarity
}

// Validate checks the raw similarity signals of a candidate.
// Image and text similarities must be finite and within [-1, 1];
// a colour similarity, when present, must be finite and within [0, 1].
func (c Candidate) Validate() error {
	if err := checkRange("image_similarity", c.ImageSimilarity, -1, 1); err != nil {
		return err
	}
	if err := checkRange("text_similarity", c.TextSimilarity, -1, 1); err != nil {
		return err
	}
	if c.ColorSimilarity != nil {
		if err := checkRange("color_similarity", *c.ColorSimilarity, 0, 1); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAll validates every candidate, reporting the index of the first failure.
func ValidateAll(cands []Candidate) error {
	if len(cands) == 0 {
		return ErrEmptyCandidateSet
	}
	for i, c := range cands {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("candidate %d (%s): %w", i, c.CommonName, err)
		}
	}
	return nil
}

// Float returns a pointer to v, for populating optional similarities.
func Float(v float64) *float64 {
	return &v
}

func checkRange(field string, v, lo, hi float64) error {
	if !isFinite(v) {
		return fmt.Errorf("%w: %s is not finite", ErrInvalidSimilarityValue, field)
	}
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s=%v outside [%v, %v]", ErrInvalidSimilarityValue, field, v, lo, hi)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
