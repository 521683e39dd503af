package ranking

import (
	"fmt"
)

// Weights holds the per-signal weights of the linear combination.
// Weights are not constrained to [0, 1] and need not sum to 1; negative
// values are allowed for sensitivity exploration.
type Weights struct {
	Image float64 `json:"image_weight"` // Weight for image similarity (default: 0.6)
	Text  float64 `json:"text_weight"`  // Weight for text similarity (default: 0.4)
	Color float64 `json:"color_weight"` // Weight for color similarity (default: 0.0)
}

// Validate rejects NaN or infinite weights.
func (w Weights) Validate() error {
	if !isFinite(w.Image) {
		return fmt.Errorf("%w: image_weight is not finite", ErrInvalidWeight)
	}
	if !isFinite(w.Text) {
		return fmt.Errorf("%w: text_weight is not finite", ErrInvalidWeight)
	}
	if !isFinite(w.Color) {
		return fmt.Errorf("%w: color_weight is not finite", ErrInvalidWeight)
	}
	return nil
}

// IsDegenerate reports whether every weight is zero. Such a configuration
// gives every candidate the same combined score and a uniform distribution,
// which usually means misconfiguration rather than a genuine tie.
func (w Weights) IsDegenerate() bool {
	return w.Image == 0 && w.Text == 0 && w.Color == 0
}

// CombinedScore computes the weighted linear sum for one candidate.
// A missing colour similarity contributes exactly 0.0 whatever the colour weight,
// so a nonzero colour weight penalizes candidates that have no colour score.
func CombinedScore(c Candidate, w Weights) float64 {
	return w.Image*c.ImageSimilarity +
		w.Text*c.TextSimilarity +
		w.Color*c.ColorValue()
}

// Combine computes the combined score of every candidate, in input order.
//
// Returns ErrEmptyCandidateSet for an empty input, ErrInvalidSimilarityValue
// if any similarity is non-finite and ErrInvalidWeight for a non-finite weight.
// Weights large enough to push a score past float64 range yield ErrScoreOverflow.
// Inputs are never modified.
func Combine(cands []Candidate, w Weights) ([]float64, error) {
	if len(cands) == 0 {
		return nil, ErrEmptyCandidateSet
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	scores := make([]float64, len(cands))
	for i, c := range cands {
		if !isFinite(c.ImageSimilarity) || !isFinite(c.TextSimilarity) || !isFinite(c.ColorValue()) {
			return nil, fmt.Errorf("%w: candidate %d (%s) has a non-finite similarity",
				ErrInvalidSimilarityValue, i, c.CommonName)
		}
		scores[i] = CombinedScore(c, w)
		if !isFinite(scores[i]) {
			return nil, fmt.Errorf("%w: candidate %d (%s)", ErrScoreOverflow, i, c.CommonName)
		}
	}

	return scores, nil
}
