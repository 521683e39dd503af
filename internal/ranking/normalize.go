package ranking

import (
	"fmt"
	"math"
)

// Softmax converts scores into a probability distribution:
//
//	p[i] = exp(s[i] - max(s)) / sum_j exp(s[j] - max(s))
//
// Subtracting the maximum keeps every exponent argument <= 0, so arbitrarily
// large scores cannot overflow. The result sums to 1 within floating-point
// tolerance and a single score always maps to exactly 1.0. Scores further than
// roughly 745 below the maximum underflow to a probability of 0.
//
// Returns ErrEmptyCandidateSet for an empty input and ErrInvalidSimilarityValue
// if any score is non-finite.
func Softmax(scores []float64) ([]float64, error) {
	if len(scores) == 0 {
		return nil, ErrEmptyCandidateSet
	}

	maxScore := math.Inf(-1)
	for i, s := range scores {
		if !isFinite(s) {
			return nil, fmt.Errorf("%w: score %d is not finite", ErrInvalidSimilarityValue, i)
		}
		if s > maxScore {
			maxScore = s
		}
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		e := math.Exp(s - maxScore)
		probs[i] = e
		sum += e
	}

	// sum >= 1 because the maximum contributes exp(0)
	for i := range probs {
		probs[i] /= sum
	}

	return probs, nil
}

// ArgMax returns the index of the first element attaining the maximum value,
// or -1 for an empty slice. Ties resolve to the earliest index.
func ArgMax(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
