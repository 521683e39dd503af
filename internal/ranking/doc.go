// Package ranking combines per-candidate similarity signals into a single
// ranked, calibrated list of species hypotheses.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	weights, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		log.Warn("using default weights", "error", err)
//	}
//
//	// Score a candidate set supplied by the retrieval layer
//	result, err := ranking.Rerank(candidates, *weights, ranking.RationaleSelected)
//	if errors.Is(err, ranking.ErrEmptyCandidateSet) {
//		// nothing to rank
//	}
//	fmt.Println(result.BestMatch.CommonName, result.Rationale)
//
// Pipeline:
//
// Combine computes combined[i] = image*img[i] + text*text[i] + color*(color[i] or 0)
// with no weight normalization. Softmax turns the combined scores into a
// probability distribution after subtracting the maximum score, so the exponent
// arguments are always <= 0. ArgMax picks the first candidate attaining the
// highest probability.
//
// Rerank runs the whole pipeline over a copy of the input and writes the combined
// score and probability onto every candidate in one pass, so a result never mixes
// values from two weight configurations. None of the functions hold state; they
// are safe to call concurrently.
//
// Calibration:
//
// Default weights (image 0.6, text 0.4, color 0.0) may be overridden at deploy time
// with a JSON calibration file loaded at startup. Callers may also pass arbitrary
// per-request weights, including zero or negative ones.
package ranking
