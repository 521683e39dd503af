package ranking

import (
	"fmt"
)

// RationaleMode selects the wording of the rationale sentence.
type RationaleMode int

const (
	// RationaleSelected is used for a fresh identification.
	RationaleSelected RationaleMode = iota
	// RationaleReranked is used when an existing candidate set is re-weighted.
	RationaleReranked
)

// String returns the mode label used in logs and metrics.
func (m RationaleMode) String() string {
	switch m {
	case RationaleReranked:
		return "rerank"
	default:
		return "identify"
	}
}

// Result is the outcome of one rerank pass.
type Result struct {
	Candidates []Candidate `json:"top_candidates"` // Input order, with derived fields populated
	BestMatch  Candidate   `json:"best_match"`
	BestIndex  int         `json:"-"`
	Rationale  string      `json:"rationale"`
	Weights    Weights     `json:"-"`
	Degenerate bool        `json:"-"` // All weights were zero
}

// Rerank combines and normalizes a candidate set under the given weights.
//
// The input slice is copied; CombinedScore and Probability are written onto the
// copies together, for the whole set, so stale derived values supplied by a
// caller are always replaced. On error no partial result is returned.
func Rerank(cands []Candidate, w Weights, mode RationaleMode) (*Result, error) {
	scores, err := Combine(cands, w)
	if err != nil {
		return nil, err
	}

	probs, err := Softmax(scores)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, len(cands))
	copy(out, cands)
	for i := range out {
		out[i].CombinedScore = scores[i]
		out[i].Probability = probs[i]
	}

	best := ArgMax(probs)

	return &Result{
		Candidates: out,
		BestMatch:  out[best],
		BestIndex:  best,
		Rationale:  Rationale(mode, w, out[best]),
		Weights:    w,
		Degenerate: w.IsDegenerate(),
	}, nil
}

// Rationale builds a short human-readable summary of the weights used and the winner.
// The wording is advisory; it always contains every weight and the winner's name
// and probability, each formatted to two decimals.
func Rationale(mode RationaleMode, w Weights, best Candidate) string {
	weights := fmt.Sprintf("(image: %.2f, text: %.2f, color: %.2f)", w.Image, w.Text, w.Color)

	if mode == RationaleReranked {
		return fmt.Sprintf("Reranked candidates using weights %s. Best match is now %s with probability %.2f.",
			weights, best.CommonName, best.Probability)
	}
	return fmt.Sprintf("Selected best match using weights %s. Best candidate: %s with probability %.2f.",
		weights, best.CommonName, best.Probability)
}
