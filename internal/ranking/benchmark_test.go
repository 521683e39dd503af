package ranking

import (
	"testing"
)

func benchmarkCandidates(n int) []Candidate {
	cands := make([]Candidate, n)
	for i := range cands {
		f := float64(i) / float64(n)
		cands[i] = Candidate{
			CommonName:      "species",
			ImageSimilarity: 1 - f,
			TextSimilarity:  f,
			ColorSimilarity: Float(0.5),
		}
	}
	return cands
}

// BenchmarkCombine benchmarks the signal combiner at the conventional top-N.
func BenchmarkCombine(b *testing.B) {
	cands := benchmarkCandidates(5)
	w := Weights{Image: 0.6, Text: 0.3, Color: 0.1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Combine(cands, w)
	}
}

// BenchmarkSoftmax benchmarks the probability normalizer.
func BenchmarkSoftmax(b *testing.B) {
	scores := []float64{0.74, 0.66, 0.51, 0.49, 0.12}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Softmax(scores)
	}
}

// BenchmarkRerank benchmarks a full rerank pass.
func BenchmarkRerank(b *testing.B) {
	cands := benchmarkCandidates(5)
	w := *DefaultWeights()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Rerank(cands, w, RationaleReranked)
	}
}

// BenchmarkRerank_Large benchmarks a rerank pass over an uncapped candidate set.
func BenchmarkRerank_Large(b *testing.B) {
	cands := benchmarkCandidates(1000)
	w := *DefaultWeights()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Rerank(cands, w, RationaleReranked)
	}
}
