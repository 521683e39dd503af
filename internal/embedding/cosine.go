// Package embedding provides vector helpers for comparing image and text embeddings.
package embedding

import (
	"errors"
	"fmt"
	"math"
)

// Vector errors
var (
	ErrEmptyVector       = errors.New("embedding is empty")
	ErrDimensionMismatch = errors.New("embedding dimensions differ")
	ErrNonFinite         = errors.New("embedding contains a non-finite value")
)

// Validate checks that v is non-empty and contains only finite values.
func Validate(v []float64) error {
	if len(v) == 0 {
		return ErrEmptyVector
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}
	}
	return nil
}

// Cosine returns the cosine similarity between two vectors, clamped to [-1, 1].
// A zero-norm vector has similarity 0 with everything.
func Cosine(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyVector
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / math.Sqrt(normA*normB)
	if math.IsNaN(sim) {
		return 0, ErrNonFinite
	}
	// Rounding can push identical vectors marginally past 1
	return math.Max(-1, math.Min(1, sim)), nil
}

// DistanceToSimilarity converts a cosine distance from a nearest-neighbour
// index (0 = identical, 2 = opposite) into a similarity in [-1, 1].
func DistanceToSimilarity(distance float64) float64 {
	return 1 - distance
}
