package color

import (
	"math"
	"sort"
)

// Profile maps a vocabulary bucket name to a relative frequency or intensity in [0, 1].
// It describes either one image's observed palette or a species' aggregated reference palette.
type Profile map[string]float64

// Vocabulary is the fixed, ordered set of bucket names profiles are compared over.
type Vocabulary []string

// NewVocabulary builds a vocabulary from raw bucket names.
// Names are sanitized, invalid names dropped, duplicates removed and the
// result sorted so that iteration order never depends on the caller.
func NewVocabulary(names ...string) Vocabulary {
	seen := make(map[string]struct{}, len(names))
	vocab := make(Vocabulary, 0, len(names))
	for _, n := range names {
		clean := SanitizeBucketName(n)
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		vocab = append(vocab, clean)
	}
	sort.Strings(vocab)
	return vocab
}

// Vector projects the profile onto the vocabulary.
// Buckets missing from the profile are 0; buckets outside the vocabulary are ignored.
// Non-finite values become 0 and the rest are clamped to [0, 1].
func (p Profile) Vector(vocab Vocabulary) []float64 {
	out := make([]float64, len(vocab))
	for i, name := range vocab {
		out[i] = clamp01(p[name])
	}
	return out
}

// Similarity returns the cosine similarity of two profiles over vocab, in [0, 1].
//
// The measure is 1.0 for profiles that are identical (or proportional) over the
// vocabulary and falls towards 0 as their mass moves to different buckets. Two
// profiles with no mass over the vocabulary are identical there and score 1.0;
// when only one has mass the result is 0. An empty vocabulary always gives 0.
// Sums are accumulated in vocabulary order so repeated calls with the same
// inputs return bit-identical results.
func Similarity(a, b Profile, vocab Vocabulary) float64 {
	if len(vocab) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for _, name := range vocab {
		x := clamp01(a[name])
		y := clamp01(b[name])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 && normB == 0 {
		return 1
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / math.Sqrt(normA*normB)
	if sim > 1 {
		return 1
	}
	if sim < 0 {
		return 0
	}
	return sim
}

// Bucket is a single named profile entry.
type Bucket struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Dominant returns up to n buckets with the highest values, ties broken by name.
// Zero-valued buckets are never reported.
func (p Profile) Dominant(n int) []Bucket {
	if n <= 0 {
		return nil
	}
	buckets := make([]Bucket, 0, len(p))
	for name, v := range p {
		v = clamp01(v)
		if v == 0 {
			continue
		}
		buckets = append(buckets, Bucket{Name: name, Value: v})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Value != buckets[j].Value {
			return buckets[i].Value > buckets[j].Value
		}
		return buckets[i].Name < buckets[j].Name
	})
	if len(buckets) > n {
		buckets = buckets[:n]
	}
	return buckets
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
