package color

import (
	"math"
	"reflect"
	"testing"
)

var testVocab = NewVocabulary("black", "brown", "orange", "white", "grey")

func TestNewVocabulary(t *testing.T) {
	got := NewVocabulary(" Orange", "black", "orange", "bad name", "", "brown")
	want := Vocabulary{"black", "brown", "orange"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NewVocabulary() = %v, want %v", got, want)
	}
}

func TestSimilarity_Identical(t *testing.T) {
	p := Profile{"black": 0.2, "orange": 0.7, "white": 0.1}

	got := Similarity(p, p, testVocab)
	if math.Abs(got-1.0) > 1e-12 {
		t.Errorf("expected 1.0 for identical profiles, got %v", got)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	a := Profile{"black": 0.5, "orange": 0.4}
	b := Profile{"brown": 0.3, "orange": 0.9, "white": 0.2}

	if Similarity(a, b, testVocab) != Similarity(b, a, testVocab) {
		t.Error("similarity should be symmetric")
	}
}

func TestSimilarity_MissingBucketsAreZero(t *testing.T) {
	a := Profile{"orange": 1.0}
	b := Profile{"orange": 1.0, "white": 0.0}

	got := Similarity(a, b, testVocab)
	if math.Abs(got-1.0) > 1e-12 {
		t.Errorf("absent and zero buckets should be equivalent, got %v", got)
	}
}

func TestSimilarity_DisjointProfiles(t *testing.T) {
	a := Profile{"black": 1.0}
	b := Profile{"white": 1.0}

	if got := Similarity(a, b, testVocab); got != 0 {
		t.Errorf("expected 0 for disjoint profiles, got %v", got)
	}
}

func TestSimilarity_MonotonicDivergence(t *testing.T) {
	ref := Profile{"orange": 0.8, "black": 0.2}

	// Move mass progressively from orange to white
	prev := 1.0 + 1e-9
	for _, shift := range []float64{0, 0.2, 0.4, 0.6, 0.8} {
		img := Profile{"orange": 0.8 - shift, "black": 0.2, "white": shift}
		sim := Similarity(img, ref, testVocab)
		if sim >= prev {
			t.Errorf("shift %.1f: similarity %v did not decrease from %v", shift, sim, prev)
		}
		if sim < 0 || sim > 1 {
			t.Errorf("shift %.1f: similarity %v out of range", shift, sim)
		}
		prev = sim
	}
}

func TestSimilarity_EdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Profile
		vocab Vocabulary
		want  float64
	}{
		{
			name:  "empty vocabulary",
			a:     Profile{"orange": 1},
			b:     Profile{"orange": 1},
			vocab: nil,
			want:  0,
		},
		{
			name:  "nil image profile",
			a:     nil,
			b:     Profile{"orange": 1},
			vocab: testVocab,
			want:  0,
		},
		{
			name:  "buckets outside vocabulary ignored",
			a:     Profile{"purple": 1},
			b:     Profile{"green": 1},
			vocab: testVocab,
			want:  1,
		},
		{
			name:  "identical zero-mass profiles",
			a:     Profile{"orange": 0},
			b:     Profile{},
			vocab: testVocab,
			want:  1,
		},
		{
			name:  "only one profile has mass",
			a:     Profile{"white": 0},
			b:     Profile{"white": 0.4},
			vocab: testVocab,
			want:  0,
		},
		{
			name:  "non-finite values treated as zero",
			a:     Profile{"orange": math.NaN(), "black": 1},
			b:     Profile{"black": 1},
			vocab: testVocab,
			want:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b, tt.vocab)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Similarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilarity_Reproducible(t *testing.T) {
	a := Profile{"black": 0.13, "brown": 0.27, "orange": 0.61, "grey": 0.07}
	b := Profile{"black": 0.31, "brown": 0.11, "orange": 0.44, "white": 0.19}

	first := Similarity(a, b, testVocab)
	for i := 0; i < 100; i++ {
		if got := Similarity(a, b, testVocab); got != first {
			t.Fatalf("run %d: got %v, want bit-identical %v", i, got, first)
		}
	}
}

func TestProfileDominant(t *testing.T) {
	p := Profile{"black": 0.3, "orange": 0.5, "white": 0.3, "grey": 0}

	got := p.Dominant(2)
	want := []Bucket{{Name: "orange", Value: 0.5}, {Name: "black", Value: 0.3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dominant(2) = %v, want %v", got, want)
	}

	if got := p.Dominant(0); got != nil {
		t.Errorf("Dominant(0) = %v, want nil", got)
	}

	if got := p.Dominant(10); len(got) != 3 {
		t.Errorf("Dominant(10) should skip zero buckets, got %v", got)
	}
}
