package identify

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/wildlife-vision/speciesid/internal/color"
	"github.com/wildlife-vision/speciesid/internal/geo"
	"github.com/wildlife-vision/speciesid/internal/ranking"
	"github.com/wildlife-vision/speciesid/internal/species"
)

func newTestStore() *species.InMemoryStore {
	s := species.NewInMemoryStore(nil)
	s.AddSpecies(species.Entry{
		Species:        "Vulpes vulpes",
		CommonName:     "Red Fox",
		EcoCode:        "NA0528",
		ImageEmbedding: []float64{1, 0, 0},
		TextEmbedding:  []float64{1, 0, 0},
		Colors:         color.Profile{"orange": 0.7, "white": 0.3},
	})
	s.AddSpecies(species.Entry{
		Species:        "Urocyon cinereoargenteus",
		CommonName:     "Gray Fox",
		EcoCode:        "NA0528",
		ImageEmbedding: []float64{0.6, 0.8, 0},
		TextEmbedding:  []float64{0, 1, 0},
		Colors:         color.Profile{"gray": 0.8, "orange": 0.2},
	})
	s.AddSpecies(species.Entry{
		Species:        "Canis lupus",
		CommonName:     "Gray Wolf",
		EcoCode:        "NA0528",
		ImageEmbedding: []float64{0.8, 0.6, 0},
	})
	s.SetVocabulary("gray", "orange", "white")
	s.SetImageColors(42, color.Profile{"orange": 0.7, "white": 0.3})
	return s
}

func newTestService(store species.Store, m *Metrics) *Service {
	return NewService(store, Config{Defaults: *ranking.DefaultWeights(), MaxTopN: 10}, m, nil)
}

func TestService_Identify(t *testing.T) {
	svc := newTestService(newTestStore(), nil)

	res, err := svc.Identify(context.Background(), Request{
		ImageID:   42,
		Embedding: []float64{1, 0, 0},
		Lat:       45,
		Lon:       -110,
	})
	if err != nil {
		t.Fatalf("Identify() unexpected error: %v", err)
	}

	// Gray Wolf has no text embedding and is skipped
	if len(res.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(res.Candidates))
	}
	if res.BestMatch.CommonName != "Red Fox" {
		t.Errorf("expected Red Fox, got %s", res.BestMatch.CommonName)
	}

	fox := res.Candidates[0]
	if fox.ImageSimilarity != 1 || fox.TextSimilarity != 1 {
		t.Errorf("unexpected signals for Red Fox: image=%v text=%v", fox.ImageSimilarity, fox.TextSimilarity)
	}
	if fox.ColorSimilarity == nil || math.Abs(*fox.ColorSimilarity-1) > 1e-12 {
		t.Errorf("expected identical palettes to give colour similarity 1, got %v", fox.ColorSimilarity)
	}
	if math.Abs(fox.CombinedScore-1.0) > 1e-12 {
		t.Errorf("expected combined 0.6*1+0.4*1 = 1.0, got %v", fox.CombinedScore)
	}
	if fox.ImageColors["orange"] != 0.7 || fox.SpeciesColors["white"] != 0.3 {
		t.Errorf("expected colour profiles attached, got %v / %v", fox.ImageColors, fox.SpeciesColors)
	}

	gray := res.Candidates[1]
	if math.Abs(gray.ImageSimilarity-0.6) > 1e-12 || gray.TextSimilarity != 0 {
		t.Errorf("unexpected signals for Gray Fox: image=%v text=%v", gray.ImageSimilarity, gray.TextSimilarity)
	}

	var total float64
	for _, c := range res.Candidates {
		total += c.Probability
	}
	if math.Abs(total-1) > 1e-9 {
		t.Errorf("probabilities sum to %v", total)
	}
	if res.Rationale == "" || res.Weights != *ranking.DefaultWeights() {
		t.Errorf("unexpected rationale/weights: %q %+v", res.Rationale, res.Weights)
	}
}

func TestService_Identify_WeightOverrides(t *testing.T) {
	svc := newTestService(newTestStore(), nil)

	res, err := svc.Identify(context.Background(), Request{
		Embedding: []float64{0, 1, 0},
		Weights:   &ranking.WeightOverrides{Image: ranking.Float(0), Text: ranking.Float(1)},
	})
	if err != nil {
		t.Fatalf("Identify() unexpected error: %v", err)
	}
	if res.BestMatch.CommonName != "Gray Fox" {
		t.Errorf("expected text-only weights to pick Gray Fox, got %s", res.BestMatch.CommonName)
	}
	want := ranking.Weights{Image: 0, Text: 1, Color: 0}
	if res.Weights != want {
		t.Errorf("expected merged weights %+v, got %+v", want, res.Weights)
	}
	for _, c := range res.Candidates {
		if c.ColorSimilarity != nil {
			t.Errorf("expected no colour similarity without an image palette, got %v", *c.ColorSimilarity)
		}
	}
}

func TestService_Identify_Validation(t *testing.T) {
	svc := newTestService(newTestStore(), nil)

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"empty embedding", Request{}, ErrInvalidRequest},
		{"NaN embedding", Request{Embedding: []float64{math.NaN()}}, ErrInvalidRequest},
		{"bad latitude", Request{Embedding: []float64{1}, Lat: 91}, geo.ErrInvalidCoordinates},
		{"top_n too large", Request{Embedding: []float64{1}, TopN: 11}, ErrInvalidRequest},
		{"negative top_n", Request{Embedding: []float64{1}, TopN: -1}, ErrInvalidRequest},
		{"infinite weight", Request{Embedding: []float64{1, 0, 0}, Weights: &ranking.WeightOverrides{Color: ranking.Float(math.Inf(1))}}, ranking.ErrInvalidWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Identify(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestService_Identify_NoCandidates(t *testing.T) {
	svc := newTestService(species.NewInMemoryStore(nil), nil)

	_, err := svc.Identify(context.Background(), Request{Embedding: []float64{1, 0, 0}})
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("expected ErrNoCandidates, got %v", err)
	}
}

func TestService_Identify_NoSignals(t *testing.T) {
	store := species.NewInMemoryStore(nil)
	store.AddSpecies(species.Entry{Species: "Canis lupus", CommonName: "Gray Wolf", ImageEmbedding: []float64{1, 0}})
	store.AddSpecies(species.Entry{Species: "Felis catus", CommonName: "Cat", ImageEmbedding: []float64{0, 1}, TextEmbedding: []float64{1, 0, 0}})
	m := NewMetrics()
	svc := newTestService(store, m)

	_, err := svc.Identify(context.Background(), Request{Embedding: []float64{1, 0}})
	if !errors.Is(err, ErrNoSignals) {
		t.Errorf("expected ErrNoSignals, got %v", err)
	}
	if got := counterValue(t, m.skipped, SkipNoTextEmbedding); got != 1 {
		t.Errorf("expected 1 skip for missing text embedding, got %v", got)
	}
	if got := counterValue(t, m.skipped, SkipDimensionMismatch); got != 1 {
		t.Errorf("expected 1 skip for dimension mismatch, got %v", got)
	}
}

type failingStore struct {
	species.Store
	err error
}

func (f failingStore) RankCandidates(context.Context, species.Query) ([]species.Row, error) {
	return nil, f.err
}

func TestService_Identify_StoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	svc := newTestService(failingStore{err: storeErr}, nil)

	_, err := svc.Identify(context.Background(), Request{Embedding: []float64{1}})
	if !errors.Is(err, storeErr) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	if outcome(err) != OutcomeError {
		t.Errorf("expected error outcome, got %s", outcome(err))
	}
}

func TestService_Identify_Canceled(t *testing.T) {
	svc := newTestService(newTestStore(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Identify(ctx, Request{Embedding: []float64{1, 0, 0}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// rerankOnlyStore panics on any access so Rerank paths prove they never use it.
type rerankOnlyStore struct{ species.Store }

func TestService_Rerank(t *testing.T) {
	svc := newTestService(rerankOnlyStore{}, nil)

	cands := []ranking.Candidate{
		{CommonName: "Red Fox", ImageSimilarity: 0.9, TextSimilarity: 0.5},
		{CommonName: "Gray Fox", ImageSimilarity: 0.5, TextSimilarity: 0.9},
	}

	res, err := svc.Rerank(context.Background(), RerankRequest{
		Candidates: cands,
		Weights:    ranking.Weights{Image: 0, Text: 1},
	})
	if err != nil {
		t.Fatalf("Rerank() unexpected error: %v", err)
	}
	if res.BestMatch.CommonName != "Gray Fox" {
		t.Errorf("expected Gray Fox, got %s", res.BestMatch.CommonName)
	}
	want := "Reranked candidates using weights (image: 0.00, text: 1.00, color: 0.00). Best match is now Gray Fox with probability 0.60."
	if res.Rationale != want {
		t.Errorf("rationale:\n got %q\nwant %q", res.Rationale, want)
	}
}

func TestService_Rerank_Errors(t *testing.T) {
	svc := newTestService(rerankOnlyStore{}, nil)

	tests := []struct {
		name    string
		req     RerankRequest
		wantErr error
	}{
		{"empty", RerankRequest{Weights: ranking.Weights{Image: 1}}, ranking.ErrEmptyCandidateSet},
		{"out of range", RerankRequest{Candidates: []ranking.Candidate{{ImageSimilarity: 2}}}, ranking.ErrInvalidSimilarityValue},
		{"NaN weight", RerankRequest{
			Candidates: []ranking.Candidate{{ImageSimilarity: 0.5}},
			Weights:    ranking.Weights{Text: math.NaN()},
		}, ranking.ErrInvalidWeight},
		{"more candidates than max top_n", RerankRequest{
			Candidates: make([]ranking.Candidate, 11),
			Weights:    ranking.Weights{Image: 1},
		}, ErrInvalidRequest},
		{"weights overflow the score", RerankRequest{
			Candidates: []ranking.Candidate{{ImageSimilarity: 1, TextSimilarity: 1}, {ImageSimilarity: 0.5, TextSimilarity: 0.5}},
			Weights:    ranking.Weights{Image: 1e308, Text: 1e308},
		}, ranking.ErrScoreOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Rerank(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestService_Rerank_DegenerateMetrics(t *testing.T) {
	m := NewMetrics()
	svc := newTestService(rerankOnlyStore{}, m)

	res, err := svc.Rerank(context.Background(), RerankRequest{
		Candidates: []ranking.Candidate{{CommonName: "A", ImageSimilarity: 0.1}, {CommonName: "B", ImageSimilarity: 0.9}},
	})
	if err != nil {
		t.Fatalf("Rerank() unexpected error: %v", err)
	}
	if !res.Degenerate || res.BestMatch.CommonName != "A" {
		t.Errorf("expected degenerate uniform result with first candidate best, got %+v", res)
	}
	if got := counterValue(t, m.degenerate, "rerank"); got != 1 {
		t.Errorf("expected degenerate counter 1, got %v", got)
	}
	if got := counterValue(t, m.requests, "rerank", OutcomeSuccess); got != 1 {
		t.Errorf("expected 1 successful rerank, got %v", got)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeSuccess},
		{ErrNoCandidates, OutcomeNoCandidates},
		{ranking.ErrEmptyCandidateSet, OutcomeNoCandidates},
		{ErrNoSignals, OutcomeNoSignals},
		{ErrInvalidRequest, OutcomeInvalid},
		{ranking.ErrInvalidSimilarityValue, OutcomeInvalid},
		{context.DeadlineExceeded, OutcomeCanceled},
		{errors.New("boom"), OutcomeError},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Errorf("outcome(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}
	if err := NewMetrics().Register(reg); err == nil {
		t.Error("second Register() should fail")
	}

	var nilMetrics *Metrics
	nilMetrics.observePass("identify", OutcomeSuccess, 0)
	nilMetrics.incSkipped(SkipInvalidSignal)
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues() error: %v", err)
	}
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	return metric.GetCounter().GetValue()
}
