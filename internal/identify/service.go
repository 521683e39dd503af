// Package identify orchestrates species identification: retrieval of nearest
// candidates, per-candidate signal scoring and the final rerank.
package identify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wildlife-vision/speciesid/internal/color"
	"github.com/wildlife-vision/speciesid/internal/embedding"
	"github.com/wildlife-vision/speciesid/internal/geo"
	"github.com/wildlife-vision/speciesid/internal/ranking"
	"github.com/wildlife-vision/speciesid/internal/species"
	"github.com/wildlife-vision/speciesid/internal/tracing"
)

// Default request bounds.
const (
	DefaultTopN    = 5
	DefaultMaxTopN = 50
)

var (
	// ErrInvalidRequest wraps every request validation failure.
	ErrInvalidRequest = errors.New("invalid identification request")

	// ErrNoCandidates is returned when retrieval finds no species at all.
	ErrNoCandidates = errors.New("no candidates found")

	// ErrNoSignals is returned when no retrieved species could be scored.
	ErrNoSignals = errors.New("no candidates with valid text embeddings")
)

// Request is a fresh identification of one image.
type Request struct {
	ImageID   int64
	Embedding []float64
	Lat       float64
	Lon       float64
	// TopN of zero selects DefaultTopN.
	TopN int
	// Weights left nil fall back to the calibrated defaults.
	Weights *ranking.WeightOverrides
}

// RerankRequest re-weights an existing candidate set.
type RerankRequest struct {
	Candidates []ranking.Candidate
	Weights    ranking.Weights
}

// Config tunes a Service.
type Config struct {
	Defaults ranking.Weights
	MaxTopN  int
}

// Service runs both identification call patterns.
type Service struct {
	store    species.Store
	defaults ranking.Weights
	maxTopN  int
	metrics  *Metrics
	logger   *slog.Logger
}

// NewService creates a Service over store. metrics may be nil.
func NewService(store species.Store, cfg Config, metrics *Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTopN < 1 {
		cfg.MaxTopN = DefaultMaxTopN
	}
	return &Service{
		store:    store,
		defaults: cfg.Defaults,
		maxTopN:  cfg.MaxTopN,
		metrics:  metrics,
		logger:   logger,
	}
}

// Defaults returns the calibrated weights applied to identify requests.
func (s *Service) Defaults() ranking.Weights {
	return s.defaults
}

// Identify retrieves, scores and ranks candidates for an image embedding.
func (s *Service) Identify(ctx context.Context, req Request) (res *ranking.Result, err error) {
	mode := ranking.RationaleSelected.String()
	start := time.Now()

	ctx, endSpan := tracing.StartSpan(ctx, "identify.identify",
		attribute.Int64("image_id", req.ImageID),
		attribute.Int("top_n", req.TopN),
		attribute.Int("embedding_dims", len(req.Embedding)))
	defer func() {
		endSpan(err)
		s.metrics.observePass(mode, outcome(err), time.Since(start))
	}()

	topN, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	tracing.SetAttributes(ctx,
		attribute.String("location.geohash", geo.Point{Lat: req.Lat, Lon: req.Lon}.Coarse()))

	w := ranking.MergeCalibration(&s.defaults, req.Weights)
	if err := w.Validate(); err != nil {
		return nil, err
	}

	cands, err := s.score(ctx, req, topN)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err = ranking.Rerank(cands, *w, ranking.RationaleSelected)
	if err != nil {
		return nil, err
	}
	s.record(ctx, mode, res)
	return res, nil
}

func (s *Service) validate(req Request) (int, error) {
	if err := embedding.Validate(req.Embedding); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := geo.ValidateCoordinates(req.Lat, req.Lon); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	topN := req.TopN
	if topN == 0 {
		topN = DefaultTopN
	}
	if topN < 1 || topN > s.maxTopN {
		return 0, fmt.Errorf("%w: top_n must be between 1 and %d, got %d", ErrInvalidRequest, s.maxTopN, req.TopN)
	}
	return topN, nil
}

// score turns retrieved rows into fully-signalled candidates.
func (s *Service) score(ctx context.Context, req Request, topN int) ([]ranking.Candidate, error) {
	rows, err := s.store.RankCandidates(ctx, species.Query{
		Lat:       req.Lat,
		Lon:       req.Lon,
		Embedding: req.Embedding,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve candidates: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoCandidates
	}

	var (
		imageColors color.Profile
		vocab       color.Vocabulary
	)
	if req.ImageID > 0 {
		if imageColors, err = s.store.ImageColors(ctx, req.ImageID); err != nil {
			return nil, fmt.Errorf("failed to load image colours: %w", err)
		}
	}
	if len(imageColors) > 0 {
		if vocab, err = s.store.ColorVocabulary(ctx); err != nil {
			return nil, fmt.Errorf("failed to load colour vocabulary: %w", err)
		}
	}

	cands := make([]ranking.Candidate, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ref, err := s.store.Reference(ctx, row.Species)
		if errors.Is(err, species.ErrNotFound) {
			s.skip(ctx, row, SkipNoTextEmbedding)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load reference for %s: %w", row.Species, err)
		}

		textSim, err := embedding.Cosine(req.Embedding, ref.TextEmbedding)
		if err != nil {
			s.skip(ctx, row, SkipDimensionMismatch)
			continue
		}

		c := ranking.Candidate{
			CommonName:      row.CommonName,
			SpeciesID:       row.Species,
			EcoregionCode:   row.EcoCode,
			ImageSimilarity: embedding.DistanceToSimilarity(row.Distance),
			TextSimilarity:  textSim,
			ImageColors:     imageColors,
			SpeciesColors:   ref.Colors,
		}
		if len(vocab) > 0 {
			c.ColorSimilarity = ranking.Float(color.Similarity(imageColors, ref.Colors, vocab))
		}
		if err := c.Validate(); err != nil {
			s.skip(ctx, row, SkipInvalidSignal)
			continue
		}
		cands = append(cands, c)
	}

	if len(cands) == 0 {
		return nil, ErrNoSignals
	}
	return cands, nil
}

func (s *Service) skip(ctx context.Context, row species.Row, reason string) {
	s.metrics.incSkipped(reason)
	tracing.AddEvent(ctx, "candidate_skipped",
		attribute.String("species", row.Species),
		attribute.String("reason", reason))
	s.logger.DebugContext(ctx, "skipping candidate",
		slog.String("species", row.Species),
		slog.String("reason", reason))
}

// Rerank re-weights a caller-supplied candidate set of at most MaxTopN entries.
// It never touches the store.
func (s *Service) Rerank(ctx context.Context, req RerankRequest) (res *ranking.Result, err error) {
	mode := ranking.RationaleReranked.String()
	start := time.Now()

	ctx, endSpan := tracing.StartSpan(ctx, "identify.rerank",
		attribute.Int("candidates", len(req.Candidates)))
	defer func() {
		endSpan(err)
		s.metrics.observePass(mode, outcome(err), time.Since(start))
	}()

	if len(req.Candidates) > s.maxTopN {
		return nil, fmt.Errorf("%w: at most %d candidates, got %d", ErrInvalidRequest, s.maxTopN, len(req.Candidates))
	}
	if err := ranking.ValidateAll(req.Candidates); err != nil {
		return nil, err
	}
	if err := req.Weights.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err = ranking.Rerank(req.Candidates, req.Weights, ranking.RationaleReranked)
	if err != nil {
		return nil, err
	}
	s.record(ctx, mode, res)
	return res, nil
}

func (s *Service) record(ctx context.Context, mode string, res *ranking.Result) {
	s.metrics.observeSetSize(mode, len(res.Candidates))
	tracing.SetAttributes(ctx,
		attribute.String("best_match", res.BestMatch.CommonName),
		attribute.Float64("best_probability", res.BestMatch.Probability),
		attribute.Bool("degenerate_weights", res.Degenerate))

	if res.Degenerate {
		s.metrics.incDegenerate(mode)
		s.logger.WarnContext(ctx, "ranking ran with all weights zero; probabilities are uniform",
			slog.String("mode", mode),
			slog.Int("candidates", len(res.Candidates)))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNoCandidates), errors.Is(err, ranking.ErrEmptyCandidateSet):
		return OutcomeNoCandidates
	case errors.Is(err, ErrNoSignals):
		return OutcomeNoSignals
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ranking.ErrInvalidSimilarityValue),
		errors.Is(err, ranking.ErrInvalidWeight):
		return OutcomeInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
