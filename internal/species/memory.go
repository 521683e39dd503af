package species

import (
	"context"
	"log/slog"
	"maps"
	"sort"
	"sync"

	"github.com/wildlife-vision/speciesid/internal/color"
	"github.com/wildlife-vision/speciesid/internal/embedding"
)

// Entry is a species known to an InMemoryStore.
type Entry struct {
	Species        string
	CommonName     string
	ImagePath      string
	EcoCode        string
	ImageEmbedding []float64
	TextEmbedding  []float64
	Colors         color.Profile
}

// InMemoryStore implements Store over in-process maps. Candidates are ranked
// by cosine distance over every entry; location is not used.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	images  map[int64]color.Profile
	vocab   color.Vocabulary
	regions []RegionRow
	logger  *slog.Logger
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore(logger *slog.Logger) *InMemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryStore{
		images: make(map[int64]color.Profile),
		logger: logger,
	}
}

// AddSpecies registers or replaces a species entry.
func (s *InMemoryStore) AddSpecies(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].Species == e.Species {
			s.entries[i] = e
			return
		}
	}
	s.entries = append(s.entries, e)
}

// SetImageColors stores the palette for an image.
func (s *InMemoryStore) SetImageColors(imageID int64, p color.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[imageID] = maps.Clone(p)
}

// SetVocabulary replaces the colour vocabulary.
func (s *InMemoryStore) SetVocabulary(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vocab = color.NewVocabulary(names...)
}

// AddRegionRows appends species-by-region listing rows.
func (s *InMemoryStore) AddRegionRows(rows ...RegionRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = append(s.regions, rows...)
}

// RankCandidates returns the TopN entries closest to the query embedding.
// Entries with no or mismatched image embeddings are skipped.
func (s *InMemoryStore) RankCandidates(ctx context.Context, q Query) ([]Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]Row, 0, len(s.entries))
	for _, e := range s.entries {
		sim, err := embedding.Cosine(q.Embedding, e.ImageEmbedding)
		if err != nil {
			s.logger.DebugContext(ctx, "skipping species without comparable image embedding",
				slog.String("species", e.Species),
				slog.String("error", err.Error()))
			continue
		}
		rows = append(rows, Row{
			Species:    e.Species,
			CommonName: e.CommonName,
			ImagePath:  e.ImagePath,
			Distance:   1 - sim,
			EcoCode:    e.EcoCode,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Distance != rows[j].Distance {
			return rows[i].Distance < rows[j].Distance
		}
		return rows[i].Species < rows[j].Species
	})
	if len(rows) > q.TopN {
		rows = rows[:q.TopN]
	}
	return rows, nil
}

// Reference returns the text embedding and colour profile for a species.
func (s *InMemoryStore) Reference(_ context.Context, species string) (*Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.Species != species {
			continue
		}
		if len(e.TextEmbedding) == 0 {
			return nil, ErrNotFound
		}
		return &Reference{
			Species:       e.Species,
			TextEmbedding: append([]float64(nil), e.TextEmbedding...),
			Colors:        maps.Clone(e.Colors),
		}, nil
	}
	return nil, ErrNotFound
}

// ImageColors returns the stored palette, or an empty profile.
func (s *InMemoryStore) ImageColors(_ context.Context, imageID int64) (color.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.images[imageID]; ok {
		return maps.Clone(p), nil
	}
	return color.Profile{}, nil
}

// ColorVocabulary returns the configured vocabulary.
func (s *InMemoryStore) ColorVocabulary(_ context.Context) (color.Vocabulary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(color.Vocabulary(nil), s.vocab...), nil
}

// ByEcoregion groups the stored region rows for ecoCode.
func (s *InMemoryStore) ByEcoregion(_ context.Context, ecoCode string) (*EcoregionSpecies, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []RegionRow
	for _, r := range s.regions {
		if r.EcoregionCode == ecoCode {
			matched = append(matched, r)
		}
	}
	return GroupByClass(matched)
}
