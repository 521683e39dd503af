// Package species retrieves candidate species, reference embeddings and colour
// profiles for the identification pipeline.
package species

import (
	"context"
	"errors"
	"fmt"

	"github.com/wildlife-vision/speciesid/internal/color"
)

var (
	// ErrNotFound is returned when a species, image or ecoregion has no rows.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuery is returned when a candidate query is malformed.
	ErrInvalidQuery = errors.New("invalid candidate query")
)

// Query selects the nearest species to an image embedding near a location.
type Query struct {
	Lat       float64
	Lon       float64
	Embedding []float64
	TopN      int
}

// Validate checks the fields the store relies on.
func (q Query) Validate() error {
	if len(q.Embedding) == 0 {
		return fmt.Errorf("%w: embedding is empty", ErrInvalidQuery)
	}
	if q.TopN < 1 {
		return fmt.Errorf("%w: top_n must be positive, got %d", ErrInvalidQuery, q.TopN)
	}
	return nil
}

// Row is one nearest-neighbour hit. Distance is a cosine distance.
type Row struct {
	Species    string
	CommonName string
	ImagePath  string
	Distance   float64
	EcoCode    string
}

// Reference is the stored per-species material used to score a candidate.
type Reference struct {
	Species       string
	TextEmbedding []float64
	Colors        color.Profile
}

// SpeciesItem is a species listed in an ecoregion.
type SpeciesItem struct {
	CommonName         string  `json:"common_name"`
	ConservationStatus *string `json:"conservation_status"`
}

// EcoregionSpecies groups an ecoregion's species by taxonomic class.
type EcoregionSpecies struct {
	EcoregionCode  string                   `json:"ecoregion_code"`
	EcoregionName  string                   `json:"ecoregion_name"`
	SpeciesByClass map[string][]SpeciesItem `json:"species_by_class"`
	// Classes lists class names in first-seen order.
	Classes []string `json:"-"`
}

// RegionRow is one row of the species-by-region listing.
type RegionRow struct {
	EcoregionCode      string
	EcoregionName      string
	ClassName          string
	CommonName         string
	ConservationStatus *string
}

// Store is the retrieval collaborator behind identification. Implementations
// must be safe for concurrent use.
type Store interface {
	// RankCandidates returns the nearest species to q, best first.
	RankCandidates(ctx context.Context, q Query) ([]Row, error)

	// Reference returns the text embedding and colour profile for a species.
	// Returns ErrNotFound when the species has no text embedding.
	Reference(ctx context.Context, species string) (*Reference, error)

	// ImageColors returns the extracted palette of an uploaded image.
	// An image with no palette yields an empty profile.
	ImageColors(ctx context.Context, imageID int64) (color.Profile, error)

	// ColorVocabulary returns the shared colour bucket names.
	ColorVocabulary(ctx context.Context) (color.Vocabulary, error)

	// ByEcoregion lists the species of an ecoregion grouped by class.
	ByEcoregion(ctx context.Context, ecoCode string) (*EcoregionSpecies, error)
}

// GroupByClass folds region rows into an EcoregionSpecies, preserving row
// order within each class. Rows without a common name are skipped.
func GroupByClass(rows []RegionRow) (*EcoregionSpecies, error) {
	out := &EcoregionSpecies{SpeciesByClass: make(map[string][]SpeciesItem)}
	for _, r := range rows {
		if r.CommonName == "" {
			continue
		}
		if out.EcoregionCode == "" {
			out.EcoregionCode = r.EcoregionCode
			out.EcoregionName = r.EcoregionName
		}
		if _, seen := out.SpeciesByClass[r.ClassName]; !seen {
			out.Classes = append(out.Classes, r.ClassName)
		}
		out.SpeciesByClass[r.ClassName] = append(out.SpeciesByClass[r.ClassName], SpeciesItem{
			CommonName:         r.CommonName,
			ConservationStatus: r.ConservationStatus,
		})
	}
	if len(out.Classes) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
