package species

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/wildlife-vision/speciesid/internal/color"
	"github.com/wildlife-vision/speciesid/internal/tracing"
)

const (
	rankCandidatesQuery = `
		SELECT species, common_name, image_path, distance, eco_code
		FROM wildlife.usf_rank_species_candidates(
			$1::double precision,
			$2::double precision,
			$3::vector,
			$4
		)`

	textEmbeddingQuery = `
		SELECT text_embedding::text
		FROM wildlife.species_embeddings
		WHERE species = $1 AND text_embedding IS NOT NULL
		LIMIT 1`

	speciesColorsQuery = `
		SELECT color_name, fraction
		FROM wildlife.species_color_profiles
		WHERE species = $1`

	imageColorsQuery = `
		SELECT color_name, fraction
		FROM wildlife.image_colors
		WHERE image_id = $1`

	colorVocabularyQuery = `
		SELECT COALESCE(array_agg(color_name ORDER BY color_name), '{}')
		FROM wildlife.color_vocabulary`

	speciesByRegionQuery = `
		SELECT ecoregion_code, ecoregion_name, class_name, common_name, conservation_status
		FROM wildlife.species_by_region
		WHERE common_name IS NOT NULL AND ecoregion_code = $1`
)

// PostgresStore implements Store on PostgreSQL with pgvector.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// RankCandidates calls the nearest-neighbour ranking function.
func (s *PostgresStore) RankCandidates(ctx context.Context, q Query) (rows []Row, err error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "wildlife.usf_rank_species_candidates", tracing.DBOperationCall)
	defer func() { endSpan(err) }()

	result, err := s.db.QueryContext(ctx, rankCandidatesQuery, q.Lat, q.Lon, FormatVector(q.Embedding), q.TopN)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to rank species candidates",
			slog.String("error", err.Error()),
			slog.Int("top_n", q.TopN))
		return nil, fmt.Errorf("failed to rank candidates: %w", err)
	}
	defer result.Close()

	for result.Next() {
		var (
			r         Row
			imagePath sql.NullString
			ecoCode   sql.NullString
		)
		if err := result.Scan(&r.Species, &r.CommonName, &imagePath, &r.Distance, &ecoCode); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		r.ImagePath = imagePath.String
		r.EcoCode = ecoCode.String
		rows = append(rows, r)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}

	return rows, nil
}

// Reference loads a species' text embedding and colour profile.
func (s *PostgresStore) Reference(ctx context.Context, species string) (ref *Reference, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "wildlife.species_embeddings", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var literal string
	err = s.db.QueryRowContext(ctx, textEmbeddingQuery, species).Scan(&literal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load text embedding: %w", err)
	}

	embedding, err := ParseVector(literal)
	if err != nil {
		return nil, fmt.Errorf("species %s: %w", species, err)
	}

	colors, err := s.profile(ctx, speciesColorsQuery, species)
	if err != nil {
		return nil, err
	}

	return &Reference{Species: species, TextEmbedding: embedding, Colors: colors}, nil
}

// ImageColors loads the palette extracted for an uploaded image.
func (s *PostgresStore) ImageColors(ctx context.Context, imageID int64) (profile color.Profile, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "wildlife.image_colors", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	return s.profile(ctx, imageColorsQuery, imageID)
}

func (s *PostgresStore) profile(ctx context.Context, query string, arg any) (color.Profile, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to load colour profile: %w", err)
	}
	defer rows.Close()

	profile := make(color.Profile)
	for rows.Next() {
		var (
			name     string
			fraction float64
		)
		if err := rows.Scan(&name, &fraction); err != nil {
			return nil, fmt.Errorf("failed to scan colour: %w", err)
		}
		profile[name] = fraction
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate colours: %w", err)
	}
	return profile, nil
}

// ColorVocabulary loads the shared colour bucket names.
func (s *PostgresStore) ColorVocabulary(ctx context.Context) (vocab color.Vocabulary, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "wildlife.color_vocabulary", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	var names []string
	if err := s.db.QueryRowContext(ctx, colorVocabularyQuery).Scan(pq.Array(&names)); err != nil {
		return nil, fmt.Errorf("failed to load colour vocabulary: %w", err)
	}

	vocab = color.NewVocabulary(names...)
	if len(vocab) != len(names) {
		s.logger.WarnContext(ctx, "colour vocabulary contained invalid or duplicate names",
			slog.Int("stored", len(names)),
			slog.Int("usable", len(vocab)))
	}
	return vocab, nil
}

// ByEcoregion lists species in an ecoregion grouped by class.
func (s *PostgresStore) ByEcoregion(ctx context.Context, ecoCode string) (out *EcoregionSpecies, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "wildlife.species_by_region", tracing.DBOperationQuery)
	defer func() {
		if errors.Is(err, ErrNotFound) {
			endSpan(nil)
			return
		}
		endSpan(err)
	}()

	rows, err := s.db.QueryContext(ctx, speciesByRegionQuery, ecoCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query species by region: %w", err)
	}
	defer rows.Close()

	var regionRows []RegionRow
	for rows.Next() {
		var (
			r         RegionRow
			className sql.NullString
			status    sql.NullString
		)
		if err := rows.Scan(&r.EcoregionCode, &r.EcoregionName, &className, &r.CommonName, &status); err != nil {
			return nil, fmt.Errorf("failed to scan species: %w", err)
		}
		r.ClassName = className.String
		if status.Valid {
			r.ConservationStatus = &status.String
		}
		regionRows = append(regionRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate species: %w", err)
	}

	return GroupByClass(regionRows)
}
