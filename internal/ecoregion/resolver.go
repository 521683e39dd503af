// Package ecoregion resolves WWF ecoregion codes from coordinates.
package ecoregion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/wildlife-vision/speciesid/internal/geo"
	"github.com/wildlife-vision/speciesid/internal/tracing"
)

// ErrNotFound is returned when no ecoregion contains the point.
var ErrNotFound = errors.New("ecoregion not found")

// Resolver maps a coordinate to an ecoregion code.
type Resolver interface {
	ByCoordinates(ctx context.Context, lat, lon float64) (string, error)
}

const byCoordinatesQuery = `SELECT eco_code FROM public.get_ecoregion_by_coords($1, $2) LIMIT 1`

// PostgresResolver resolves via the spatial lookup function.
type PostgresResolver struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresResolver creates a PostgresResolver.
func NewPostgresResolver(db *sql.DB, logger *slog.Logger) *PostgresResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresResolver{db: db, logger: logger}
}

// ByCoordinates returns the ecoregion code containing lat/lon.
func (r *PostgresResolver) ByCoordinates(ctx context.Context, lat, lon float64) (code string, err error) {
	if err := geo.ValidateCoordinates(lat, lon); err != nil {
		return "", err
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "public.get_ecoregion_by_coords", tracing.DBOperationCall)
	defer func() {
		if errors.Is(err, ErrNotFound) {
			endSpan(nil)
			return
		}
		endSpan(err)
	}()

	err = r.db.QueryRowContext(ctx, byCoordinatesQuery, lat, lon).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.DebugContext(ctx, "no ecoregion for coordinates",
			slog.String("geohash", geo.Encode(lat, lon, geo.LogPrecision)))
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve ecoregion: %w", err)
	}
	return code, nil
}

// Region is an axis-aligned bounding box for one ecoregion.
type Region struct {
	Code   string
	Name   string
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

func (r Region) contains(lat, lon float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lon >= r.MinLon && lon <= r.MaxLon
}

func (r Region) area() float64 {
	return (r.MaxLat - r.MinLat) * (r.MaxLon - r.MinLon)
}

// InMemoryResolver resolves against a fixed set of bounding boxes. The
// smallest containing box wins, ties broken by code.
type InMemoryResolver struct {
	mu      sync.RWMutex
	regions []Region
}

// NewInMemoryResolver creates a resolver over regions.
func NewInMemoryResolver(regions ...Region) *InMemoryResolver {
	r := &InMemoryResolver{}
	r.Add(regions...)
	return r
}

// Add registers more regions.
func (r *InMemoryResolver) Add(regions ...Region) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.regions = append(r.regions, regions...)
	sort.SliceStable(r.regions, func(i, j int) bool {
		if r.regions[i].area() != r.regions[j].area() {
			return r.regions[i].area() < r.regions[j].area()
		}
		return r.regions[i].Code < r.regions[j].Code
	})
}

// ByCoordinates returns the code of the smallest region containing the point.
func (r *InMemoryResolver) ByCoordinates(_ context.Context, lat, lon float64) (string, error) {
	if err := geo.ValidateCoordinates(lat, lon); err != nil {
		return "", err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, region := range r.regions {
		if region.contains(lat, lon) {
			return region.Code, nil
		}
	}
	return "", ErrNotFound
}
