package api

import (
	"log/slog"
	"net/http"

	"github.com/wildlife-vision/speciesid/internal/middleware"
)

// RouterConfig holds the handlers and middleware dependencies of the API.
type RouterConfig struct {
	Species   *SpeciesHandlers
	Ecoregion *EcoregionHandlers
	Seed      *SeedHandlers
	Health    *HealthHandlers
	// Metrics serves /metrics when set.
	Metrics http.Handler

	Logger      *slog.Logger
	HTTPMetrics *middleware.Metrics

	// RateLimits is nil to disable rate limiting.
	RateLimits    middleware.RateLimitStore
	GlobalLimit   middleware.RateLimitConfig
	IdentifyLimit middleware.RateLimitConfig
	KeyFunc       middleware.KeyFunc

	// TracingService names the server spans; empty disables HTTP tracing.
	TracingService string
}

// NewRouter builds the routed, fully wrapped API handler.
//
// Chain, outermost first: RequestID, Recover, Logging, HTTPMetrics, Tracing,
// then the per-route rate limiter.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = middleware.IPKeyFunc(false)
	}

	limit := func(c middleware.RateLimitConfig, h http.HandlerFunc) http.Handler {
		if cfg.RateLimits == nil {
			return h
		}
		return middleware.RateLimiter(cfg.RateLimits, c, keyFunc, cfg.HTTPMetrics)(h)
	}

	mux := http.NewServeMux()

	if cfg.Species != nil {
		mux.Handle("/species/identify-by-embedding", limit(cfg.IdentifyLimit, cfg.Species.Identify))
		mux.Handle("/species/rerank-with-weights", limit(cfg.GlobalLimit, cfg.Species.Rerank))
		mux.Handle("/species/by-ecoregion", limit(cfg.GlobalLimit, cfg.Species.ByEcoregion))
	}
	if cfg.Ecoregion != nil {
		mux.Handle("/ecoregion/by-coordinates", limit(cfg.GlobalLimit, cfg.Ecoregion.ByCoordinates))
	}
	if cfg.Seed != nil {
		mux.Handle("/seed/manifest", limit(cfg.GlobalLimit, cfg.Seed.Manifest))
	}
	if cfg.Health != nil {
		mux.HandleFunc("/health", cfg.Health.Health)
		mux.HandleFunc("/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
	})

	var handler http.Handler = mux
	if cfg.TracingService != "" {
		handler = middleware.Tracing(cfg.TracingService)(handler)
	}
	handler = middleware.HTTPMetrics(cfg.HTTPMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recover(logger)(handler)
	return middleware.RequestID(handler)
}
