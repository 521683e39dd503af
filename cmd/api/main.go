// Package main is the entry point for the species identification API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wildlife-vision/speciesid/internal/api"
	"github.com/wildlife-vision/speciesid/internal/config"
	"github.com/wildlife-vision/speciesid/internal/db"
	"github.com/wildlife-vision/speciesid/internal/ecoregion"
	"github.com/wildlife-vision/speciesid/internal/health"
	"github.com/wildlife-vision/speciesid/internal/identify"
	"github.com/wildlife-vision/speciesid/internal/middleware"
	"github.com/wildlife-vision/speciesid/internal/ranking"
	"github.com/wildlife-vision/speciesid/internal/seed"
	"github.com/wildlife-vision/speciesid/internal/species"
	"github.com/wildlife-vision/speciesid/internal/tracing"
)

const serviceName = "speciesid-api"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to an optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Species Identification API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if cfg == nil {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	if len(errs) > 0 {
		for _, err := range errs {
			logger.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logger.Error("failed to listen", "addr", server.Addr, "error", err)
		a.close(context.Background())
		os.Exit(1)
	}

	serveErr := serve(ctx, server, ln, logger)
	a.close(context.Background())
	if serveErr != nil {
		logger.Error("server error", "error", serveErr)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// serve runs server on ln until ctx is done, then drains in-flight requests
// for at most shutdownTimeout.
func serve(ctx context.Context, server *http.Server, ln net.Listener, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", ln.Addr().String(), "version", version)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return <-errCh
}

// app is the wired service: the routed handler plus everything that needs
// releasing on exit.
type app struct {
	handler http.Handler
	closers []func(context.Context) error
	logger  *slog.Logger
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("failed to release resource", "error", err)
		}
	}
	a.closers = nil
}

// newApp builds stores, limiters, metrics and tracing from cfg. Background
// work started here stops when ctx is done.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Enabled:        cfg.Tracing.Enabled,
		Environment:    cfg.Env,
		ExporterType:   cfg.Tracing.Exporter,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SampleRate,
		InsecureMode:   cfg.Tracing.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.onClose(tp.Shutdown)

	reg := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register http metrics: %w", err)
	}
	identifyMetrics := identify.NewMetrics()
	if err := identifyMetrics.Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register identify metrics: %w", err)
	}

	weights, err := ranking.LoadCalibration(cfg.RankingCalibrationPath)
	if err != nil {
		logger.Warn("using default ranking weights", "path", cfg.RankingCalibrationPath, "error", err)
	}
	logger.Info("ranking weights",
		"image", weights.Image,
		"text", weights.Text,
		"color", weights.Color)

	var (
		store    species.Store
		resolver ecoregion.Resolver
		checkers []health.Checker
	)
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL, db.DefaultPoolConfig())
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return conn.Close() })
		store = species.NewPostgresStore(conn, logger)
		resolver = ecoregion.NewPostgresResolver(conn, logger)
		checkers = append(checkers, health.NewDBChecker(conn))
	} else {
		logger.Warn("DATABASE_URL not set; serving from an empty in-memory store")
		store = species.NewInMemoryStore(logger)
		resolver = ecoregion.NewInMemoryResolver()
	}

	var limits middleware.RateLimitStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		a.onClose(func(context.Context) error { return client.Close() })
		limits = middleware.NewRedisRateLimitStore(client,
			middleware.WithRedisMetrics(httpMetrics),
			middleware.WithRedisLogger(logger))
		checkers = append(checkers, health.NewRedisChecker(client))
	} else {
		mem := middleware.NewInMemoryRateLimitStore()
		go mem.RunCleanup(ctx, time.Minute)
		limits = mem
	}

	var seedService *seed.Service
	if cfg.Seed.Enabled() {
		objects, err := seed.NewS3Store(seed.S3Config{
			Bucket:          cfg.Seed.SpaceName,
			Region:          cfg.Seed.Region,
			Endpoint:        cfg.Seed.Endpoint,
			AccessKeyID:     cfg.Seed.AccessKey,
			SecretAccessKey: cfg.Seed.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create seed store: %w", err)
		}
		seedService, err = seed.NewService(objects, seed.ServiceConfig{
			Prefix:     cfg.Seed.Prefix,
			DefaultTTL: cfg.Seed.SignTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create seed service: %w", err)
		}
		checkers = append(checkers, health.NewObjectStoreChecker(objects, cfg.Seed.Prefix))
	} else {
		logger.Info("SPACE_NAME not set; seed manifest disabled")
	}

	service := identify.NewService(store, identify.Config{
		Defaults: *weights,
		MaxTopN:  cfg.MaxTopN,
	}, identifyMetrics, logger)

	routerCfg := api.RouterConfig{
		Species:     api.NewSpeciesHandlers(service, store, logger),
		Ecoregion:   api.NewEcoregionHandlers(resolver),
		Seed:        api.NewSeedHandlers(seedService, cfg.Seed.APIToken),
		Health:      api.NewHealthHandlers(logger, checkers...),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:      logger,
		HTTPMetrics: httpMetrics,
		RateLimits:  limits,
		GlobalLimit: middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimitRequests,
			WindowDuration:    cfg.RateLimitWindow,
		},
		IdentifyLimit: middleware.RateLimitConfig{
			RequestsPerWindow: cfg.IdentifyRateLimitRequests,
			WindowDuration:    cfg.RateLimitWindow,
		},
		KeyFunc: middleware.IPKeyFunc(cfg.TrustProxy),
	}
	if tp.IsEnabled() {
		routerCfg.TracingService = serviceName
	}

	a.handler = api.NewRouter(routerCfg)
	return a, nil
}
