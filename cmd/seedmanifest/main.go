// Package main is the entry point for the seed manifest tool. It prints the
// signed manifest of a seed version, the same document served by
// GET /seed/manifest.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wildlife-vision/speciesid/internal/config"
	"github.com/wildlife-vision/speciesid/internal/middleware"
	"github.com/wildlife-vision/speciesid/internal/seed"
)

var errSeedDisabled = errors.New("SPACE_NAME is not set")

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to an optional YAML config file")
	version := flag.String("version", "", "seed version (YYYY-MM-DD); empty selects the latest")
	ttl := flag.Duration("ttl", 0, "signed URL lifetime; zero uses SEED_SIGN_TTL_SEC")
	flag.Parse()

	if *help {
		fmt.Println("Species Identification Seed Manifest")
		fmt.Println()
		fmt.Println("Usage: seedmanifest [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	// Logs go to stderr so stdout stays a clean JSON document.
	level, ok := middleware.ParseLevel(cfg.LogLevel)
	if !ok {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := newService(cfg.Seed, logger)
	if err != nil {
		logger.Error("failed to initialize seed storage", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, svc, *version, *ttl, os.Stdout); err != nil {
		logger.Error("failed to build manifest", "version", *version, "error", err)
		os.Exit(1)
	}
}

func newService(cfg config.SeedConfig, logger *slog.Logger) (*seed.Service, error) {
	if !cfg.Enabled() {
		return nil, errSeedDisabled
	}
	objects, err := seed.NewS3Store(seed.S3Config{
		Bucket:          cfg.SpaceName,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKey,
		SecretAccessKey: cfg.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return seed.NewService(objects, seed.ServiceConfig{
		Prefix:     cfg.Prefix,
		DefaultTTL: cfg.SignTTL,
	}, logger)
}

// run writes the indented manifest for version to w.
func run(ctx context.Context, svc *seed.Service, version string, ttl time.Duration, w io.Writer) error {
	manifest, err := svc.Manifest(ctx, version, ttl)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(manifest)
}
