// Package seed publishes signed manifests for dated seed bundles held in
// S3-compatible object storage.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TTL bounds for signed URLs.
const (
	MinTTL     = 60 * time.Second
	MaxTTL     = 7 * 24 * time.Hour
	DefaultTTL = time.Hour

	DefaultPrefix = "seed/"
)

// generatedAtLayout matches ISO-8601 with a numeric UTC offset.
const generatedAtLayout = "2006-01-02T15:04:05-07:00"

// Manifest errors
var (
	ErrNoVersions     = errors.New("no version folders found in seed prefix")
	ErrNoFiles        = errors.New("no files found for version")
	ErrInvalidVersion = errors.New("version must be YYYY-MM-DD")
	ErrInvalidTTL     = errors.New("ttl out of range")
)

// FileEntry is one signed file in a manifest.
type FileEntry struct {
	Name   string  `json:"name"`
	Size   *int64  `json:"size"`
	SHA256 *string `json:"sha256"`
	URL    string  `json:"url"`
}

// Manifest lists every file of a seed version with signed download URLs.
type Manifest struct {
	Version     string      `json:"version"`
	GeneratedAt string      `json:"generated_at"`
	ExpiresIn   int         `json:"expires_in"`
	Files       []FileEntry `json:"files"`
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Prefix     string
	DefaultTTL time.Duration
}

// Service builds manifests from an ObjectStore.
type Service struct {
	store      ObjectStore
	prefix     string
	defaultTTL time.Duration
	timeNow    func() time.Time
	logger     *slog.Logger
}

// NewService creates a manifest Service.
func NewService(store ObjectStore, cfg ServiceConfig, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	ttl := cfg.DefaultTTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if err := ValidateTTL(ttl); err != nil {
		return nil, fmt.Errorf("default ttl: %w", err)
	}

	return &Service{
		store:      store,
		prefix:     prefix,
		defaultTTL: ttl,
		timeNow:    time.Now,
		logger:     logger,
	}, nil
}

// ValidateTTL checks ttl lies within [MinTTL, MaxTTL].
func ValidateTTL(ttl time.Duration) error {
	if ttl < MinTTL || ttl > MaxTTL {
		return fmt.Errorf("%w: %s not within [%s, %s]", ErrInvalidTTL, ttl, MinTTL, MaxTTL)
	}
	return nil
}

// ValidateVersion checks version is a real YYYY-MM-DD date.
func ValidateVersion(version string) error {
	if !versionPattern.MatchString(version) {
		return ErrInvalidVersion
	}
	if _, err := time.Parse(time.DateOnly, version); err != nil {
		return ErrInvalidVersion
	}
	return nil
}

// LatestVersion returns the newest dated folder in the store.
func (s *Service) LatestVersion(ctx context.Context) (string, error) {
	objects, err := s.store.List(ctx, s.prefix)
	if err != nil {
		return "", err
	}
	keys := make([]string, len(objects))
	for i, o := range objects {
		keys[i] = o.Key
	}
	return LatestVersion(keys, s.prefix)
}

// Manifest signs every file of version. An empty version selects the latest
// and a zero ttl selects the configured default.
func (s *Service) Manifest(ctx context.Context, version string, ttl time.Duration) (*Manifest, error) {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if err := ValidateTTL(ttl); err != nil {
		return nil, err
	}

	if version == "" {
		latest, err := s.LatestVersion(ctx)
		if err != nil {
			return nil, err
		}
		version = latest
	} else if err := ValidateVersion(version); err != nil {
		return nil, err
	}

	base := s.prefix + version + "/"
	checksums := s.loadChecksums(ctx, base)

	objects, err := s.store.List(ctx, base)
	if err != nil {
		return nil, err
	}

	files := make([]FileEntry, 0, len(objects))
	for _, obj := range objects {
		if obj.Key == base || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		name := strings.TrimPrefix(obj.Key, base)
		if name == ChecksumFile {
			continue
		}

		url, err := s.store.PresignGet(ctx, obj.Key, ttl)
		if err != nil {
			return nil, err
		}

		size := obj.Size
		entry := FileEntry{Name: name, Size: &size, URL: url}
		if sum, ok := checksums[name]; ok {
			entry.SHA256 = &sum
		}
		files = append(files, entry)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, base)
	}

	s.logger.InfoContext(ctx, "seed manifest signed",
		slog.String("version", version),
		slog.Int("files", len(files)),
		slog.Int("checksums", len(checksums)),
		slog.Duration("ttl", ttl))

	return &Manifest{
		Version:     version,
		GeneratedAt: s.timeNow().UTC().Format(generatedAtLayout),
		ExpiresIn:   int(ttl / time.Second),
		Files:       files,
	}, nil
}

// loadChecksums returns an empty map when the checksum file is missing or unreadable.
func (s *Service) loadChecksums(ctx context.Context, base string) map[string]string {
	blob, err := s.store.Get(ctx, base+ChecksumFile)
	if err != nil {
		s.logger.WarnContext(ctx, "seed checksums unavailable",
			slog.String("key", base+ChecksumFile),
			slog.String("error", err.Error()))
		return map[string]string{}
	}
	return ParseChecksums(blob)
}
