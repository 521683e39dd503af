// Package db opens the PostgreSQL connection pool used by the species and
// ecoregion stores.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DriverName is the database/sql driver registered by lib/pq.
const DriverName = "postgres"

// VectorExtensionQuery verifies pgvector is installed.
const VectorExtensionQuery = "SELECT extversion FROM pg_extension WHERE extname = 'vector'"

// ErrMissingURL is returned when no connection string is configured.
var ErrMissingURL = errors.New("database url is required")

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// DefaultPoolConfig sizes the pool for a small API replica: five steady
// connections with up to ten more under burst, recycled every minute.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    15,
		MaxIdleConns:    5,
		ConnMaxLifetime: 60 * time.Second,
		PingTimeout:     5 * time.Second,
	}
}

// Open creates a pooled connection and pings it before returning.
func Open(ctx context.Context, url string, cfg PoolConfig) (*sql.DB, error) {
	if url == "" {
		return nil, ErrMissingURL
	}

	conn, err := sql.Open(DriverName, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

// VectorVersion returns the installed pgvector version.
func VectorVersion(ctx context.Context, conn *sql.DB) (string, error) {
	var version string
	if err := conn.QueryRowContext(ctx, VectorExtensionQuery).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errors.New("pgvector extension is not installed")
		}
		return "", fmt.Errorf("failed to query pgvector version: %w", err)
	}
	return version, nil
}
