package health

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wildlife-vision/speciesid/internal/db"
)

// DBChecker checks that Postgres answers and has the vector extension.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker creates a new database health checker.
func NewDBChecker(conn *sql.DB) *DBChecker {
	return &DBChecker{db: conn}
}

// Name implements Checker.
func (d *DBChecker) Name() string { return "database" }

// HealthCheck pings the database and confirms the vector extension. A
// database without it cannot serve candidate retrieval.
func (d *DBChecker) HealthCheck(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if _, err := db.VectorVersion(ctx, d.db); err != nil {
		return err
	}
	return nil
}
