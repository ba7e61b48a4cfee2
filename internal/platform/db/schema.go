package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InitSchema creates the circle cache table and its index if missing.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createCircleCacheQuery := `
	CREATE TABLE IF NOT EXISTS circle_cache (
		polygon_key TEXT PRIMARY KEY,
		circles JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_circle_cache_created_at
	ON circle_cache(created_at);
	`

	statements := []string{
		createCircleCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// PurgeOlderThan deletes cache entries created before now-age and returns
// how many rows were removed.
func PurgeOlderThan(ctx context.Context, db *sql.DB, age time.Duration) (int64, error) {
	if db == nil {
		return 0, errors.New("purge circle cache: DB is nil")
	}
	if age <= 0 {
		return 0, fmt.Errorf("purge circle cache: age must be positive, got %v", age)
	}

	res, err := db.ExecContext(ctx,
		`DELETE FROM circle_cache WHERE created_at < $1;`,
		time.Now().Add(-age),
	)
	if err != nil {
		return 0, fmt.Errorf("purge circle cache: delete: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge circle cache: rows affected: %w", err)
	}
	return n, nil
}
