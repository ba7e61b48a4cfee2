package cache

import (
	"biggest-circle-service/internal/domain"
	"biggest-circle-service/internal/platform/obs"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLCircleCache is a Postgres-backed cache of candidate circles, stored as
// JSONB in the circle_cache table.
type SQLCircleCache struct {
	DB *sql.DB
	// TTL hides entries older than this on read. Zero keeps entries forever.
	TTL time.Duration

	now func() time.Time
}

func NewSQLCircleCache(db *sql.DB, ttl time.Duration) *SQLCircleCache {
	return &SQLCircleCache{DB: db, TTL: ttl, now: time.Now}
}

func (s *SQLCircleCache) Get(ctx context.Context, key string) (_ []domain.Circle, _ bool, err error) {
	defer obs.Time(ctx, "circle.cache.sql.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("get circle cache: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("get circle cache: key must not be empty")
	}

	q := `
	SELECT circles
	FROM circle_cache
	WHERE polygon_key = $1
		AND created_at >= $2;
	`

	cutoff := time.Time{}
	if s.TTL > 0 {
		cutoff = s.clock()().Add(-s.TTL)
	}

	var raw []byte
	err = s.DB.QueryRowContext(ctx, q, key, cutoff).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get circle cache: query circle_cache table: %w", err)
	}

	var circles []domain.Circle
	if err := json.Unmarshal(raw, &circles); err != nil {
		return nil, false, fmt.Errorf("get circle cache: decode circles for key=%q: %w", key, err)
	}

	return circles, true, nil
}

func (s *SQLCircleCache) Put(ctx context.Context, key string, circles []domain.Circle) (err error) {
	defer obs.Time(ctx, "circle.cache.sql.Put")(&err)

	if s.DB == nil {
		return errors.New("insert circle cache: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("insert circle cache: key must not be empty")
	}
	if circles == nil {
		circles = []domain.Circle{}
	}

	raw, err := json.Marshal(circles)
	if err != nil {
		return fmt.Errorf("insert circle cache: encode circles: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO circle_cache (polygon_key, circles, created_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (polygon_key) DO UPDATE
	SET circles = EXCLUDED.circles,
		created_at = EXCLUDED.created_at;
	`, key, string(raw), s.clock()())
	if err != nil {
		return fmt.Errorf("insert circle cache key=%q: %w", key, err)
	}

	return nil
}

func (s *SQLCircleCache) clock() func() time.Time {
	if s.now == nil {
		return time.Now
	}
	return s.now
}
