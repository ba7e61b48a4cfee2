package ports

import (
	"biggest-circle-service/internal/domain"
	"context"
)

// Port: stores computed candidate circles keyed by polygon identity.
type CircleCache interface {
	// Return the cached circles for key. ok is false on a miss.
	Get(ctx context.Context, key string) (circles []domain.Circle, ok bool, err error)
	// Store circles under key, replacing any previous entry.
	Put(ctx context.Context, key string, circles []domain.Circle) error
}
