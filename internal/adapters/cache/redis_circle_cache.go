package cache

import (
	"biggest-circle-service/internal/domain"
	"biggest-circle-service/internal/platform/obs"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "circles:"

// RedisCircleCache stores candidate circles as JSON strings under
// "circles:<key>" with an expiry.
type RedisCircleCache struct {
	Client redis.UniversalClient
	// TTL is the key expiry. Zero keeps keys until evicted.
	TTL time.Duration
}

func NewRedisCircleCache(client redis.UniversalClient, ttl time.Duration) *RedisCircleCache {
	return &RedisCircleCache{Client: client, TTL: ttl}
}

func (c *RedisCircleCache) Get(ctx context.Context, key string) (_ []domain.Circle, _ bool, err error) {
	defer obs.Time(ctx, "circle.cache.redis.Get")(&err)

	if c.Client == nil {
		return nil, false, errors.New("get circle cache: redis client is nil")
	}
	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("get circle cache: key must not be empty")
	}

	raw, err := c.Client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get circle cache: redis get: %w", err)
	}

	var circles []domain.Circle
	if err := json.Unmarshal(raw, &circles); err != nil {
		return nil, false, fmt.Errorf("get circle cache: decode circles for key=%q: %w", key, err)
	}

	return circles, true, nil
}

func (c *RedisCircleCache) Put(ctx context.Context, key string, circles []domain.Circle) (err error) {
	defer obs.Time(ctx, "circle.cache.redis.Put")(&err)

	if c.Client == nil {
		return errors.New("insert circle cache: redis client is nil")
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

	if err := c.Client.Set(ctx, redisKeyPrefix+key, raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("insert circle cache key=%q: %w", key, err)
	}

	return nil
}
