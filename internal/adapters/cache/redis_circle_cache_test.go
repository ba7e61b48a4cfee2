package cache

import (
	"biggest-circle-service/internal/domain"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

func newTestRedisCache(t *testing.T, ttl time.Duration) (*RedisCircleCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCircleCache(client, ttl), mr
}

func TestRedisCircleCacheRoundTrip(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Minute)
	ctx := context.Background()

	want := []domain.Circle{
		{Center: domain.Point{X: 50, Y: 50}, Radius: 50},
		{Center: domain.Point{X: 10, Y: 20}, Radius: 3},
	}
	if err := c.Put(ctx, "abc", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if !mr.Exists("circles:abc") {
		t.Fatalf("expected key circles:abc in redis")
	}
	if ttl := mr.TTL("circles:abc"); ttl != time.Minute {
		t.Fatalf("ttl = %v, want 1m", ttl)
	}

	got, ok, err := c.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected hit")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("circles mismatch (-want +got):\n%s", diff)
	}
}

func TestRedisCircleCacheMissAndExpiry(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Minute)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want miss", ok, err)
	}

	if err := c.Put(ctx, "k", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get(k) = ok=%v err=%v, want hit", ok, err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("empty entry = %#v, want empty non-nil slice", got)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after expiry")
	}
}

func TestRedisCircleCacheErrors(t *testing.T) {
	c, mr := newTestRedisCache(t, 0)
	ctx := context.Background()

	if err := c.Put(ctx, " ", nil); err == nil {
		t.Fatalf("expected error for blank key")
	}

	mr.Set("circles:bad", "not json")
	if _, _, err := c.Get(ctx, "bad"); err == nil {
		t.Fatalf("expected decode error")
	}

	mr.Close()
	if _, _, err := c.Get(ctx, "any"); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}
