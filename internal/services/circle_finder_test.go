package services

import (
	"biggest-circle-service/internal/domain"
	"biggest-circle-service/internal/platform/obs"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]domain.Circle
	gets    int
	puts    int
	failGet bool
	failPut bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]domain.Circle{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]domain.Circle, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gets++
	if c.failGet {
		return nil, false, errors.New("cache unavailable")
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *memoryCache) Put(_ context.Context, key string, circles []domain.Circle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.puts++
	if c.failPut {
		return errors.New("cache unavailable")
	}
	c.entries[key] = circles
	return nil
}

func newTestFinder(t *testing.T, cache *memoryCache) (*CircleFinder, *obs.Metrics) {
	t.Helper()

	m, err := obs.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	f := NewCircleFinder(newTestEngine(t), nil, m, 2)
	if cache != nil {
		f.Cache = cache
	}
	return f, m
}

func TestCircleFinderSquare(t *testing.T) {
	f, _ := newTestFinder(t, nil)
	ctx := context.Background()

	vertices, err := f.FindInteriorVoronoiVertices(ctx, square())
	if err != nil {
		t.Fatalf("vertices: %v", err)
	}
	if diff := cmp.Diff([]domain.Point{{X: 50, Y: 50}}, vertices); diff != "" {
		t.Fatalf("vertices mismatch (-want +got):\n%s", diff)
	}

	circles, err := f.FindInscribedCircleCandidates(ctx, square())
	if err != nil {
		t.Fatalf("circles: %v", err)
	}
	want := []domain.Circle{{Center: domain.Point{X: 50, Y: 50}, Radius: 50}}
	if diff := cmp.Diff(want, circles); diff != "" {
		t.Fatalf("circles mismatch (-want +got):\n%s", diff)
	}

	largest, err := f.FindLargestCircle(ctx, square())
	if err != nil {
		t.Fatalf("largest: %v", err)
	}
	if largest != want[0] {
		t.Fatalf("largest = %v, want %v", largest, want[0])
	}
}

func TestCircleFinderHexagonLargest(t *testing.T) {
	f, _ := newTestFinder(t, nil)

	got, err := f.FindLargestCircle(context.Background(), hexagon())
	if err != nil {
		t.Fatalf("largest: %v", err)
	}
	if got.Radius < 86 || got.Radius > 87 {
		t.Fatalf("radius = %d, want 86..87", got.Radius)
	}
	if got.Center.X*got.Center.X+got.Center.Y*got.Center.Y > 4 {
		t.Fatalf("center = %v, want near origin", got.Center)
	}
}

func TestCircleFinderUsesCache(t *testing.T) {
	cache := newMemoryCache()
	f, m := newTestFinder(t, cache)
	ctx := context.Background()

	first, err := f.FindInscribedCircleCandidates(ctx, square())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if cache.puts != 1 {
		t.Fatalf("puts = %d, want 1", cache.puts)
	}

	// Poison the entry so a hit is observable.
	key := CacheKey(square(), f.Engine.Options())
	cached := []domain.Circle{{Center: domain.Point{X: 1, Y: 2}, Radius: 3}}
	cache.entries[key] = cached

	second, err := f.FindInscribedCircleCandidates(ctx, square())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if diff := cmp.Diff(cached, second); diff != "" {
		t.Fatalf("expected cached circles (-want +got):\n%s", diff)
	}
	if cmp.Equal(first, second) {
		t.Fatalf("second call did not use the cache")
	}

	vertices, err := f.FindInteriorVoronoiVertices(ctx, square())
	if err != nil {
		t.Fatalf("vertices: %v", err)
	}
	if diff := cmp.Diff([]domain.Point{{X: 1, Y: 2}}, vertices); diff != "" {
		t.Fatalf("vertices from cache mismatch (-want +got):\n%s", diff)
	}

	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues(obs.CacheHit)); got != 2 {
		t.Fatalf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues(obs.CacheMiss)); got != 1 {
		t.Fatalf("cache misses = %v, want 1", got)
	}
}

func TestCircleFinderBypassesFailingCache(t *testing.T) {
	cache := newMemoryCache()
	cache.failGet = true
	cache.failPut = true
	f, m := newTestFinder(t, cache)

	got, err := f.FindInscribedCircleCandidates(context.Background(), square())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d circles, want 1", len(got))
	}
	if v := testutil.ToFloat64(m.CacheLookups.WithLabelValues(obs.CacheError)); v != 1 {
		t.Fatalf("cache errors = %v, want 1", v)
	}
}

func TestCircleFinderInvalidPolygonSkipsCache(t *testing.T) {
	cache := newMemoryCache()
	f, m := newTestFinder(t, cache)

	_, err := f.FindInscribedCircleCandidates(context.Background(), domain.Polygon{})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	if cache.gets != 0 || cache.puts != 0 {
		t.Fatalf("cache touched for invalid polygon: gets=%d puts=%d", cache.gets, cache.puts)
	}
	if v := testutil.ToFloat64(m.PipelineErrors.WithLabelValues("circles", KindInvalidArgument)); v != 1 {
		t.Fatalf("pipeline errors = %v, want 1", v)
	}
}

func TestCircleFinderLargestEmpty(t *testing.T) {
	f, _ := newTestFinder(t, newMemoryCache())

	// A cached empty result forces the empty path regardless of geometry.
	f.Cache.(*memoryCache).entries[CacheKey(square(), f.Engine.Options())] = []domain.Circle{}

	_, err := f.FindLargestCircle(context.Background(), square())
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Fatalf("err = %v, want ErrEmptyResult", err)
	}
}

func TestCircleFinderBatch(t *testing.T) {
	f, _ := newTestFinder(t, nil)

	rect := domain.Polygon{Points: []domain.Point{{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 200, Y: 100}, {X: 0, Y: 100}}}
	got, err := f.FindCirclesBatch(context.Background(), []domain.Polygon{square(), rect, hexagon()})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	want := [][]domain.Circle{
		{{Center: domain.Point{X: 50, Y: 50}, Radius: 50}},
		{
			{Center: domain.Point{X: 50, Y: 50}, Radius: 50},
			{Center: domain.Point{X: 150, Y: 50}, Radius: 50},
		},
		{{Center: domain.Point{X: 0, Y: 0}, Radius: 86}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("batch mismatch (-want +got):\n%s", diff)
	}
}

func TestCircleFinderBatchReportsFailure(t *testing.T) {
	f, _ := newTestFinder(t, nil)

	bad := domain.Polygon{Points: []domain.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}}
	_, err := f.FindCirclesBatch(context.Background(), []domain.Polygon{square(), bad})
	if !errors.Is(err, domain.ErrNumericalDegeneracy) {
		t.Fatalf("err = %v, want ErrNumericalDegeneracy", err)
	}
}

func TestCircleFinderGeneratePolygon(t *testing.T) {
	f, _ := newTestFinder(t, nil)

	poly, err := f.GeneratePolygon(context.Background(), newRand(3), domain.Point{X: 5, Y: 5}, 10, 40, 7)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(poly.Points) != 7 {
		t.Fatalf("got %d points, want 7", len(poly.Points))
	}

	if _, err := f.GeneratePolygon(context.Background(), newRand(3), domain.Point{}, 10, 40, 2); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}

	limit := f.Engine.Options().MaxPoints
	if _, err := f.GeneratePolygon(context.Background(), newRand(3), domain.Point{}, 10, 40, limit+1); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("n above polygon limit: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := f.GeneratePolygon(context.Background(), newRand(3), domain.Point{}, 10, 40, 1<<50); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("n=1<<50: err = %v, want ErrInvalidArgument", err)
	}
}

func TestCacheKey(t *testing.T) {
	opts := DefaultVoronoiOptions()

	a := CacheKey(square(), opts)
	if a != CacheKey(square(), opts) {
		t.Fatalf("cache key is not stable")
	}
	if len(a) != 64 {
		t.Fatalf("cache key length = %d, want 64 hex chars", len(a))
	}

	if a == CacheKey(hexagon(), opts) {
		t.Fatalf("different polygons share a key")
	}

	rotated := domain.Polygon{Points: append(append([]domain.Point{}, square().Points[1:]...), square().Points[0])}
	if a == CacheKey(rotated, opts) {
		t.Fatalf("rotated point order shares a key")
	}

	opts.Scale = 128
	if a == CacheKey(square(), opts) {
		t.Fatalf("engine options do not affect the key")
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{domain.ErrInvalidArgument, KindInvalidArgument},
		{errors.Join(errors.New("x"), domain.ErrNumericalDegeneracy), KindDegeneracy},
		{domain.ErrEmptyResult, KindEmptyResult},
		{context.Canceled, KindCanceled},
		{errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
