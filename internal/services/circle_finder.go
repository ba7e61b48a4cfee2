package services

import (
	"biggest-circle-service/internal/domain"
	"biggest-circle-service/internal/platform/obs"
	"biggest-circle-service/internal/ports"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Error kinds used as metric labels.
const (
	KindInvalidArgument = "invalid_argument"
	KindDegeneracy      = "numerical_degeneracy"
	KindEmptyResult     = "empty_result"
	KindCanceled        = "canceled"
	KindInternal        = "internal"
)

// ErrorKind classifies err for metrics and logs. It returns "" for nil.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, domain.ErrNumericalDegeneracy):
		return KindDegeneracy
	case errors.Is(err, domain.ErrEmptyResult):
		return KindEmptyResult
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

// CircleFinder runs the generate -> vertices -> circles pipeline. Cache and
// Metrics are optional.
type CircleFinder struct {
	Engine  *VoronoiEngine
	Cache   ports.CircleCache
	Metrics *obs.Metrics

	// BatchConcurrency limits polygons processed at once by FindCirclesBatch.
	BatchConcurrency int
}

func NewCircleFinder(engine *VoronoiEngine, cache ports.CircleCache, metrics *obs.Metrics, batchConcurrency int) *CircleFinder {
	return &CircleFinder{
		Engine:           engine,
		Cache:            cache,
		Metrics:          metrics,
		BatchConcurrency: batchConcurrency,
	}
}

// observe starts a span and returns the function that ends it, recording
// duration and error kind.
func (f *CircleFinder) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := obs.Tracer().Start(ctx, "circles."+op, trace.WithAttributes(attrs...))
	start := time.Now()
	timing := obs.Time(ctx, "circles."+op)

	return ctx, func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}

		kind := ErrorKind(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, kind)
		}
		span.End()

		f.Metrics.ObservePipeline(op, kind, time.Since(start))
		timing(errp)
	}
}

// GeneratePolygon draws a random star-shaped polygon; see the package-level
// GeneratePolygon.
func (f *CircleFinder) GeneratePolygon(
	ctx context.Context,
	rng *rand.Rand,
	center domain.Point,
	minRadius float64,
	maxRadius float64,
	nVertices int,
) (_ domain.Polygon, err error) {
	_, done := f.observe(ctx, "generate", attribute.Int("n_vertices", nVertices))
	defer done(&err)

	if f.Engine == nil {
		return domain.Polygon{}, errors.New("circle finder: engine is nil")
	}
	if limit := f.Engine.Options().MaxPoints; nVertices > limit {
		return domain.Polygon{}, fmt.Errorf(
			"generate polygon: nVertices=%d exceeds the polygon limit %d: %w",
			nVertices, limit, domain.ErrInvalidArgument,
		)
	}

	return GeneratePolygon(rng, center, minRadius, maxRadius, nVertices)
}

// FindInteriorVoronoiVertices returns the interior segment-Voronoi vertices
// of poly sorted by (x, y).
func (f *CircleFinder) FindInteriorVoronoiVertices(ctx context.Context, poly domain.Polygon) (_ []domain.Point, err error) {
	ctx, done := f.observe(ctx, "vertices", attribute.Int("n_points", len(poly.Points)))
	defer done(&err)

	circles, err := f.candidates(ctx, poly)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Point, 0, len(circles))
	for _, c := range circles {
		out = append(out, c.Center)
	}
	return out, nil
}

// FindInscribedCircleCandidates returns one circle per interior vertex.
func (f *CircleFinder) FindInscribedCircleCandidates(ctx context.Context, poly domain.Polygon) (_ []domain.Circle, err error) {
	ctx, done := f.observe(ctx, "circles", attribute.Int("n_points", len(poly.Points)))
	defer done(&err)

	return f.candidates(ctx, poly)
}

// FindLargestCircle returns the candidate with the greatest radius. A
// polygon without interior vertices fails with ErrEmptyResult.
func (f *CircleFinder) FindLargestCircle(ctx context.Context, poly domain.Polygon) (_ domain.Circle, err error) {
	ctx, done := f.observe(ctx, "largest", attribute.Int("n_points", len(poly.Points)))
	defer done(&err)

	circles, err := f.candidates(ctx, poly)
	if err != nil {
		return domain.Circle{}, err
	}

	best, err := Largest(circles)
	if err != nil {
		return domain.Circle{}, fmt.Errorf("find largest circle: %w", err)
	}
	return best, nil
}

// FindCirclesBatch computes candidate circles for each polygon concurrently.
// Results keep the input order. The first failure cancels the rest and is
// returned with the index of the failing polygon.
func (f *CircleFinder) FindCirclesBatch(ctx context.Context, polys []domain.Polygon) (_ [][]domain.Circle, err error) {
	ctx, done := f.observe(ctx, "batch", attribute.Int("n_polygons", len(polys)))
	defer done(&err)

	out := make([][]domain.Circle, len(polys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, f.BatchConcurrency))

	for i, p := range polys {
		g.Go(func() error {
			circles, err := f.candidates(gctx, p)
			if err != nil {
				return fmt.Errorf("find circles batch: polygon %d: %w", i, err)
			}
			out[i] = circles
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *CircleFinder) candidates(ctx context.Context, poly domain.Polygon) ([]domain.Circle, error) {
	if f.Engine == nil {
		return nil, errors.New("circle finder: engine is nil")
	}
	if err := f.Engine.checkPolygon(poly); err != nil {
		return nil, fmt.Errorf("find circles: %w", err)
	}

	key := CacheKey(poly, f.Engine.Options())
	if circles, ok := f.cacheGet(ctx, key); ok {
		return circles, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("find circles: %w", err)
	}

	vertices, err := f.Engine.FindInteriorVertices(ctx, poly)
	if err != nil {
		return nil, err
	}
	f.Metrics.ObserveVertices(len(vertices))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("find circles: %w", err)
	}

	circles := EstimateCircles(poly, vertices)
	f.cachePut(ctx, key, circles)

	return circles, nil
}

// Cache failures are logged and otherwise ignored.
func (f *CircleFinder) cacheGet(ctx context.Context, key string) ([]domain.Circle, bool) {
	if f.Cache == nil {
		return nil, false
	}

	circles, ok, err := f.Cache.Get(ctx, key)
	switch {
	case err != nil:
		f.Metrics.ObserveCache(obs.CacheError)
		obs.L().Warn("circle cache get failed",
			zap.String("req_id", obs.RequestID(ctx)),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, false
	case !ok:
		f.Metrics.ObserveCache(obs.CacheMiss)
		return nil, false
	default:
		f.Metrics.ObserveCache(obs.CacheHit)
		return circles, true
	}
}

func (f *CircleFinder) cachePut(ctx context.Context, key string, circles []domain.Circle) {
	if f.Cache == nil {
		return
	}

	if err := f.Cache.Put(ctx, key, circles); err != nil {
		obs.L().Warn("circle cache put failed",
			zap.String("req_id", obs.RequestID(ctx)),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// CacheKey identifies a polygon together with the engine settings that
// affect its result. It is the hex SHA-256 of both.
func CacheKey(poly domain.Polygon, opts VoronoiOptions) string {
	h := sha256.New()

	var buf [8]byte
	put := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	put(math.Float64bits(opts.Scale))
	put(uint64(opts.MaxSamples))
	put(uint64(opts.MinSamplesPerEdge))
	put(uint64(len(poly.Points)))
	for _, p := range poly.Points {
		put(uint64(int64(p.X)))
		put(uint64(int64(p.Y)))
	}

	return hex.EncodeToString(h.Sum(nil))
}
