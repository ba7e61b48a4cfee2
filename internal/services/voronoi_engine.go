package services

import (
	"biggest-circle-service/internal/domain"
	"biggest-circle-service/internal/platform/obs"
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/fogleman/delaunay"
	"gonum.org/v1/gonum/spatial/r2"
)

// VoronoiOptions tunes the discretized segment-site construction.
type VoronoiOptions struct {
	// Scale multiplies every sample coordinate before rounding it to an
	// integer, keeping the triangulation's orientation tests exact.
	Scale float64
	// MaxSamples is the minimum sample budget for the whole polygon. Large
	// polygons raise it to edgeSampleBudget samples per edge.
	MaxSamples int
	// MinSamplesPerEdge keeps short edges represented in the diagram.
	MinSamplesPerEdge int
	// MaxPoints is the largest polygon accepted, in vertices.
	MaxPoints int
	// Timeout bounds one construction. Zero disables the budget.
	Timeout time.Duration
}

func DefaultVoronoiOptions() VoronoiOptions {
	return VoronoiOptions{
		Scale:             64,
		MaxSamples:        4096,
		MinSamplesPerEdge: 8,
		MaxPoints:         10000,
		Timeout:           5 * time.Second,
	}
}

// edgeSampleBudget is the average number of samples per edge the sample
// budget grows to on polygons with many edges.
const edgeSampleBudget = 32

// VoronoiEngine computes the interior vertices of the Voronoi diagram whose
// sites are the polygon's boundary segments.
//
// The diagram is built in two passes. First every segment is replaced by a
// dense row of samples and the ordinary point diagram of all samples is
// taken as the dual of their Delaunay triangulation. Wherever cells of
// samples from three different segments meet, a true segment-site vertex is
// nearby. Second, each such location is refined against the exact geometry
// of those three segments so reported vertices do not depend on the
// sampling density.
//
// VoronoiEngine holds no mutable state and is safe for concurrent use.
type VoronoiEngine struct {
	opts VoronoiOptions
}

func NewVoronoiEngine(opts VoronoiOptions) (*VoronoiEngine, error) {
	if opts.Scale <= 0 || math.IsNaN(opts.Scale) || math.IsInf(opts.Scale, 0) {
		return nil, fmt.Errorf("new voronoi engine: scale must be positive and finite, got %v", opts.Scale)
	}
	if opts.MaxSamples < 3 {
		return nil, fmt.Errorf("new voronoi engine: max samples must be at least 3, got %d", opts.MaxSamples)
	}
	if opts.MinSamplesPerEdge < 1 {
		return nil, fmt.Errorf("new voronoi engine: min samples per edge must be positive, got %d", opts.MinSamplesPerEdge)
	}
	if opts.MaxPoints < 3 {
		return nil, fmt.Errorf("new voronoi engine: max points must be at least 3, got %d", opts.MaxPoints)
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("new voronoi engine: timeout must not be negative, got %v", opts.Timeout)
	}

	return &VoronoiEngine{opts: opts}, nil
}

func (e *VoronoiEngine) Options() VoronoiOptions { return e.opts }

type verticesResult struct {
	points []domain.Point
	err    error
}

// FindInteriorVertices returns the segment-Voronoi vertices lying strictly
// inside poly, as integer points sorted by (x, y). The same polygon always
// yields the same vertices.
func (e *VoronoiEngine) FindInteriorVertices(ctx context.Context, poly domain.Polygon) (_ []domain.Point, err error) {
	defer obs.Time(ctx, "voronoi.FindInteriorVertices")(&err)

	if err := e.checkPolygon(poly); err != nil {
		return nil, fmt.Errorf("find interior vertices: %w", err)
	}

	parent := ctx
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	// The construction stops at its next context check once ctx is done.
	// Triangulation itself runs to completion.
	done := make(chan verticesResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- verticesResult{err: fmt.Errorf("diagram construction panicked: %v: %w", r, domain.ErrNumericalDegeneracy)}
			}
		}()
		pts, err := e.interiorVertices(ctx, poly)
		done <- verticesResult{points: pts, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, e.stopped(parent, ctx)
	case res := <-done:
		if res.err != nil {
			if ctx.Err() != nil {
				return nil, e.stopped(parent, ctx)
			}
			return nil, fmt.Errorf("find interior vertices: %w", res.err)
		}
		return res.points, nil
	}
}

// stopped reports why a construction ended early: the caller's own
// cancellation, or the engine's time budget.
func (e *VoronoiEngine) stopped(parent, ctx context.Context) error {
	if perr := parent.Err(); perr != nil {
		return fmt.Errorf("find interior vertices: %w", perr)
	}
	return fmt.Errorf(
		"find interior vertices: construction exceeded %v: %w: %w",
		e.opts.Timeout, domain.ErrNumericalDegeneracy, ctx.Err(),
	)
}

// checkPolygon rejects input the construction cannot handle.
func (e *VoronoiEngine) checkPolygon(poly domain.Polygon) error {
	if n := len(poly.Points); n > e.opts.MaxPoints {
		return fmt.Errorf("polygon has %d points, limit is %d: %w", n, e.opts.MaxPoints, domain.ErrInvalidArgument)
	}

	if err := poly.Validate(); err != nil {
		return err
	}

	if poly.SignedArea() == 0 {
		return fmt.Errorf("polygon vertices are collinear: %w", domain.ErrNumericalDegeneracy)
	}

	seen := make(map[domain.Point]int, len(poly.Points))
	for i, p := range poly.Points {
		if j, ok := seen[p]; ok {
			return fmt.Errorf(
				"polygon repeats vertex (%d,%d) at indexes %d and %d: %w",
				p.X, p.Y, j, i, domain.ErrNumericalDegeneracy,
			)
		}
		seen[p] = i
	}

	return nil
}

func (e *VoronoiEngine) interiorVertices(ctx context.Context, poly domain.Polygon) ([]domain.Point, error) {
	edges := poly.Edges()

	samples, owners, spacing := e.sampleBoundary(edges)
	if len(samples) < 3 {
		return nil, fmt.Errorf("boundary produced %d samples: %w", len(samples), domain.ErrNumericalDegeneracy)
	}

	samples, owners = e.addFrame(samples, owners, poly)

	tri, err := delaunay.Triangulate(samples)
	if err != nil {
		return nil, fmt.Errorf("triangulate %d boundary samples: %v: %w", len(samples), err, domain.ErrNumericalDegeneracy)
	}
	if len(tri.Triangles) == 0 {
		return nil, fmt.Errorf("triangulation of %d samples is empty: %w", len(samples), domain.ErrNumericalDegeneracy)
	}

	candidates, err := e.branchCandidates(ctx, tri, owners, poly, spacing)
	if err != nil {
		return nil, err
	}
	exact, err := refineVertices(ctx, candidates, edges, poly)
	if err != nil {
		return nil, err
	}

	seen := make(map[domain.Point]struct{}, len(exact))
	out := make([]domain.Point, 0, len(exact))
	for _, v := range exact {
		p := domain.Point{X: toGrid(v.X), Y: toGrid(v.Y)}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}

		// Truncation can move a vertex near the boundary out of the polygon.
		if !domain.PointInPolygon(p.Vec(), poly) {
			continue
		}
		out = append(out, p)
	}

	slices.SortFunc(out, func(a, b domain.Point) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Y, b.Y)
	})

	return out, nil
}

// sampleBoundary places samples at parameters (i+0.5)/k on every edge, so
// polygon corners are never sampled and every sample belongs to exactly one
// edge. Coordinates are scaled and rounded. It returns the samples, the
// owning edge index of each sample, and the sample spacing of every edge
// (in polygon units).
func (e *VoronoiEngine) sampleBoundary(edges []domain.Segment) ([]delaunay.Point, []int, []float64) {
	var perimeter float64
	for _, s := range edges {
		perimeter += s.Length()
	}

	budget := max(e.opts.MaxSamples, len(edges)*edgeSampleBudget)
	step := perimeter / float64(budget)
	minGap := 2 / e.opts.Scale

	samples := make([]delaunay.Point, 0, budget+len(edges)*e.opts.MinSamplesPerEdge)
	owners := make([]int, 0, cap(samples))
	spacing := make([]float64, len(edges))
	seen := make(map[delaunay.Point]struct{}, cap(samples))

	for i, s := range edges {
		l := s.Length()
		k := max(e.opts.MinSamplesPerEdge, int(math.Ceil(l/step)))
		if l/float64(k) < minGap {
			k = max(1, int(l/minGap))
		}
		spacing[i] = l / float64(k)

		d := r2.Sub(s.B, s.A)
		for j := 0; j < k; j++ {
			t := (float64(j) + 0.5) / float64(k)
			p := r2.Add(s.A, r2.Scale(t, d))
			q := delaunay.Point{X: math.Round(p.X * e.opts.Scale), Y: math.Round(p.Y * e.opts.Scale)}
			if _, ok := seen[q]; ok {
				continue
			}
			seen[q] = struct{}{}
			samples = append(samples, q)
			owners = append(owners, i)
		}
	}

	return samples, owners, spacing
}

// frameOwner marks samples that belong to no edge.
const frameOwner = -1

// addFrame surrounds the samples with the corners of an enlarged bounding
// box so the convex hull of the input never runs along a row of collinear
// edge samples. Any disk inside the polygon is inside the bounding box, so
// the frame never enters an interior triangle's circumcircle.
func (e *VoronoiEngine) addFrame(samples []delaunay.Point, owners []int, poly domain.Polygon) ([]delaunay.Point, []int) {
	lo, hi := poly.Bounds()
	margin := max(hi.X-lo.X, hi.Y-lo.Y) + 1

	corners := []r2.Vec{
		{X: lo.X - margin, Y: lo.Y - margin},
		{X: hi.X + margin, Y: lo.Y - margin},
		{X: hi.X + margin, Y: hi.Y + margin},
		{X: lo.X - margin, Y: hi.Y + margin},
	}
	for _, c := range corners {
		samples = append(samples, delaunay.Point{X: math.Round(c.X * e.opts.Scale), Y: math.Round(c.Y * e.opts.Scale)})
		owners = append(owners, frameOwner)
	}
	return samples, owners
}

// candidate is an approximate diagram vertex and the three edges whose
// samples surround it.
type candidate struct {
	at    r2.Vec
	edges [3]int
}

// ctxCheckEvery is how many loop iterations run between context checks.
const ctxCheckEvery = 1024

// branchCandidates returns circumcenters of Delaunay triangles whose three
// samples come from three different edges and that fall inside the polygon.
// Each such circumcenter is a vertex of the sample diagram where regions of
// three boundary segments meet. Candidates are keyed by their sorted edge
// triple; a triple keeps a second candidate only when it is farther from the
// first than the sampling of those edges can explain.
func (e *VoronoiEngine) branchCandidates(
	ctx context.Context,
	tri *delaunay.Triangulation,
	owners []int,
	poly domain.Polygon,
	spacing []float64,
) ([]candidate, error) {
	seen := make(map[[3]int][]r2.Vec)
	var out []candidate

	ts := tri.Triangles
	for i := 0; i+2 < len(ts); i += 3 {
		if (i/3)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		a, b, c := ts[i], ts[i+1], ts[i+2]
		oa, ob, oc := owners[a], owners[b], owners[c]
		if oa < 0 || ob < 0 || oc < 0 || oa == ob || ob == oc || oa == oc {
			continue
		}

		center, ok := circumcenter(tri.Points[a], tri.Points[b], tri.Points[c])
		if !ok {
			continue
		}
		v := r2.Scale(1/e.opts.Scale, center)

		key := [3]int{oa, ob, oc}
		slices.Sort(key[:])
		merge := 2*max(spacing[key[0]], spacing[key[1]], spacing[key[2]]) + 2/e.opts.Scale
		if slices.ContainsFunc(seen[key], func(p r2.Vec) bool { return r2.Norm(r2.Sub(p, v)) <= merge }) {
			continue
		}

		if !domain.PointInPolygon(v, poly) {
			continue
		}
		seen[key] = append(seen[key], v)
		out = append(out, candidate{at: v, edges: key})
	}

	return out, nil
}

func circumcenter(a, b, c delaunay.Point) (r2.Vec, bool) {
	bx, by := b.X-a.X, b.Y-a.Y
	cx, cy := c.X-a.X, c.Y-a.Y

	d := 2 * (bx*cy - by*cx)
	if d == 0 {
		return r2.Vec{}, false
	}

	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	ux := (cy*b2 - by*c2) / d
	uy := (bx*c2 - cx*b2) / d
	if math.IsNaN(ux) || math.IsNaN(uy) || math.IsInf(ux, 0) || math.IsInf(uy, 0) {
		return r2.Vec{}, false
	}

	return r2.Vec{X: a.X + ux, Y: a.Y + uy}, true
}

// snapEps is how close a coordinate must be to an integer to be rounded to
// it rather than truncated.
const snapEps = 1e-6

// toGrid maps a vertex coordinate to the integer grid: values within snapEps
// of an integer snap to it, everything else truncates toward zero.
func toGrid(v float64) int {
	if r := math.Round(v); math.Abs(v-r) < snapEps {
		return int(r)
	}
	return int(v)
}
