package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// BoundaryEps is the distance under which a point counts as lying on the
// polygon boundary.
const BoundaryEps = 1e-9

// MaxCoordinate bounds the absolute value of every polygon coordinate.
// Within it, twice any polygon area fits in an int64 and scaled sample
// coordinates stay exact in a float64.
const MaxCoordinate = 1 << 29

// Straight boundary piece between two consecutive polygon vertices.
type Segment struct {
	A, B r2.Vec
}

// Length of the segment.
func (s Segment) Length() float64 { return r2.Norm(r2.Sub(s.B, s.A)) }

// Closest returns the point of the segment nearest to p and its parameter
// t in [0,1] along A->B.
func (s Segment) Closest(p r2.Vec) (r2.Vec, float64) {
	d := r2.Sub(s.B, s.A)
	l2 := r2.Norm2(d)
	if l2 == 0 {
		return s.A, 0
	}

	t := r2.Dot(r2.Sub(p, s.A), d) / l2
	t = math.Max(0, math.Min(1, t))
	return r2.Add(s.A, r2.Scale(t, d)), t
}

// Distance from p to the closed segment.
func (s Segment) Distance(p r2.Vec) float64 {
	q, _ := s.Closest(p)
	return r2.Norm(r2.Sub(p, q))
}

// Edges returns the closed boundary, including the wrap-around segment from
// the last vertex to the first.
func (p Polygon) Edges() []Segment {
	n := len(p.Points)
	if n < 2 {
		return nil
	}

	edges := make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		edges = append(edges, Segment{A: p.Points[i].Vec(), B: p.Points[(i+1)%n].Vec()})
	}
	return edges
}

// Validate checks the structural invariants every pipeline stage relies on:
// at least three points, coordinates within MaxCoordinate and no zero-length
// edge.
func (p Polygon) Validate() error {
	n := len(p.Points)
	if n < 3 {
		return fmt.Errorf("polygon has %d points, need at least 3: %w", n, ErrInvalidArgument)
	}

	for i, pt := range p.Points {
		if pt.X < -MaxCoordinate || pt.X > MaxCoordinate || pt.Y < -MaxCoordinate || pt.Y > MaxCoordinate {
			return fmt.Errorf(
				"polygon point %d (%d,%d) is outside ±%d: %w",
				i, pt.X, pt.Y, MaxCoordinate, ErrInvalidArgument,
			)
		}
	}

	for i := 0; i < n; i++ {
		if p.Points[i] == p.Points[(i+1)%n] {
			return fmt.Errorf(
				"polygon edge %d has zero length at (%d,%d): %w",
				i, p.Points[i].X, p.Points[i].Y, ErrInvalidArgument,
			)
		}
	}

	return nil
}

// SignedArea is positive for counter-clockwise loops (y up) and negative
// for clockwise ones. The result is exact for polygons that pass Validate:
// partial sums may wrap, but the total fits in an int64.
func (p Polygon) SignedArea() float64 {
	n := len(p.Points)
	var sum int64
	for i := 0; i < n; i++ {
		a, b := p.Points[i], p.Points[(i+1)%n]
		sum += int64(a.X)*int64(b.Y) - int64(b.X)*int64(a.Y)
	}
	return float64(sum) / 2
}

// Perimeter is the total boundary length.
func (p Polygon) Perimeter() float64 {
	var total float64
	for _, e := range p.Edges() {
		total += e.Length()
	}
	return total
}

// Bounds returns the axis-aligned bounding box corners.
func (p Polygon) Bounds() (lo, hi r2.Vec) {
	if len(p.Points) == 0 {
		return r2.Vec{}, r2.Vec{}
	}

	lo, hi = p.Points[0].Vec(), p.Points[0].Vec()
	for _, pt := range p.Points[1:] {
		v := pt.Vec()
		lo.X, lo.Y = math.Min(lo.X, v.X), math.Min(lo.Y, v.Y)
		hi.X, hi.Y = math.Max(hi.X, v.X), math.Max(hi.Y, v.Y)
	}
	return lo, hi
}

// DistanceToBoundary is the minimum Euclidean distance from pt to any
// polygon edge (not to the enclosed area). Returns +Inf for a polygon with
// fewer than two points.
func DistanceToBoundary(pt r2.Vec, poly Polygon) float64 {
	best := math.Inf(1)
	for _, e := range poly.Edges() {
		if d := e.Distance(pt); d < best {
			best = d
		}
	}
	return best
}

// PointInPolygon reports whether pt lies strictly inside poly.
//
// It uses the crossing-number test. Points closer than BoundaryEps to any
// edge count as outside, so vertices and edge points are never "inside".
func PointInPolygon(pt r2.Vec, poly Polygon) bool {
	if len(poly.Points) < 3 {
		return false
	}
	if DistanceToBoundary(pt, poly) < BoundaryEps {
		return false
	}

	inside := false
	n := len(poly.Points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly.Points[i].Vec(), poly.Points[j].Vec()
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := a.X + (pt.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if pt.X < x {
				inside = !inside
			}
		}
	}
	return inside
}
