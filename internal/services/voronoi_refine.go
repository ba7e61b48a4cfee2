package services

import (
	"biggest-circle-service/internal/domain"
	"context"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
)

const maxNewtonSteps = 50

// A boundary site of the segment diagram: either the open interior of an
// edge (a line) or a polygon corner (a point).
type site struct {
	isPoint bool
	vertex  int
	seg     domain.Segment
	at      r2.Vec

	// Line sites only: unit normal and offset, oriented so the candidate
	// that discovered the site is at positive distance.
	normal r2.Vec
	offset float64
}

func lineSite(s domain.Segment, from r2.Vec) (site, bool) {
	d := r2.Sub(s.B, s.A)
	l := r2.Norm(d)
	if l == 0 {
		return site{}, false
	}

	n := r2.Vec{X: -d.Y / l, Y: d.X / l}
	off := r2.Dot(n, s.A)
	if r2.Dot(n, from)-off < 0 {
		n = r2.Scale(-1, n)
		off = -off
	}

	return site{seg: s, normal: n, offset: off}, true
}

func pointSite(idx int, at r2.Vec) site {
	return site{isPoint: true, vertex: idx, at: at}
}

// eval returns the smooth distance function of the site at p and its gradient.
func (s site) eval(p r2.Vec) (float64, r2.Vec) {
	if s.isPoint {
		d := r2.Sub(p, s.at)
		l := r2.Norm(d)
		if l == 0 {
			return 0, r2.Vec{}
		}
		return l, r2.Scale(1/l, d)
	}
	return r2.Dot(s.normal, p) - s.offset, s.normal
}

// realized is the true distance from p to the site as a piece of boundary.
func (s site) realized(p r2.Vec) float64 {
	if s.isPoint {
		return r2.Norm(r2.Sub(p, s.at))
	}
	return s.seg.Distance(p)
}

func (s site) same(o site) bool {
	if s.isPoint != o.isPoint {
		return false
	}
	if s.isPoint {
		return s.vertex == o.vertex
	}
	return s.seg == o.seg
}

// refineVertices snaps every candidate to exact segment-Voronoi vertices.
//
// Each candidate is solved against the sites of its own three edges: their
// lines and their end corners. Every triple of those sites is solved for its
// equidistant point. A solution is kept only when it is the center of an
// empty disk touching all three sites and lies strictly inside the polygon,
// so every returned point is a genuine diagram vertex even if the candidate
// was poor.
func refineVertices(ctx context.Context, candidates []candidate, edges []domain.Segment, poly domain.Polygon) ([]r2.Vec, error) {
	var out []r2.Vec
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sites := ownerSites(c, edges)
		for i := 0; i < len(sites); i++ {
			for j := i + 1; j < len(sites); j++ {
				for k := j + 1; k < len(sites); k++ {
					v, ok := solveEquidistant(c.at, sites[i], sites[j], sites[k])
					if !ok || !acceptVertex(v, poly, sites[i], sites[j], sites[k]) {
						continue
					}
					out = append(out, v)
				}
			}
		}
	}
	return out, nil
}

// ownerSites returns the line sites of the candidate's edges followed by
// their distinct end corners: at most nine sites.
func ownerSites(c candidate, edges []domain.Segment) []site {
	n := len(edges)
	sites := make([]site, 0, 9)
	add := func(s site) {
		for _, o := range sites {
			if o.same(s) {
				return
			}
		}
		sites = append(sites, s)
	}

	for _, i := range c.edges {
		if ls, ok := lineSite(edges[i], c.at); ok {
			add(ls)
		}
	}
	for _, i := range c.edges {
		add(pointSite(i, edges[i].A))
		add(pointSite((i+1)%n, edges[i].B))
	}
	return sites
}

// solveEquidistant runs Newton's method from start on
// d1(p) - d2(p) = 0, d1(p) - d3(p) = 0. Three line sites converge in a
// single step.
func solveEquidistant(start r2.Vec, s1, s2, s3 site) (r2.Vec, bool) {
	p := start
	for step := 0; step < maxNewtonSteps; step++ {
		d1, g1 := s1.eval(p)
		d2, g2 := s2.eval(p)
		d3, g3 := s3.eval(p)

		jac := mat.NewDense(2, 2, []float64{
			g1.X - g2.X, g1.Y - g2.Y,
			g1.X - g3.X, g1.Y - g3.Y,
		})
		rhs := mat.NewVecDense(2, []float64{d2 - d1, d3 - d1})

		var dx mat.VecDense
		if err := dx.SolveVec(jac, rhs); err != nil {
			return r2.Vec{}, false
		}

		delta := r2.Vec{X: dx.AtVec(0), Y: dx.AtVec(1)}
		p = r2.Add(p, delta)
		if !finite(p) {
			return r2.Vec{}, false
		}
		if r2.Norm(delta) <= 1e-12*(1+r2.Norm(p)) {
			return p, true
		}
	}
	return r2.Vec{}, false
}

func acceptVertex(v r2.Vec, poly domain.Polygon, s1, s2, s3 site) bool {
	r, _ := s1.eval(v)
	if r <= domain.BoundaryEps {
		return false
	}

	eps := 1e-7 * (1 + r)
	for _, s := range []site{s1, s2, s3} {
		if math.Abs(s.realized(v)-r) > eps {
			return false
		}
	}

	if domain.DistanceToBoundary(v, poly) < r-eps {
		return false
	}

	return domain.PointInPolygon(v, poly)
}

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
