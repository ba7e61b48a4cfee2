package services

import (
	"biggest-circle-service/internal/domain"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// maxGenerateAttempts bounds redraws when integer truncation collapses two
// consecutive vertices onto the same point.
const maxGenerateAttempts = 32

// maxGenerateVertices is the hard ceiling on nVertices. Callers serving
// untrusted input apply their own, lower limit.
const maxGenerateVertices = 1 << 20

// GeneratePolygon produces a random star-shaped polygon around center.
//
// Vertex angles are drawn uniformly in [0°, 360°) and sorted, so vertices are
// visited in increasing angle and the loop cannot cross itself. Each vertex
// sits at minRadius + d*(maxRadius-minRadius) from center for a uniform d in
// [0, 1). Coordinates are truncated toward zero.
//
// The randomness source is injected so identical seeds yield identical
// polygons.
func GeneratePolygon(
	rng *rand.Rand,
	center domain.Point,
	minRadius float64,
	maxRadius float64,
	nVertices int,
) (domain.Polygon, error) {
	if rng == nil {
		return domain.Polygon{}, fmt.Errorf("generate polygon: rng must be non-nil: %w", domain.ErrInvalidArgument)
	}
	if nVertices < 3 {
		return domain.Polygon{}, fmt.Errorf("generate polygon: nVertices=%d, need at least 3: %w", nVertices, domain.ErrInvalidArgument)
	}
	if nVertices > maxGenerateVertices {
		return domain.Polygon{}, fmt.Errorf(
			"generate polygon: nVertices=%d exceeds %d: %w",
			nVertices, maxGenerateVertices, domain.ErrInvalidArgument,
		)
	}
	if math.IsNaN(minRadius) || math.IsNaN(maxRadius) || math.IsInf(maxRadius, 0) {
		return domain.Polygon{}, fmt.Errorf(
			"generate polygon: radii must be finite (min=%v max=%v): %w",
			minRadius, maxRadius, domain.ErrInvalidArgument,
		)
	}
	if minRadius < 0 || maxRadius < 0 {
		return domain.Polygon{}, fmt.Errorf(
			"generate polygon: radii must be non-negative (min=%v max=%v): %w",
			minRadius, maxRadius, domain.ErrInvalidArgument,
		)
	}
	if maxRadius <= minRadius {
		return domain.Polygon{}, fmt.Errorf(
			"generate polygon: maxRadius=%v must exceed minRadius=%v: %w",
			maxRadius, minRadius, domain.ErrInvalidArgument,
		)
	}

	reach := maxRadius + math.Max(math.Abs(float64(center.X)), math.Abs(float64(center.Y)))
	if reach > domain.MaxCoordinate {
		return domain.Polygon{}, fmt.Errorf(
			"generate polygon: vertices may reach %v, coordinates are limited to %d: %w",
			reach, domain.MaxCoordinate, domain.ErrInvalidArgument,
		)
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		poly := drawStarPolygon(rng, center, minRadius, maxRadius, nVertices)
		if poly.Validate() == nil {
			return poly, nil
		}
	}

	return domain.Polygon{}, fmt.Errorf(
		"generate polygon: %d attempts produced coincident vertices (n=%d, radii %v..%v): %w",
		maxGenerateAttempts, nVertices, minRadius, maxRadius, domain.ErrNumericalDegeneracy,
	)
}

func drawStarPolygon(rng *rand.Rand, center domain.Point, minRadius, maxRadius float64, n int) domain.Polygon {
	// Distances are drawn before angles.
	distances := make([]float64, n)
	for i := range distances {
		distances[i] = rng.Float64()
	}

	angles := make([]float64, n)
	for i := range angles {
		angles[i] = rng.Float64() * 360
	}
	slices.Sort(angles)

	cx, cy := float64(center.X), float64(center.Y)
	points := make([]domain.Point, 0, n)
	for i := 0; i < n; i++ {
		rad := angles[i] * math.Pi / 180
		r := minRadius + distances[i]*(maxRadius-minRadius)
		points = append(points, domain.Point{
			X: int(cx + math.Cos(rad)*r),
			Y: int(cy + math.Sin(rad)*r),
		})
	}

	return domain.Polygon{Points: points}
}
