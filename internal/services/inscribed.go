package services

import (
	"biggest-circle-service/internal/domain"
	"fmt"
	"math"
)

// radiusGuard absorbs representation error so a distance such as
// 49.999999999 still yields radius 50.
const radiusGuard = 1e-9

// EstimateCircles turns each vertex into a candidate inscribed circle whose
// radius is the vertex's distance to the boundary, truncated to an integer.
// The result has one circle per vertex, in the same order.
func EstimateCircles(poly domain.Polygon, vertices []domain.Point) []domain.Circle {
	circles := make([]domain.Circle, 0, len(vertices))
	for _, v := range vertices {
		d := domain.DistanceToBoundary(v.Vec(), poly)
		r := 0
		if !math.IsInf(d, 0) && !math.IsNaN(d) {
			r = int(math.Floor(d + radiusGuard))
		}
		circles = append(circles, domain.Circle{Center: v, Radius: r})
	}
	return circles
}

// Largest picks the circle with the greatest radius. Ties keep the earliest.
func Largest(circles []domain.Circle) (domain.Circle, error) {
	if len(circles) == 0 {
		return domain.Circle{}, fmt.Errorf("largest circle: no candidates: %w", domain.ErrEmptyResult)
	}

	best := circles[0]
	for _, c := range circles[1:] {
		if c.Radius > best.Radius {
			best = c
		}
	}
	return best, nil
}
