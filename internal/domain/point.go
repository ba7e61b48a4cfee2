package domain

import "gonum.org/v1/gonum/spatial/r2"

// Immutable integer position on the drawing plane.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Return the point as a float vector for geometric computation.
func (p Point) Vec() r2.Vec { return r2.Vec{X: float64(p.X), Y: float64(p.Y)} }

// Represents a disk with an integer radius. Radius is never negative.
type Circle struct {
	Center Point `json:"center"`
	Radius int   `json:"radius"`
}

// Represents a closed boundary.
// The last point implicitly connects back to the first. Points are
// interpreted as a simple (non-self-intersecting) loop; this is not
// validated and results on self-intersecting input are undefined.
type Polygon struct {
	Points []Point `json:"points"`
}
