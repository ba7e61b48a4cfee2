package dto

import "biggest-circle-service/internal/domain"

type GeneratePolygonRequest struct {
	CenterPoint domain.Point `json:"centerPoint"`
	MinRadius   int          `json:"minRadius"`
	MaxRadius   int          `json:"maxRadius"`
	NVertices   int          `json:"nVertices"`
	// Seed makes the polygon reproducible. A random seed is used when nil.
	Seed *uint64 `json:"seed,omitempty"`
}

type BatchCirclesRequest struct {
	Polygons []domain.Polygon `json:"polygons"`
}

type BatchCirclesResponse struct {
	Results [][]domain.Circle `json:"results"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
