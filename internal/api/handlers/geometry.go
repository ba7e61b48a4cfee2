package handlers

import (
	"biggest-circle-service/internal/api/dto"
	"biggest-circle-service/internal/domain"
	"biggest-circle-service/internal/services"
	"fmt"
	"math/rand/v2"
	"net/http"
)

// maxBatchPolygons caps one batch request.
const maxBatchPolygons = 64

// GeometryHandler exposes the polygon generator and the circle pipeline.
type GeometryHandler struct {
	Finder *services.CircleFinder
}

// Generate draws a random star polygon. Radii must satisfy
// 0 <= minRadius < maxRadius, and nVertices must lie between 3 and the
// engine's polygon limit.
func (h *GeometryHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.GeneratePolygonRequest
	if !decodeBody(w, r, &req) {
		return
	}

	poly, err := h.Finder.GeneratePolygon(
		r.Context(),
		newRand(req.Seed),
		req.CenterPoint,
		float64(req.MinRadius),
		float64(req.MaxRadius),
		req.NVertices,
	)
	if err != nil {
		writeServiceError(w, r, "generate polygon", err)
		return
	}

	writeJSON(w, r, http.StatusOK, poly)
}

func (h *GeometryHandler) Vertices(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var poly domain.Polygon
	if !decodeBody(w, r, &poly) {
		return
	}

	vertices, err := h.Finder.FindInteriorVoronoiVertices(r.Context(), poly)
	if err != nil {
		writeServiceError(w, r, "find vertices", err)
		return
	}
	if vertices == nil {
		vertices = []domain.Point{}
	}

	writeJSON(w, r, http.StatusOK, vertices)
}

func (h *GeometryHandler) Circles(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var poly domain.Polygon
	if !decodeBody(w, r, &poly) {
		return
	}

	circles, err := h.Finder.FindInscribedCircleCandidates(r.Context(), poly)
	if err != nil {
		writeServiceError(w, r, "find circles", err)
		return
	}
	if circles == nil {
		circles = []domain.Circle{}
	}

	writeJSON(w, r, http.StatusOK, circles)
}

// Largest responds 404 when the polygon has no interior vertices.
func (h *GeometryHandler) Largest(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var poly domain.Polygon
	if !decodeBody(w, r, &poly) {
		return
	}

	circle, err := h.Finder.FindLargestCircle(r.Context(), poly)
	if err != nil {
		writeServiceError(w, r, "find largest circle", err)
		return
	}

	writeJSON(w, r, http.StatusOK, circle)
}

func (h *GeometryHandler) Batch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.BatchCirclesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Polygons) > maxBatchPolygons {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("at most %d polygons per batch", maxBatchPolygons))
		return
	}

	results, err := h.Finder.FindCirclesBatch(r.Context(), req.Polygons)
	if err != nil {
		writeServiceError(w, r, "find circles batch", err)
		return
	}

	res := dto.BatchCirclesResponse{Results: make([][]domain.Circle, 0, len(results))}
	for _, c := range results {
		if c == nil {
			c = []domain.Circle{}
		}
		res.Results = append(res.Results, c)
	}

	writeJSON(w, r, http.StatusOK, res)
}

func newRand(seed *uint64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(*seed, *seed))
}
