package api

import (
	"biggest-circle-service/internal/api/handlers"
	"biggest-circle-service/internal/platform/obs"
	"biggest-circle-service/internal/services"
	"net/http"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(finder *services.CircleFinder, metrics *obs.Metrics) http.Handler {
	mux := http.NewServeMux()

	geo := &handlers.GeometryHandler{Finder: finder}

	mux.HandleFunc("/health", handlers.Health)
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/generate/polygon", geo.Generate)
	mux.HandleFunc("/voronoi/polygon/vertices", geo.Vertices)
	mux.HandleFunc("/voronoi/polygon/verteces", geo.Vertices)
	mux.HandleFunc("/voronoi/polygon/circles", geo.Circles)
	mux.HandleFunc("/voronoi/polygon/largest", geo.Largest)
	mux.HandleFunc("/voronoi/polygons/circles", geo.Batch)

	return requestIDMiddleware(loggingMiddleware(metrics, mux))
}
