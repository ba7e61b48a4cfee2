package obs

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics bundles the Prometheus collectors for the HTTP surface and the
// geometry pipeline. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	PipelineDurations *prometheus.HistogramVec
	PipelineErrors    *prometheus.CounterVec
	VerticesFound     prometheus.Histogram

	CacheLookups *prometheus.CounterVec
}

// NewMetrics registers the collectors against reg, defaulting to the global
// registry when nil. Registering twice against the same registry returns
// the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Handled HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"}), "http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"route"}), "http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	pipeline, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_duration_seconds",
		Help:    "Geometry pipeline stage latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	}, []string{"op"}), "pipeline_duration_seconds")
	if err != nil {
		return nil, err
	}

	pipelineErrors, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_errors_total",
		Help: "Failed pipeline operations by operation and error kind.",
	}, []string{"op", "kind"}), "pipeline_errors_total")
	if err != nil {
		return nil, err
	}

	vertices, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "voronoi_interior_vertices",
		Help:    "Number of interior Voronoi vertices found per polygon.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	}), "voronoi_interior_vertices")
	if err != nil {
		return nil, err
	}

	cache, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "circle_cache_lookups_total",
		Help: "Circle cache lookups by result (hit, miss, error).",
	}, []string{"result"}), "circle_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:          gatherer,
		HTTPRequests:      requests,
		HTTPDurations:     durations,
		PipelineDurations: pipeline,
		PipelineErrors:    pipelineErrors,
		VerticesFound:     vertices,
		CacheLookups:      cache,
	}, nil
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route string, code int, dur time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPDurations.WithLabelValues(route).Observe(dur.Seconds())
}

// ObservePipeline records a pipeline operation. kind is empty on success.
func (m *Metrics) ObservePipeline(op, kind string, dur time.Duration) {
	if m == nil {
		return
	}
	m.PipelineDurations.WithLabelValues(op).Observe(dur.Seconds())
	if kind != "" {
		m.PipelineErrors.WithLabelValues(op, kind).Inc()
	}
}

func (m *Metrics) ObserveVertices(n int) {
	if m == nil {
		return
	}
	m.VerticesFound.Observe(float64(n))
}

func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if m != nil && m.gatherer != nil {
		gatherer = m.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
