package obs

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordPipeline(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.ObservePipeline("vertices", "", 5*time.Millisecond)
	m.ObservePipeline("vertices", "invalid_argument", time.Millisecond)
	m.ObservePipeline("vertices", "invalid_argument", time.Millisecond)

	if got := testutil.ToFloat64(m.PipelineErrors.WithLabelValues("vertices", "invalid_argument")); got != 2 {
		t.Fatalf("pipeline_errors_total = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.PipelineDurations, "pipeline_duration_seconds"); got != 1 {
		t.Fatalf("pipeline_duration_seconds series = %d, want 1", got)
	}
}

func TestMetricsRecordHTTPAndCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.ObserveHTTP(http.MethodPost, "/voronoi/polygon/circles", 200, 10*time.Millisecond)
	m.ObserveCache(CacheHit)
	m.ObserveCache(CacheMiss)
	m.ObserveCache(CacheMiss)

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/voronoi/polygon/circles", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues(CacheMiss)); got != 2 {
		t.Fatalf("cache misses = %v, want 2", got)
	}
}

func TestNewMetricsTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("first NewMetrics: %v", err)
	}
	second, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("second NewMetrics: %v", err)
	}

	first.ObserveCache(CacheHit)
	if got := testutil.ToFloat64(second.CacheLookups.WithLabelValues(CacheHit)); got != 1 {
		t.Fatalf("shared counter = %v, want 1", got)
	}
}

func TestNewMetricsIncompatibleCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_total",
		Help: "Handled HTTP requests by method, route and status code.",
	}))

	if _, err := NewMetrics(reg); err == nil {
		t.Fatalf("expected error for incompatible collector")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
	m.ObservePipeline("op", "kind", time.Millisecond)
	m.ObserveVertices(3)
	m.ObserveCache(CacheError)
}

func TestMetricsHandlerExposesSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.ObserveVertices(4)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "voronoi_interior_vertices_count 1") {
		t.Fatalf("metrics output missing vertices histogram:\n%s", rr.Body.String())
	}
}

func TestTimeLogsWithoutPanicking(t *testing.T) {
	err := errors.New("boom")
	Time(t.Context(), "op")(&err)
	Time(t.Context(), "op")(nil)
}
