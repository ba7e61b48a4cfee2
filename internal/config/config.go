package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Cache backends.
const (
	CacheNone     = "none"
	CachePostgres = "postgres"
	CacheRedis    = "redis"
)

// Config is the process configuration assembled from the environment.
type Config struct {
	Port     string
	LogLevel string

	CacheBackend  string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	VoronoiScale             float64
	VoronoiMaxSamples        int
	VoronoiMinSamplesPerEdge int
	VoronoiTimeout           time.Duration
	MaxPolygonPoints         int

	BatchConcurrency int

	TracingEnabled  bool
	TracingExporter string
	OTLPEndpoint    string
}

// Get returns the value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) (int, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer: %w", key, v, err)
	}
	return n, nil
}

func GetFloat(key string, fallback float64) (float64, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a number: %w", key, v, err)
	}
	return f, nil
}

// GetDuration accepts Go duration syntax ("5s", "250ms").
func GetDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a duration: %w", key, v, err)
	}
	return d, nil
}

func GetBool(key string, fallback bool) (bool, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s=%q is not a boolean: %w", key, v, err)
	}
	return b, nil
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		Port:            Get("PORT", "8080"),
		LogLevel:        Get("LOG_LEVEL", "info"),
		CacheBackend:    strings.ToLower(Get("CACHE_BACKEND", CacheNone)),
		DatabaseURL:     Get("DATABASE_URL", ""),
		RedisAddr:       Get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		TracingExporter: strings.ToLower(Get("TRACING_EXPORTER", "stdout")),
		OTLPEndpoint:    Get("OTLP_ENDPOINT", ""),
	}

	var err error
	if cfg.RedisDB, err = GetInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = GetDuration("CACHE_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.VoronoiScale, err = GetFloat("VORONOI_SCALE", 64); err != nil {
		return Config{}, err
	}
	if cfg.VoronoiMaxSamples, err = GetInt("VORONOI_MAX_SAMPLES", 4096); err != nil {
		return Config{}, err
	}
	if cfg.VoronoiMinSamplesPerEdge, err = GetInt("VORONOI_MIN_SAMPLES_PER_EDGE", 8); err != nil {
		return Config{}, err
	}
	if cfg.VoronoiTimeout, err = GetDuration("VORONOI_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.MaxPolygonPoints, err = GetInt("MAX_POLYGON_POINTS", 10000); err != nil {
		return Config{}, err
	}
	if cfg.BatchConcurrency, err = GetInt("BATCH_CONCURRENCY", 4); err != nil {
		return Config{}, err
	}
	if cfg.TracingEnabled, err = GetBool("TRACING_ENABLED", false); err != nil {
		return Config{}, err
	}

	switch cfg.CacheBackend {
	case CacheNone, CacheRedis:
	case CachePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("config: DATABASE_URL is required when CACHE_BACKEND=%s", CachePostgres)
		}
	default:
		return Config{}, fmt.Errorf("config: unknown CACHE_BACKEND %q (want none, postgres or redis)", cfg.CacheBackend)
	}

	if cfg.BatchConcurrency < 1 {
		return Config{}, fmt.Errorf("config: BATCH_CONCURRENCY must be positive, got %d", cfg.BatchConcurrency)
	}
	if cfg.MaxPolygonPoints < 3 {
		return Config{}, fmt.Errorf("config: MAX_POLYGON_POINTS must be at least 3, got %d", cfg.MaxPolygonPoints)
	}
	if cfg.CacheTTL < 0 {
		return Config{}, fmt.Errorf("config: CACHE_TTL must not be negative, got %v", cfg.CacheTTL)
	}

	return cfg, nil
}
