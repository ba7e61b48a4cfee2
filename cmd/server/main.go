package main

import (
	"biggest-circle-service/internal/adapters/cache"
	"biggest-circle-service/internal/api"
	"biggest-circle-service/internal/config"
	"biggest-circle-service/internal/platform/db"
	"biggest-circle-service/internal/platform/obs"
	"biggest-circle-service/internal/ports"
	"biggest-circle-service/internal/services"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// main is the application composition root.
// It wires the configured cache adapter behind its port and starts the HTTP server.
func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := obs.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	obs.SetLogger(logger)

	if envErr != nil {
		logger.Info("no .env file found (using environment variables)")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := obs.InitTracing(ctx, obs.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ServiceName: obs.TracerName,
		Exporter:    cfg.TracingExporter,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: 1,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer obs.ShutdownWithTimeout(context.Background(), shutdownTracing)

	metrics, err := obs.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	engine, err := services.NewVoronoiEngine(services.VoronoiOptions{
		Scale:             cfg.VoronoiScale,
		MaxSamples:        cfg.VoronoiMaxSamples,
		MinSamplesPerEdge: cfg.VoronoiMinSamplesPerEdge,
		MaxPoints:         cfg.MaxPolygonPoints,
		Timeout:           cfg.VoronoiTimeout,
	})
	if err != nil {
		return err
	}

	circleCache, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	finder := services.NewCircleFinder(engine, circleCache, metrics, cfg.BatchConcurrency)
	router := api.NewRouter(finder, metrics)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.VoronoiTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("cache", cfg.CacheBackend))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openCache returns the configured circle cache, or nil for CACHE_BACKEND=none.
func openCache(ctx context.Context, cfg config.Config) (ports.CircleCache, func(), error) {
	switch cfg.CacheBackend {
	case config.CachePostgres:
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.InitSchema(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		return cache.NewSQLCircleCache(conn, cfg.CacheTTL), func() { _ = conn.Close() }, nil

	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("open redis %s: %w", cfg.RedisAddr, err)
		}
		return cache.NewRedisCircleCache(client, cfg.CacheTTL), func() { _ = client.Close() }, nil

	default:
		return nil, func() {}, nil
	}
}
