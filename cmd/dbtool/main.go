package main

import (
	"biggest-circle-service/internal/config"
	"biggest-circle-service/internal/platform/db"
	"biggest-circle-service/internal/platform/obs"
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	purge := flag.Duration("purge-older-than", 0, "delete cached results older than this age (0 keeps everything)")
	flag.Parse()

	envErr := godotenv.Load()

	logger, err := obs.NewLogger(config.Get("LOG_LEVEL", "info"))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	obs.SetLogger(logger)

	if envErr != nil {
		logger.Info("no .env file found (using environment variables)")
	}

	databaseURL := config.Get("DATABASE_URL", "")
	if strings.TrimSpace(databaseURL) == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	conn, err := db.Open(ctx, databaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	logger.Info("initializing database schema")
	if err := db.InitSchema(ctx, conn); err != nil {
		logger.Fatal("schema initialization failed", zap.Error(err))
	}
	logger.Info("schema ready")

	if *purge > 0 {
		n, err := db.PurgeOlderThan(ctx, conn, *purge)
		if err != nil {
			logger.Fatal("purge failed", zap.Error(err))
		}
		logger.Info("purged cached results", zap.Int64("rows", n), zap.Duration("older_than", *purge))
	}
}
