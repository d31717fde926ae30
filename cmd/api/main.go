package main

// @title POI Ingest API
// @version 1.0.0
// @description Read-only API over points of interest loaded from CSV, JSON and XML files.
// @description
// @description Основные возможности:
// @description - Постраничная выборка точек с фильтрами и сортировкой
// @description - Список категорий и источников
// @description - Статистика по рейтингам

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/poi-ingest/docs"
	"github.com/poi-ingest/internal/config"
	httpDelivery "github.com/poi-ingest/internal/delivery/http"
	"github.com/poi-ingest/internal/delivery/http/handler"
	"github.com/poi-ingest/internal/domain/repository"
	"github.com/poi-ingest/internal/pkg/logger"
	"github.com/poi-ingest/internal/repository/cache"
	"github.com/poi-ingest/internal/repository/sqldb"
	"github.com/poi-ingest/internal/usecase"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting POI Ingest API")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
	)

	// 3. Connect to database
	db, err := sqldb.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	checks := map[string]handler.HealthChecker{"database": db}

	// 4. Connect to Redis (optional)
	var cacheRepo repository.CacheRepository
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(&cfg.Redis, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Failed to close Redis connection", zap.Error(err))
			}
		}()

		cacheRepo = cache.NewCacheRepository(redisClient)
		checks["redis"] = redisClient
		log.Info("Redis connected")
	}

	// 5. Initialize repositories
	poiRepo := sqldb.NewPOIQueryRepository(db)
	statsRepo := sqldb.NewStatsRepository(db, log)

	// 6. Initialize use cases
	poiUC := usecase.NewPOIUseCase(poiRepo, cacheRepo, cfg.Cache.StatsCacheTTL, log)
	statsUC := usecase.NewStatsUseCase(statsRepo, cacheRepo, cfg.Cache.StatsCacheTTL, log)

	// 7. Initialize HTTP handlers and server
	server := httpDelivery.NewServer(
		cfg,
		log,
		handler.NewHealthHandler(checks, log),
		handler.NewPOIHandler(poiUC, log),
		handler.NewStatsHandler(statsUC, log),
	)

	// 8. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started successfully",
		zap.String("address", cfg.GetServerAddr()),
		zap.String("env", cfg.Server.Env),
	)

	// 9. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}
