package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/poi-ingest/internal/config"
	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/parser"
	"github.com/poi-ingest/internal/pkg/logger"
	"github.com/poi-ingest/internal/repository/cache"
	redisRepo "github.com/poi-ingest/internal/repository/redis"
	"github.com/poi-ingest/internal/repository/sqldb"
	"github.com/poi-ingest/internal/usecase"
	"github.com/poi-ingest/internal/worker"
	"github.com/poi-ingest/internal/worker/importer"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Check if worker is enabled
	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting POI Import Worker")
	log.Info("Configuration loaded",
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Int("max_batch", cfg.Worker.MaxBatch),
		zap.Int("import_batch_size", cfg.Import.BatchSize),
		zap.Int("import_workers", cfg.Import.Workers))

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	// 4. Connect to Redis (streams are required)
	redisClient, err := cache.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// 5. Initialize repositories
	store := sqldb.NewPOIStore(db)
	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), log)
	cacheRepo := cache.NewCacheRepository(redisClient)

	// 6. Initialize use cases
	importUC := usecase.NewImportUseCase(
		parser.NewRegistry(log),
		store,
		usecase.NewUpsertUseCase(store, log),
		cacheRepo,
		log,
	)

	// 7. Initialize workers
	importWorker := importer.NewImportWorker(
		streamRepo,
		importUC,
		domain.ImportOptions{
			BatchSize:   cfg.Import.BatchSize,
			StopOnError: cfg.Import.StopOnError,
			Workers:     cfg.Import.Workers,
		},
		cfg.Worker.ConsumerGroup,
		cfg.Worker.MaxBatch,
		log,
	)

	// 8. Create worker manager and register workers
	workerManager := worker.NewWorkerManager(worker.DefaultShutdownTimeout, log)
	workerManager.Register(importWorker)

	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// 9. Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("Received shutdown signal")

	// Текущее задание дорабатывает, контекст отменяется только после таймаута
	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}
	cancel()

	log.Info("Worker shutdown complete")
}
