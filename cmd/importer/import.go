package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/domain/repository"
	"github.com/poi-ingest/internal/parser"
	"github.com/poi-ingest/internal/repository/cache"
	"github.com/poi-ingest/internal/repository/sqldb"
	"github.com/poi-ingest/internal/usecase"
)

type importFlags struct {
	dryRun      bool
	stopOnError bool
	batchSize   int
	workers     int
}

func (f *importFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&f.dryRun, "dry-run", false, "parse and validate without writing to the database")
	fs.BoolVar(&f.stopOnError, "stop-on-error", false, "stop the run at the first invalid record or failed write")
	fs.IntVar(&f.batchSize, "batch-size", domain.DefaultBatchSize, "records per transaction (default IMPORT_BATCH_SIZE)")
	fs.IntVar(&f.workers, "workers", 1, "files imported in parallel (default IMPORT_WORKERS)")
}

// options - параметры из конфигурации, поверх них флаги, заданные явно
func (f *importFlags) options(fs *pflag.FlagSet, defaults domain.ImportOptions) (domain.ImportOptions, error) {
	opts := defaults
	if fs.Changed("batch-size") {
		opts.BatchSize = f.batchSize
	}
	if fs.Changed("workers") {
		opts.Workers = f.workers
	}
	if fs.Changed("stop-on-error") {
		opts.StopOnError = f.stopOnError
	}
	opts.DryRun = f.dryRun

	if opts.BatchSize <= 0 {
		return opts, fmt.Errorf("--batch-size must be positive, got %d", opts.BatchSize)
	}
	if opts.Workers <= 0 {
		return opts, fmt.Errorf("--workers must be positive, got %d", opts.Workers)
	}
	return opts, nil
}

func newImportCommand(stdout io.Writer, global *globalFlags) *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <path>...",
		Short: "Import POI files, directories or glob patterns",
		Long: `
Imports every .csv, .json and .xml file found at the given paths.
Directories are walked recursively and glob patterns are expanded.
Invalid records are skipped and reported. A failing batch is retried
record by record so one bad row never loses the rest of the batch.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()

			e, err := openEnv(ctx, global)
			if err != nil {
				return err
			}
			defer e.Close()

			opts, err := flags.options(c.Flags(), domain.ImportOptions{
				BatchSize:   e.cfg.Import.BatchSize,
				StopOnError: e.cfg.Import.StopOnError,
				Workers:     e.cfg.Import.Workers,
			})
			if err != nil {
				return err
			}

			cacheRepo, closeCache := openCache(e)
			defer closeCache()

			store := sqldb.NewPOIStore(e.db)
			uc := usecase.NewImportUseCase(
				parser.NewRegistry(e.log),
				store,
				usecase.NewUpsertUseCase(store, e.log),
				cacheRepo,
				e.log,
			)

			result, runErr := uc.Run(ctx, args, opts)
			if result != nil {
				printSummary(stdout, result)
			}
			if errors.Is(runErr, usecase.ErrImportStopped) {
				return fmt.Errorf("import stopped: %w", runErr)
			}
			return runErr
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

// openCache подключает Redis для сброса кеша API. Без Redis импорт работает как обычно.
func openCache(e *env) (repository.CacheRepository, func()) {
	if !e.cfg.Redis.Enabled {
		return nil, func() {}
	}

	client, err := cache.NewRedis(&e.cfg.Redis, e.log)
	if err != nil {
		e.log.Warn("Redis unavailable, cached API data will expire by TTL", zap.Error(err))
		return nil, func() {}
	}
	return cache.NewCacheRepository(client), func() { _ = client.Close() }
}
