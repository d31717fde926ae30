package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/poi-ingest/internal/config"
	"github.com/poi-ingest/internal/pkg/logger"
	"github.com/poi-ingest/internal/repository/sqldb"
)

// globalFlags - флаги, общие для всех подкоманд
type globalFlags struct {
	verbose bool
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var flags globalFlags

	rc := &cobra.Command{
		Use:   "importer",
		Short: "Load points of interest from CSV, JSON and XML files",
		Long: `
Loads points of interest from CSV, JSON and XML files into the database.
Records are keyed by (external id, source): re-importing a file updates
existing points instead of duplicating them.

Configuration is read from .env and the environment (DB_DRIVER, DB_PATH,
IMPORT_BATCH_SIZE, ...). Command line flags take precedence.
`,
		SilenceUsage: true,
	}
	rc.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	rc.AddCommand(newImportCommand(stdout, &flags))
	rc.AddCommand(newMigrateCommand(stdout, &flags))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// env - конфигурация, логгер и база для одной команды
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *sqldb.DB
}

// openEnv читает конфигурацию, создаёт логгер (в stderr) и применяет миграции
func openEnv(ctx context.Context, flags *globalFlags) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.NewWithOptions(logger.Options{
		Level:       cfg.Log.Level,
		Verbose:     flags.verbose,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := sqldb.New(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		e.log.Error("Failed to close database connection", zap.Error(err))
	}
	_ = e.log.Sync()
}
