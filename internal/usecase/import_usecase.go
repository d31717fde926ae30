package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/domain/repository"
	"github.com/poi-ingest/internal/parser"
	"github.com/poi-ingest/internal/pkg/metrics"
	"github.com/poi-ingest/internal/pkg/validator"
)

// ErrImportStopped - прогон остановлен в режиме stop-on-error
var ErrImportStopped = errors.New("import stopped on error")

// ParserResolver выбирает парсер по пути файла
type ParserResolver interface {
	ForPath(path string) (parser.Parser, error)
	Supports(path string) bool
}

// batchItem - провалидированная запись и её позиция в файле
type batchItem struct {
	Index  int
	Record domain.POIRecord
}

// ImportUseCase - пакетный импорт файлов: разбор, валидация, пакеты, коммит с откатом до записей
type ImportUseCase struct {
	parsers ParserResolver
	store   repository.POIStore
	upsert  *UpsertUseCase
	cache   repository.CacheRepository
	logger  *zap.Logger
}

// NewImportUseCase создает новый экземпляр ImportUseCase. cache может быть nil.
func NewImportUseCase(
	parsers ParserResolver,
	store repository.POIStore,
	upsert *UpsertUseCase,
	cache repository.CacheRepository,
	logger *zap.Logger,
) *ImportUseCase {
	return &ImportUseCase{
		parsers: parsers,
		store:   store,
		upsert:  upsert,
		cache:   cache,
		logger:  logger,
	}
}

// Run импортирует все файлы, найденные по путям, каталогам и glob-шаблонам.
// Возвращает итог даже при ошибке; ErrImportStopped означает остановку по stop-on-error.
func (uc *ImportUseCase) Run(ctx context.Context, paths []string, opts domain.ImportOptions) (*domain.ImportResult, error) {
	opts = opts.WithDefaults()
	start := time.Now()

	result := &domain.ImportResult{
		RunID:   uuid.NewString(),
		Options: opts,
	}
	logger := uc.logger.With(zap.String("run_id", result.RunID))

	files := discoverFiles(paths, uc.parsers.Supports, logger)
	logger.Info("Import started",
		zap.Int("files", len(files)),
		zap.Int("batch_size", opts.BatchSize),
		zap.Int("workers", opts.Workers),
		zap.Bool("stop_on_error", opts.StopOnError),
		zap.Bool("dry_run", opts.DryRun),
	)

	reports := make([]*domain.FileReport, len(files))
	var (
		stopped  atomic.Bool
		stopErr  atomic.Value
		canceled atomic.Bool
	)

	g := new(errgroup.Group)
	g.SetLimit(opts.Workers)

	for i, file := range files {
		if stopped.Load() || ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if stopped.Load() || ctx.Err() != nil {
				return nil
			}

			if file.Filtered {
				report := skippedReport(file.Path)
				logger.Info("Skipping unsupported file type", zap.String("file", file.Path))
				metrics.CounterFiles.WithLabelValues(string(report.State)).Inc()
				reports[i] = &report
				return nil
			}

			report, err := uc.ImportFile(ctx, file.Path, opts)
			reports[i] = &report
			switch {
			case errors.Is(err, ErrImportStopped):
				if stopped.CompareAndSwap(false, true) {
					stopErr.Store(err)
				}
			case err != nil:
				canceled.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, report := range reports {
		if report == nil {
			continue
		}
		result.Files = append(result.Files, *report)
		result.Stats = result.Stats.Merge(report.Stats)
	}
	result.Stats.FilesSeen = len(files)
	result.Stats.Elapsed = time.Since(start)
	result.Stopped = stopped.Load()

	metrics.CounterImportRuns.WithLabelValues(strconv.FormatBool(result.Stopped)).Inc()

	if !opts.DryRun && result.Stats.Created+result.Stats.Updated > 0 {
		uc.invalidateCache(ctx, logger)
	}

	logger.Info("Import finished",
		zap.Int("files_seen", result.Stats.FilesSeen),
		zap.Int("files_processed", result.Stats.FilesProcessed),
		zap.Int("files_skipped", result.Stats.FilesSkipped),
		zap.Int("records_ok", result.Stats.RecordsOK),
		zap.Int("records_skipped", result.Stats.RecordsSkipped),
		zap.Int("created", result.Stats.Created),
		zap.Int("updated", result.Stats.Updated),
		zap.Int("errors", result.Stats.Errors),
		zap.Duration("elapsed", result.Stats.Elapsed),
		zap.Bool("stopped", result.Stopped),
	)

	if err := ctx.Err(); err != nil || canceled.Load() {
		if err == nil {
			err = context.Canceled
		}
		return result, fmt.Errorf("import canceled: %w", err)
	}
	if result.Stopped {
		err, _ := stopErr.Load().(error)
		return result, err
	}
	return result, nil
}

// ImportFile обрабатывает один файл. Ошибка означает, что прогон нужно прекратить:
// ErrImportStopped в режиме stop-on-error или ошибка контекста.
func (uc *ImportUseCase) ImportFile(ctx context.Context, path string, opts domain.ImportOptions) (domain.FileReport, error) {
	opts = opts.WithDefaults()
	f := &fileImport{
		uc:     uc,
		opts:   opts,
		logger: uc.logger.With(zap.String("file", path)),
		report: domain.FileReport{
			Path:  path,
			State: domain.StateDiscovering,
			Stats: domain.ImportStats{FilesSeen: 1},
		},
		batch: make([]batchItem, 0, opts.BatchSize),
	}

	err := f.run(ctx)
	metrics.CounterFiles.WithLabelValues(string(f.report.State)).Inc()
	return f.report, err
}

func (uc *ImportUseCase) invalidateCache(ctx context.Context, logger *zap.Logger) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.InvalidatePOIData(ctx); err != nil {
		logger.Warn("Failed to invalidate POI cache", zap.Error(err))
		return
	}
	logger.Debug("POI cache invalidated")
}

// fileImport - состояние обработки одного файла
type fileImport struct {
	uc     *ImportUseCase
	opts   domain.ImportOptions
	logger *zap.Logger
	report domain.FileReport
	batch  []batchItem
}

func (f *fileImport) setState(state domain.ImportState) {
	if f.report.State == state {
		return
	}
	f.logger.Debug("Import state changed",
		zap.String("from", string(f.report.State)),
		zap.String("to", string(state)),
	)
	f.report.State = state
}

func (f *fileImport) run(ctx context.Context) error {
	if _, err := os.Stat(f.report.Path); errors.Is(err, fs.ErrNotExist) {
		return f.fail(fmt.Errorf("%w: %s", parser.ErrFileNotFound, f.report.Path), true)
	}

	p, err := f.uc.parsers.ForPath(f.report.Path)
	if err != nil {
		return f.fail(err, !errors.Is(err, parser.ErrUnsupportedFormat))
	}
	f.report.Source = p.Source()
	f.logger = f.logger.With(zap.String("source", p.Source().String()))

	f.setState(domain.StateParsing)
	f.logger.Info("Processing file")

	records, err := p.Parse(ctx, f.report.Path)
	if err != nil {
		return f.fail(err, true)
	}

	for res := range records {
		if f.report.State == domain.StateParsing {
			f.setState(domain.StateValidating)
		}

		if res.Err != nil {
			if errors.Is(res.Err, parser.ErrFileRead) {
				if ctxErr := ctx.Err(); ctxErr != nil {
					f.abort(ctxErr)
					return ctxErr
				}
				// Уже разобранное сохраняем, файл считается пропущенным
				if err := f.flush(ctx); err != nil {
					return err
				}
				return f.fail(res.Err, true)
			}

			f.report.Stats.RecordsSkipped++
			metrics.CounterRecords.WithLabelValues(p.Source().String(), metrics.OutcomeSkipped).Inc()

			var verr *validator.ValidationError
			if f.opts.StopOnError && errors.As(res.Err, &verr) {
				f.logger.Error("Invalid record, stopping",
					zap.Int("index", res.Index),
					zap.Strings("fields", verr.FieldNames()),
				)
				if err := f.flush(ctx); err != nil {
					return err
				}
				return f.fail(fmt.Errorf("record %d: %w", res.Index, res.Err), true)
			}
			continue
		}

		f.report.Stats.RecordsOK++
		metrics.CounterRecords.WithLabelValues(p.Source().String(), metrics.OutcomeOK).Inc()

		if f.opts.DryRun {
			continue
		}

		if f.report.State == domain.StateValidating {
			f.setState(domain.StateBatching)
		}
		f.batch = append(f.batch, batchItem{Index: res.Index, Record: res.Record})
		if len(f.batch) >= f.opts.BatchSize {
			if err := f.flush(ctx); err != nil {
				return err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		f.abort(err)
		return err
	}
	if err := f.flush(ctx); err != nil {
		return err
	}

	f.report.Stats.FilesProcessed = 1
	f.setState(domain.StateCompleted)
	f.logger.Info("File imported",
		zap.Int("records_ok", f.report.Stats.RecordsOK),
		zap.Int("records_skipped", f.report.Stats.RecordsSkipped),
		zap.Int("created", f.report.Stats.Created),
		zap.Int("updated", f.report.Stats.Updated),
		zap.Int("errors", f.report.Stats.Errors),
	)
	return nil
}

// flush коммитит накопленный пакет
func (f *fileImport) flush(ctx context.Context) error {
	if len(f.batch) == 0 {
		return nil
	}
	f.setState(domain.StateCommitting)

	source := f.report.Source.String()
	start := time.Now()
	tally, fellBack, err := commitAllOrSubdivide(ctx, f.uc.store, f.batch, f.opts.StopOnError,
		func(ctx context.Context, tx repository.POITx, item batchItem) (bool, error) {
			_, created, err := f.uc.upsert.Upsert(ctx, tx, item.Record)
			return created, err
		},
		func(item batchItem, err error) {
			f.logger.Error("Failed to upsert record",
				zap.Int("index", item.Index),
				zap.String("external_id", item.Record.ExternalID),
				zap.Error(err),
			)
		},
		f.logger,
	)
	metrics.HistogramBatchDuration.Observe(time.Since(start).Seconds())

	result := metrics.BatchCommitted
	if fellBack {
		result = metrics.BatchFallback
	}
	metrics.CounterBatches.WithLabelValues(result).Inc()
	metrics.CounterRecords.WithLabelValues(source, metrics.OutcomeCreated).Add(float64(tally.Created))
	metrics.CounterRecords.WithLabelValues(source, metrics.OutcomeUpdated).Add(float64(tally.Updated))
	metrics.CounterRecords.WithLabelValues(source, metrics.OutcomeError).Add(float64(tally.Errors))

	f.report.Stats.Created += tally.Created
	f.report.Stats.Updated += tally.Updated
	f.report.Stats.Errors += tally.Errors
	f.logger.Debug("Batch committed",
		zap.Int("size", len(f.batch)),
		zap.Bool("fallback", fellBack),
		zap.Int("created", tally.Created),
		zap.Int("updated", tally.Updated),
		zap.Int("errors", tally.Errors),
	)
	f.batch = f.batch[:0]

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			f.abort(ctxErr)
			return ctxErr
		}
		// Ошибка записи уже учтена в tally
		f.report.Stats.FilesSkipped = 1
		f.abort(err)
		f.logger.Error("Stopping on commit error", zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrImportStopped, f.report.Path, err)
	}

	f.setState(domain.StateBatching)
	return nil
}

// fail пропускает файл целиком. countError - учитывать ли отказ в Errors.
func (f *fileImport) fail(err error, countError bool) error {
	f.report.Stats.FilesSkipped = 1
	if countError {
		f.report.Stats.Errors++
	}
	f.abort(err)

	if errors.Is(err, parser.ErrUnsupportedFormat) {
		f.logger.Info("Skipping unsupported file type")
	} else {
		f.logger.Error("Error processing file", zap.Error(err))
	}

	if f.opts.StopOnError {
		return fmt.Errorf("%w: %s: %w", ErrImportStopped, f.report.Path, err)
	}
	return nil
}

func (f *fileImport) abort(err error) {
	f.report.Error = err.Error()
	f.setState(domain.StateAborted)
}

// skippedReport - отчёт о файле, отфильтрованном по расширению при обходе
func skippedReport(path string) domain.FileReport {
	return domain.FileReport{
		Path:  path,
		State: domain.StateAborted,
		Stats: domain.ImportStats{FilesSeen: 1, FilesSkipped: 1},
		Error: parser.ErrUnsupportedFormat.Error(),
	}
}
