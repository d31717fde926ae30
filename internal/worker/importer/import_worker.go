package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/domain/repository"
	"github.com/poi-ingest/internal/usecase"
	"github.com/poi-ingest/internal/worker"
)

const (
	workerName      = "poi-import"
	emptyQueueSleep = 500 * time.Millisecond // пауза если очередь пуста
	errorSleep      = time.Second            // пауза при ошибке
)

// ImportRunner - прогон импорта по списку путей
type ImportRunner interface {
	Run(ctx context.Context, paths []string, opts domain.ImportOptions) (*domain.ImportResult, error)
}

var _ worker.Worker = (*ImportWorker)(nil)

// ImportWorker читает задания из stream:poi:import и публикует итоги в stream:poi:import:done
type ImportWorker struct {
	*worker.BaseWorker
	streamRepo   repository.StreamRepository
	runner       ImportRunner
	defaults     domain.ImportOptions
	consumerName string
	maxBatch     int
}

// NewImportWorker создает новый ImportWorker. defaults - параметры для полей, не заданных в задании.
func NewImportWorker(
	streamRepo repository.StreamRepository,
	runner ImportRunner,
	defaults domain.ImportOptions,
	consumerGroup string,
	maxBatch int,
	logger *zap.Logger,
) *ImportWorker {
	hostname, _ := os.Hostname()
	if maxBatch <= 0 {
		maxBatch = 1
	}

	return &ImportWorker{
		BaseWorker:   worker.NewBaseWorker(workerName, consumerGroup, logger),
		streamRepo:   streamRepo,
		runner:       runner,
		defaults:     defaults.WithDefaults(),
		consumerName: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		maxBatch:     maxBatch,
	}
}

// Start запускает воркер и блокируется до Stop или отмены контекста
func (w *ImportWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting ImportWorker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.consumerName),
		zap.Int("max_batch_size", w.maxBatch))

	if err := w.streamRepo.CreateConsumerGroup(ctx, domain.StreamImportJobs, w.ConsumerGroup()); err != nil {
		logger.Error("Failed to create consumer group", zap.Error(err))
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil

		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()

		default:
			processed, err := w.processBatch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				logger.Error("Failed to process batch", zap.Error(err))
				w.pause(ctx, errorSleep)
				continue
			}

			if processed == 0 {
				w.pause(ctx, emptyQueueSleep)
			}
		}
	}
}

// pause ждёт d, прерываясь на Stop и отмене контекста
func (w *ImportWorker) pause(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-w.StopChan():
	case <-ctx.Done():
	}
}

// processBatch читает и выполняет задания. Возвращает число прочитанных сообщений.
func (w *ImportWorker) processBatch(ctx context.Context) (int, error) {
	logger := w.Logger()

	messages, err := w.streamRepo.ConsumeBatch(ctx, domain.StreamImportJobs, w.ConsumerGroup(), w.consumerName, w.maxBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to consume batch: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	logger.Info("Processing import jobs", zap.Int("message_count", len(messages)))

	processedIDs := make([]string, 0, len(messages))
	for _, msg := range messages {
		job, err := parseJob(msg)
		if err != nil {
			logger.Warn("Failed to parse import job, skipping",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			// ACK битое сообщение чтобы не застревало
			_ = w.streamRepo.AckMessage(ctx, domain.StreamImportJobs, w.ConsumerGroup(), msg.ID)
			continue
		}

		done, err := w.runJob(ctx, job)
		if err != nil {
			// Остановка по контексту: задание останется в pending и будет выдано повторно
			w.ack(context.WithoutCancel(ctx), processedIDs)
			return len(messages), err
		}

		if err := w.streamRepo.PublishToStream(ctx, domain.StreamImportDone, done); err != nil {
			logger.Error("Failed to publish done event",
				zap.String("job_id", job.JobID.String()),
				zap.Error(err))
		}
		processedIDs = append(processedIDs, msg.ID)
	}

	w.ack(ctx, processedIDs)
	return len(messages), nil
}

// runJob выполняет задание. Ошибка возвращается только при отмене контекста.
func (w *ImportWorker) runJob(ctx context.Context, job *domain.ImportJob) (*domain.ImportJobDone, error) {
	logger := w.Logger().With(zap.String("job_id", job.JobID.String()))
	opts := w.jobOptions(job)

	logger.Info("Running import job",
		zap.Strings("paths", job.Paths),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("stop_on_error", opts.StopOnError))

	result, err := w.runner.Run(ctx, job.Paths, opts)
	if err != nil && !errors.Is(err, usecase.ErrImportStopped) && ctx.Err() != nil {
		logger.Warn("Import job interrupted", zap.Error(err))
		return nil, err
	}

	done := &domain.ImportJobDone{
		JobID:      job.JobID,
		FinishedAt: time.Now().UTC(),
	}
	if result != nil {
		done.RunID = result.RunID
		done.Stats = result.Stats
		done.Files = result.Files
		done.Stopped = result.Stopped
	}
	if err != nil {
		done.Error = err.Error()
		logger.Warn("Import job finished with error", zap.Error(err))
	} else {
		logger.Info("Import job finished",
			zap.Int("created", done.Stats.Created),
			zap.Int("updated", done.Stats.Updated),
			zap.Int("errors", done.Stats.Errors))
	}
	return done, nil
}

// jobOptions - параметры задания поверх параметров воркера
func (w *ImportWorker) jobOptions(job *domain.ImportJob) domain.ImportOptions {
	opts := w.defaults
	if job.BatchSize > 0 {
		opts.BatchSize = job.BatchSize
	}
	if job.Workers > 0 {
		opts.Workers = job.Workers
	}
	opts.StopOnError = opts.StopOnError || job.StopOnError
	opts.DryRun = job.DryRun
	return opts
}

func (w *ImportWorker) ack(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := w.streamRepo.AckMessages(ctx, domain.StreamImportJobs, w.ConsumerGroup(), ids); err != nil {
		// Не критично - задания будут выполнены повторно
		w.Logger().Error("Failed to ack messages", zap.Error(err))
	}
}

func parseJob(msg domain.StreamMessage) (*domain.ImportJob, error) {
	if msg.Data == "" {
		return nil, errors.New("message has no data")
	}

	var job domain.ImportJob
	if err := json.Unmarshal([]byte(msg.Data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal import job: %w", err)
	}
	if job.JobID == uuid.Nil {
		return nil, errors.New("job_id is required")
	}
	if len(job.Paths) == 0 {
		return nil, errors.New("paths are required")
	}
	return &job, nil
}
