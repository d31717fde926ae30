package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stream names
const (
	StreamImportJobs = "stream:poi:import"
	StreamImportDone = "stream:poi:import:done"
)

// ImportJob - входящее задание на импорт
type ImportJob struct {
	JobID       uuid.UUID `json:"job_id"`
	Paths       []string  `json:"paths"`
	BatchSize   int       `json:"batch_size,omitempty"`
	StopOnError bool      `json:"stop_on_error,omitempty"`
	DryRun      bool      `json:"dry_run,omitempty"`
	Workers     int       `json:"workers,omitempty"`
}

// Options переводит задание в параметры прогона
func (j *ImportJob) Options() ImportOptions {
	return ImportOptions{
		BatchSize:   j.BatchSize,
		StopOnError: j.StopOnError,
		DryRun:      j.DryRun,
		Workers:     j.Workers,
	}.WithDefaults()
}

// ImportJobDone - результат выполнения задания
type ImportJobDone struct {
	JobID      uuid.UUID    `json:"job_id"`
	RunID      string       `json:"run_id,omitempty"`
	Stats      ImportStats  `json:"stats"`
	Files      []FileReport `json:"files,omitempty"`
	Stopped    bool         `json:"stopped,omitempty"`
	Error      string       `json:"error,omitempty"`
	FinishedAt time.Time    `json:"finished_at"`
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}
