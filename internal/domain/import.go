package domain

import "time"

// ImportState - состояние обработки файла
type ImportState string

const (
	StateDiscovering ImportState = "discovering"
	StateParsing     ImportState = "parsing"
	StateValidating  ImportState = "validating"
	StateBatching    ImportState = "batching"
	StateCommitting  ImportState = "committing"
	StateCompleted   ImportState = "completed"
	StateAborted     ImportState = "aborted"
)

// IsTerminal сообщает, что из состояния больше нет переходов
func (s ImportState) IsTerminal() bool {
	return s == StateCompleted || s == StateAborted
}

// ImportStats - счётчики прогона импорта
type ImportStats struct {
	FilesSeen      int           `json:"files_seen"`
	FilesProcessed int           `json:"files_processed"`
	FilesSkipped   int           `json:"files_skipped"`
	RecordsOK      int           `json:"records_ok"`
	RecordsSkipped int           `json:"records_skipped"`
	Created        int           `json:"created"`
	Updated        int           `json:"updated"`
	Errors         int           `json:"errors"`
	Elapsed        time.Duration `json:"elapsed_ns"`
}

// Merge возвращает сумму двух наборов счётчиков.
// Elapsed не суммируется: время прогона задаёт вызывающий.
func (s ImportStats) Merge(o ImportStats) ImportStats {
	return ImportStats{
		FilesSeen:      s.FilesSeen + o.FilesSeen,
		FilesProcessed: s.FilesProcessed + o.FilesProcessed,
		FilesSkipped:   s.FilesSkipped + o.FilesSkipped,
		RecordsOK:      s.RecordsOK + o.RecordsOK,
		RecordsSkipped: s.RecordsSkipped + o.RecordsSkipped,
		Created:        s.Created + o.Created,
		Updated:        s.Updated + o.Updated,
		Errors:         s.Errors + o.Errors,
		Elapsed:        s.Elapsed,
	}
}

// Attempted - число записей, которые пытались сохранить
func (s ImportStats) Attempted() int {
	return s.Created + s.Updated + s.Errors
}

// SuccessRate - доля успешно сохранённых записей в процентах
func (s ImportStats) SuccessRate() float64 {
	attempted := s.Attempted()
	if attempted == 0 {
		return 0
	}
	return float64(s.Created+s.Updated) / float64(attempted) * 100
}

// RecordsPerSecond - скорость разбора
func (s ImportStats) RecordsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.RecordsOK) / s.Elapsed.Seconds()
}

// FileReport - результат обработки одного файла
type FileReport struct {
	Path   string      `json:"path"`
	Source Source      `json:"source"`
	State  ImportState `json:"state"`
	Stats  ImportStats `json:"stats"`
	Error  string      `json:"error,omitempty"`
}

// ImportOptions - параметры прогона импорта
type ImportOptions struct {
	BatchSize   int  `json:"batch_size"`
	StopOnError bool `json:"stop_on_error"`
	DryRun      bool `json:"dry_run"`
	Workers     int  `json:"workers"`
}

// DefaultBatchSize - размер пакета по умолчанию
const DefaultBatchSize = 1000

// WithDefaults подставляет значения по умолчанию
func (o ImportOptions) WithDefaults() ImportOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// ImportResult - итог прогона: общие счётчики и отчёты по файлам
type ImportResult struct {
	RunID   string        `json:"run_id"`
	Options ImportOptions `json:"options"`
	Stats   ImportStats   `json:"stats"`
	Files   []FileReport  `json:"files"`
	Stopped bool          `json:"stopped"`
}
