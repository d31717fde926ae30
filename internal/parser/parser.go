package parser

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/pkg/validator"
)

var (
	// ErrRecordSkipped - запись пропущена на этапе разбора (нет id/name, битые координаты, синтаксис)
	ErrRecordSkipped = errors.New("record skipped")
	// ErrFileRead - ошибка чтения посреди файла, последовательность завершается
	ErrFileRead = errors.New("file read error")
	// ErrUnsupportedFormat - расширение файла не поддерживается
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileNotFound - файл не найден
	ErrFileNotFound = errors.New("file not found")
)

// Result - одна запись из файла или причина её пропуска.
// Index - номер строки для CSV, позиция объекта для JSON, номер элемента для XML.
type Result struct {
	Index  int
	Record domain.POIRecord
	Err    error
}

// Parser превращает файл одного формата в последовательность записей.
// Последовательность ленивая и может проходиться повторно.
type Parser interface {
	Source() domain.Source
	Parse(ctx context.Context, path string) (iter.Seq[Result], error)
}

// Registry выбирает парсер по расширению файла
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry создаёт реестр со всеми поддерживаемыми форматами
func NewRegistry(logger *zap.Logger) *Registry {
	jsonParser := NewJSONParser(logger)

	r := &Registry{parsers: make(map[string]Parser)}
	r.Register(".csv", NewCSVParser(logger))
	r.Register(".json", jsonParser)
	r.Register(".ndjson", jsonParser)
	r.Register(".jsonl", jsonParser)
	r.Register(".xml", NewXMLParser(logger))
	return r
}

// Register привязывает парсер к расширению
func (r *Registry) Register(ext string, p Parser) {
	r.parsers[strings.ToLower(ext)] = p
}

// ForPath возвращает парсер для файла или ErrUnsupportedFormat
func (r *Registry) ForPath(path string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := r.parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return p, nil
}

// Supports сообщает, есть ли парсер для файла
func (r *Registry) Supports(path string) bool {
	_, ok := r.parsers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions возвращает зарегистрированные расширения
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// checkFile проверяет, что путь указывает на читаемый обычный файл
func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileRead, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	return f.Close()
}

// recordBuilder - общая часть всех парсеров: пропуск записей и валидация
type recordBuilder struct {
	logger *zap.Logger
	source domain.Source
}

func (b recordBuilder) skip(path string, index int, reason string) Result {
	b.logger.Warn("Skipping record",
		zap.String("file", path),
		zap.String("source", b.source.String()),
		zap.Int("index", index),
		zap.String("reason", reason),
	)
	return Result{Index: index, Err: fmt.Errorf("%w: %s", ErrRecordSkipped, reason)}
}

func (b recordBuilder) readError(path string, index int, err error) Result {
	b.logger.Error("Failed to read file",
		zap.String("file", path),
		zap.Int("index", index),
		zap.Error(err),
	)
	return Result{Index: index, Err: fmt.Errorf("%w: %v", ErrFileRead, err)}
}

// requireIdentity пропускает запись без id или name
func (b recordBuilder) requireIdentity(path string, index int, id, name string) (Result, bool) {
	if id == "" {
		return b.skip(path, index, "missing id"), false
	}
	if name == "" {
		return b.skip(path, index, "missing name"), false
	}
	return Result{}, true
}

// build проставляет источник и прогоняет запись через валидатор
func (b recordBuilder) build(path string, index int, raw domain.RawRecord) Result {
	raw[domain.FieldSource] = b.source.String()

	rec, err := validator.ValidatePOI(raw)
	if err != nil {
		b.logger.Warn("Invalid record",
			zap.String("file", path),
			zap.String("source", b.source.String()),
			zap.Int("index", index),
			zap.Any("external_id", raw[domain.FieldExternalID]),
			zap.Any("fields", validator.FieldErrors(err)),
		)
		return Result{Index: index, Err: err}
	}
	return Result{Index: index, Record: rec}
}

// logDropped сообщает об отброшенных нечисловых оценках
func (b recordBuilder) logDropped(path string, index, dropped int) {
	if dropped == 0 {
		return
	}
	b.logger.Debug("Dropped non-numeric ratings",
		zap.String("file", path),
		zap.Int("index", index),
		zap.Int("dropped", dropped),
	)
}

func ctxDone(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
