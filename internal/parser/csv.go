package parser

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"iter"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/pkg/normalize"
)

// Колонки CSV файла
const (
	colID          = "poi_id"
	colName        = "poi_name"
	colLatitude    = "poi_latitude"
	colLongitude   = "poi_longitude"
	colCategory    = "poi_category"
	colRatings     = "poi_ratings"
	colDescription = "poi_description"
)

const utf8BOM = "\ufeff"

type csvParser struct {
	recordBuilder
}

// NewCSVParser создаёт парсер CSV файлов с заголовком
func NewCSVParser(logger *zap.Logger) Parser {
	return &csvParser{
		recordBuilder: recordBuilder{
			logger: logger.With(zap.String("parser", "csv")),
			source: domain.SourceCSV,
		},
	}
}

func (p *csvParser) Source() domain.Source {
	return domain.SourceCSV
}

func (p *csvParser) Parse(ctx context.Context, path string) (iter.Seq[Result], error) {
	if err := checkFile(path); err != nil {
		return nil, err
	}

	return func(yield func(Result) bool) {
		p.logger.Info("Parsing CSV file", zap.String("file", path))

		f, err := os.Open(path)
		if err != nil {
			yield(p.readError(path, 0, err))
			return
		}
		defer f.Close()

		reader := csv.NewReader(bufio.NewReader(f))
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true

		header, err := reader.Read()
		if errors.Is(err, io.EOF) {
			p.logger.Warn("Empty CSV file", zap.String("file", path))
			return
		}
		if err != nil {
			yield(p.readError(path, 1, err))
			return
		}
		columns := headerColumns(header)

		for {
			if err := ctxDone(ctx); err != nil {
				yield(p.readError(path, 0, err))
				return
			}

			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				var parseErr *csv.ParseError
				if errors.As(err, &parseErr) {
					if !yield(p.skip(path, parseErr.StartLine, parseErr.Err.Error())) {
						return
					}
					continue
				}
				yield(p.readError(path, 0, err))
				return
			}

			line, _ := reader.FieldPos(0)
			if !yield(p.parseRow(path, line, columns, row)) {
				return
			}
		}
	}, nil
}

func (p *csvParser) parseRow(path string, line int, columns map[string]int, row []string) Result {
	// Отсутствующая колонка даёт nil, как и пустое значение в normalize
	get := func(name string) any {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return nil
		}
		return row[idx]
	}

	id := normalize.NormalizeString(get(colID), "")
	name := normalize.NormalizeString(get(colName), "")
	if res, ok := p.requireIdentity(path, line, id, name); !ok {
		return res
	}

	lat, lon, ok := normalize.ParseCoordinates(get(colLatitude), get(colLongitude))
	if !ok {
		return p.skip(path, line, "invalid coordinates")
	}

	ratings, dropped := normalize.CoerceFloatList(get(colRatings), normalize.DefaultSeparator)
	p.logDropped(path, line, dropped)

	return p.build(path, line, domain.RawRecord{
		domain.FieldExternalID:  id,
		domain.FieldName:        name,
		domain.FieldLatitude:    lat,
		domain.FieldLongitude:   lon,
		domain.FieldCategory:    normalize.NormalizeString(get(colCategory), domain.DefaultCategory),
		domain.FieldRatings:     ratings,
		domain.FieldDescription: normalize.NormalizeString(get(colDescription), ""),
	})
}

// headerColumns строит индекс колонок без учёта регистра и BOM
func headerColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if _, exists := columns[key]; !exists {
			columns[key] = i
		}
	}
	return columns
}
