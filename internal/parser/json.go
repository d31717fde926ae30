package parser

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/pkg/normalize"
)

// maxLineSize - предел длины одной строки NDJSON
const maxLineSize = 16 << 20

type jsonParser struct {
	recordBuilder
}

// NewJSONParser создаёт парсер JSON: один объект, массив объектов или NDJSON
func NewJSONParser(logger *zap.Logger) Parser {
	return &jsonParser{
		recordBuilder: recordBuilder{
			logger: logger.With(zap.String("parser", "json")),
			source: domain.SourceJSON,
		},
	}
}

func (p *jsonParser) Source() domain.Source {
	return domain.SourceJSON
}

func (p *jsonParser) Parse(ctx context.Context, path string) (iter.Seq[Result], error) {
	if err := checkFile(path); err != nil {
		return nil, err
	}

	return func(yield func(Result) bool) {
		p.logger.Info("Parsing JSON file", zap.String("file", path))

		content, err := os.ReadFile(path)
		if err != nil {
			yield(p.readError(path, 0, err))
			return
		}
		content = bytes.TrimSpace(content)
		if len(content) == 0 {
			p.logger.Warn("Empty JSON file", zap.String("file", path))
			return
		}

		// Сначала весь файл как одно значение, при синтаксической ошибке - построчно
		if json.Valid(content) {
			p.parseDocument(ctx, path, content, yield)
			return
		}

		p.logger.Info("Falling back to newline-delimited JSON", zap.String("file", path))
		p.parseLines(ctx, path, content, yield)
	}, nil
}

// parseDocument разбирает объект или массив объектов.
// Массив читается поэлементно, без построения всего дерева.
func (p *jsonParser) parseDocument(ctx context.Context, path string, content []byte, yield func(Result) bool) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	switch content[0] {
	case '{':
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			yield(p.skip(path, 0, err.Error()))
			return
		}
		yield(p.parseObject(path, 0, obj))

	case '[':
		if _, err := dec.Token(); err != nil {
			yield(p.readError(path, 0, err))
			return
		}
		for idx := 0; dec.More(); idx++ {
			if err := ctxDone(ctx); err != nil {
				yield(p.readError(path, idx, err))
				return
			}

			var item any
			if err := dec.Decode(&item); err != nil {
				yield(p.readError(path, idx, err))
				return
			}
			obj, ok := item.(map[string]any)
			if !ok {
				if !yield(p.skip(path, idx, fmt.Sprintf("non-object item of type %T", item))) {
					return
				}
				continue
			}
			if !yield(p.parseObject(path, idx, obj)) {
				return
			}
		}

	default:
		p.logger.Error("Unexpected JSON structure",
			zap.String("file", path),
			zap.String("starts_with", string(content[:1])),
		)
	}
}

// parseLines разбирает NDJSON, нумерация строк с единицы
func (p *jsonParser) parseLines(ctx context.Context, path string, content []byte, yield func(Result) bool) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if err := ctxDone(ctx); err != nil {
			yield(p.readError(path, lineNum, err))
			return
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var res Result
		obj, err := decodeObject(line)
		if err != nil {
			res = p.skip(path, lineNum, err.Error())
		} else {
			res = p.parseObject(path, lineNum, obj)
		}
		if !yield(res) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		yield(p.readError(path, lineNum, err))
	}
}

func decodeObject(line []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid json: trailing data after value")
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("non-object value of type %T", value)
	}
	return obj, nil
}

func (p *jsonParser) parseObject(path string, index int, obj map[string]any) Result {
	id := normalize.NormalizeString(obj["id"], "")
	name := normalize.NormalizeString(obj["name"], "")
	if res, ok := p.requireIdentity(path, index, id, name); !ok {
		return res
	}

	lat, lon, err := jsonCoordinates(obj)
	if err != nil {
		return p.skip(path, index, err.Error())
	}

	ratings, dropped := normalize.CoerceFloatList(obj["ratings"], normalize.DefaultSeparator)
	p.logDropped(path, index, dropped)

	return p.build(path, index, domain.RawRecord{
		domain.FieldExternalID:  id,
		domain.FieldName:        name,
		domain.FieldLatitude:    lat,
		domain.FieldLongitude:   lon,
		domain.FieldCategory:    normalize.NormalizeString(obj["category"], domain.DefaultCategory),
		domain.FieldRatings:     ratings,
		domain.FieldDescription: normalize.NormalizeString(obj["description"], ""),
	})
}

// jsonCoordinates принимает [lat, lon] или {"latitude": .., "longitude": ..}.
// Отсутствующее поле трактуется как пустой объект, явный null отклоняется.
func jsonCoordinates(obj map[string]any) (decimal.Decimal, decimal.Decimal, error) {
	var latValue, lonValue any

	raw, present := obj["coordinates"]
	if !present {
		raw = map[string]any{}
	}

	switch c := raw.(type) {
	case []any:
		if len(c) < 2 {
			return decimal.Zero, decimal.Zero, errors.New("invalid coordinates format")
		}
		latValue, lonValue = c[0], c[1]
	case map[string]any:
		latValue, lonValue = c["latitude"], c["longitude"]
	default:
		return decimal.Zero, decimal.Zero, errors.New("invalid coordinates format")
	}

	lat, lon, ok := normalize.ParseCoordinates(latValue, lonValue)
	if !ok {
		return decimal.Zero, decimal.Zero, errors.New("invalid coordinates")
	}
	return lat, lon, nil
}
