// Package normalize приводит слабо типизированные значения из входных файлов
// к строгим числам, координатам и спискам оценок.
//
// Функции чистые. Вместо логирования они возвращают признак предупреждения,
// а решение о записи в лог принимает вызывающий код.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MinRating = 0.0
	MaxRating = 5.0

	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0

	// DefaultSeparator разделяет оценки в строке вида "1, 2, 3"
	DefaultSeparator = ","
)

// CoerceFloat приводит значение к float64.
// Второй результат false означает, что вернулось значение по умолчанию.
// NaN и бесконечности тоже дают значение по умолчанию.
func CoerceFloat(value any, def float64) (float64, bool) {
	f, ok := parseFloat(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return def, false
	}
	return f, true
}

// parseFloat разбирает число как есть, включая NaN и ±Inf.
// Переполнение строки ("1e999") даёт бесконечность нужного знака.
func parseFloat(value any) (float64, bool) {
	var f float64

	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case decimal.Decimal:
		f = v.InexactFloat64()
	case json.Number:
		return parseFloatString(string(v))
	case string:
		return parseFloatString(v)
	default:
		return 0, false
	}
	return f, true
}

func parseFloatString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

// finiteRating переводит ±Inf в соответствующую границу оценок, NaN отбрасывается
func finiteRating(f float64) (float64, bool) {
	switch {
	case math.IsNaN(f):
		return 0, false
	case math.IsInf(f, 1):
		return MaxRating, true
	case math.IsInf(f, -1):
		return MinRating, true
	}
	return f, true
}

// listDecoder пытается разобрать строку как список элементов
type listDecoder func(s, sep string) ([]any, bool)

// listDecoders применяются по порядку, побеждает первый успешный
var listDecoders = []listDecoder{
	decodeBraceArray,
	decodeJSONArray,
	decodeSeparated,
}

// CoerceFloatList приводит значение к списку float64.
// Нечисловые элементы отбрасываются по одному, их число возвращается вторым результатом.
func CoerceFloatList(value any, sep string) ([]float64, int) {
	if sep == "" {
		sep = DefaultSeparator
	}

	switch v := value.(type) {
	case nil:
		return []float64{}, 0
	case []float64:
		out := make([]float64, 0, len(v))
		dropped := 0
		for _, f := range v {
			r, ok := finiteRating(f)
			if !ok {
				dropped++
				continue
			}
			out = append(out, r)
		}
		return out, dropped
	case []any:
		return coerceItems(v)
	case []string:
		items := make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return coerceItems(items)
	case []int:
		out := make([]float64, len(v))
		for i := range v {
			out[i] = float64(v[i])
		}
		return out, 0
	case []json.Number:
		items := make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return coerceItems(items)
	case string:
		s := strings.TrimSpace(v)
		if s == "" || s == "[]" || s == "{}" {
			return []float64{}, 0
		}
		for _, decode := range listDecoders {
			if items, ok := decode(s, sep); ok {
				return coerceItems(items)
			}
		}
		return []float64{}, 1
	default:
		return []float64{}, 1
	}
}

func coerceItems(items []any) ([]float64, int) {
	out := make([]float64, 0, len(items))
	dropped := 0
	for _, item := range items {
		f, ok := parseFloat(item)
		if ok {
			f, ok = finiteRating(f)
		}
		if !ok {
			dropped++
			continue
		}
		out = append(out, f)
	}
	return out, dropped
}

// decodeBraceArray разбирает "{1,2,3}" как JSON массив
func decodeBraceArray(s, _ string) ([]any, bool) {
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, false
	}
	return decodeJSONArray("["+s[1:len(s)-1]+"]", "")
}

func decodeJSONArray(s, _ string) ([]any, bool) {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, false
	}
	return items, true
}

// decodeSeparated снимает одну пару скобок и делит строку по разделителю
func decodeSeparated(s, sep string) ([]any, bool) {
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")

	parts := strings.Split(s, sep)
	items := make([]any, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items, true
}

// ClampRating ограничивает значение отрезком [lo, hi].
// Второй результат true, если значение пришлось сдвинуть.
func ClampRating(value, lo, hi float64) (float64, bool) {
	if value < lo {
		return lo, true
	}
	if value > hi {
		return hi, true
	}
	return value, false
}

// ComputeAverageRating считает среднее по оценкам, предварительно ограниченным [0, 5].
// Округление half-up до двух знаков выполняется над кратчайшим десятичным
// представлением среднего. Пустой список даёт 0.00.
func ComputeAverageRating(ratings []float64) decimal.Decimal {
	if len(ratings) == 0 {
		return decimal.New(0, -2)
	}

	sum := 0.0
	for _, r := range ratings {
		clamped, _ := ClampRating(r, MinRating, MaxRating)
		sum += clamped
	}
	avg := sum / float64(len(ratings))

	return shortestDecimal(avg).Round(2)
}

// ParseCoordinates приводит пару координат к decimal с шестью знаками после запятой.
// Значения вне допустимых диапазонов дают ok=false, запись нужно пропустить.
// Отсутствующая или нечисловая координата приводится к 0.
// NaN и бесконечности считаются выходом за диапазон.
func ParseCoordinates(lat, lon any) (decimal.Decimal, decimal.Decimal, bool) {
	latF, ok := coordinate(lat, MinLatitude, MaxLatitude)
	if !ok {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}
	lonF, ok := coordinate(lon, MinLongitude, MaxLongitude)
	if !ok {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}

	return QuantizeCoordinate(latF), QuantizeCoordinate(lonF), true
}

func coordinate(value any, lo, hi float64) (float64, bool) {
	f, present := parseFloat(value)
	if !present {
		return 0, true
	}
	if math.IsNaN(f) || f < lo || f > hi {
		return 0, false
	}
	return f, true
}

// QuantizeCoordinate округляет координату до шести знаков (банковское округление)
func QuantizeCoordinate(v float64) decimal.Decimal {
	return shortestDecimal(v).RoundBank(6)
}

// NormalizeString обрезает пробелы; для пустого значения возвращает def.
// Нестроковые значения приводятся к строке.
func NormalizeString(value any, def string) string {
	var s string

	switch v := value.(type) {
	case nil:
		return def
	case string:
		s = v
	case json.Number:
		s = v.String()
	case decimal.Decimal:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// Truncate обрезает строку до limit символов.
// Второй результат true, если строка была обрезана.
func Truncate(s string, limit int) (string, bool) {
	if utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:limit]), true
}

func shortestDecimal(v float64) decimal.Decimal {
	return decimal.RequireFromString(strconv.FormatFloat(v, 'f', -1, 64))
}
