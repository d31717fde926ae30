package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Source - формат файла, из которого пришла запись
type Source string

const (
	SourceCSV  Source = "csv"
	SourceJSON Source = "json"
	SourceXML  Source = "xml"
)

// Sources - все допустимые источники
var Sources = []Source{SourceCSV, SourceJSON, SourceXML}

// IsValid проверяет, что источник входит в допустимый набор
func (s Source) IsValid() bool {
	switch s {
	case SourceCSV, SourceJSON, SourceXML:
		return true
	}
	return false
}

func (s Source) String() string {
	return string(s)
}

const (
	// DefaultCategory подставляется, когда категория не указана
	DefaultCategory = "Unknown"

	MaxExternalIDLength  = 128
	MaxNameLength        = 255
	MaxCategoryLength    = 64
	MaxDescriptionLength = 1000

	// CoordinateScale - число знаков после запятой у широты и долготы
	CoordinateScale = 6
	// RatingScale - число знаков после запятой у среднего рейтинга
	RatingScale = 2
)

// PointOfInterest представляет сохранённую точку интереса.
// Пара (ExternalID, Source) уникальна.
type PointOfInterest struct {
	ID          int64           `json:"id" db:"id"`
	ExternalID  string          `json:"external_id" db:"external_id"`
	Source      Source          `json:"source" db:"source"`
	Name        string          `json:"name" db:"name"`
	Latitude    decimal.Decimal `json:"latitude" db:"latitude"`
	Longitude   decimal.Decimal `json:"longitude" db:"longitude"`
	Category    string          `json:"category" db:"category"`
	RatingsRaw  Ratings         `json:"ratings_raw" db:"ratings_raw"`
	AvgRating   decimal.Decimal `json:"avg_rating" db:"avg_rating"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// RatingCount возвращает количество оценок
func (p *PointOfInterest) RatingCount() int {
	return len(p.RatingsRaw)
}

// HasRatings сообщает, есть ли у точки хотя бы одна оценка
func (p *PointOfInterest) HasRatings() bool {
	return len(p.RatingsRaw) > 0
}

// Apply перезаписывает все изменяемые поля. ID, ExternalID и Source не трогаются.
func (p *PointOfInterest) Apply(f POIFields) {
	p.Name = f.Name
	p.Latitude = f.Latitude
	p.Longitude = f.Longitude
	p.Category = f.Category
	p.RatingsRaw = f.RatingsRaw
	p.AvgRating = f.AvgRating
	p.Description = f.Description
}

// POIFields - изменяемая часть точки интереса
type POIFields struct {
	Name        string
	Latitude    decimal.Decimal
	Longitude   decimal.Decimal
	Category    string
	RatingsRaw  Ratings
	AvgRating   decimal.Decimal
	Description string
}

// POIRecord - нормализованная и провалидированная запись, готовая к upsert.
// Значение передаётся по копии, Ratings не разделяется с источником.
type POIRecord struct {
	ExternalID  string
	Source      Source
	Name        string
	Latitude    decimal.Decimal
	Longitude   decimal.Decimal
	Category    string
	Ratings     []float64
	Description string
}

// RatingsPresent сообщает, было ли поле рейтингов во входных данных
func (r POIRecord) RatingsPresent() bool {
	return r.Ratings != nil
}

// Raw возвращает запись в виде сырой карты полей
func (r POIRecord) Raw() RawRecord {
	raw := RawRecord{
		FieldExternalID:  r.ExternalID,
		FieldSource:      string(r.Source),
		FieldName:        r.Name,
		FieldLatitude:    r.Latitude,
		FieldLongitude:   r.Longitude,
		FieldCategory:    r.Category,
		FieldDescription: r.Description,
	}
	if r.Ratings != nil {
		raw[FieldRatings] = slices.Clone(r.Ratings)
	}
	return raw
}

// RawRecord - сырая запись после разбора файла, до валидации
type RawRecord map[string]any

// Ключи RawRecord
const (
	FieldExternalID  = "external_id"
	FieldSource      = "source"
	FieldName        = "name"
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
	FieldCategory    = "category"
	FieldRatings     = "ratings"
	FieldDescription = "description"
)

// Ratings - упорядоченный список оценок, хранится как JSON массив или NULL
type Ratings []float64

// Value реализует driver.Valuer
func (r Ratings) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal([]float64(r))
	if err != nil {
		return nil, fmt.Errorf("marshal ratings: %w", err)
	}
	return string(data), nil
}

// Scan реализует sql.Scanner
func (r *Ratings) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported ratings type %T", src)
	}

	var out []float64
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal ratings: %w", err)
	}
	if out == nil {
		out = []float64{}
	}
	*r = out
	return nil
}

// POIFilter - параметры выборки для API чтения
type POIFilter struct {
	ID         *int64
	ExternalID string
	Category   string
	Source     Source
	MinRating  *decimal.Decimal
	MaxRating  *decimal.Decimal
	Ordering   string
	Limit      int
	Offset     int
}

// Поля, по которым разрешена сортировка
var POIOrderingFields = []string{"name", "category", "avg_rating", "id"}
