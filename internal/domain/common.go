package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrPOINotFound - точка не найдена в хранилище
	ErrPOINotFound = errors.New("point of interest not found")

	// ErrDuplicateKey - нарушение уникальности (external_id, source)
	ErrDuplicateKey = errors.New("duplicate (external_id, source)")
)

// Statistics представляет агрегированную статистику по точкам интереса
type Statistics struct {
	TotalPOIs   int64               `json:"total_pois"`
	AvgRating   decimal.NullDecimal `json:"avg_rating"`
	MinRating   decimal.NullDecimal `json:"min_rating"`
	MaxRating   decimal.NullDecimal `json:"max_rating"`
	WithRatings int64               `json:"with_ratings"`
	ByCategory  []GroupStats        `json:"by_category"`
	BySource    []GroupStats        `json:"by_source"`
	LastUpdated time.Time           `json:"last_updated"`
}

// GroupStats - количество и средний рейтинг внутри группы
type GroupStats struct {
	Key       string              `json:"key" db:"key"`
	Count     int64               `json:"count" db:"count"`
	AvgRating decimal.NullDecimal `json:"avg_rating" db:"avg_rating"`
}

// Ключи кеша, зависящие от содержимого хранилища
const (
	CacheKeyStats      = "stats:current"
	CacheKeyCategories = "pois:categories"
	CacheKeySources    = "pois:sources"
)
