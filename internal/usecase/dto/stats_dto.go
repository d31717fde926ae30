package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/poi-ingest/internal/domain"
)

// TotalStatistics - общие показатели по всем точкам
type TotalStatistics struct {
	TotalPOIs   int64   `json:"total_pois"`
	AvgRating   *string `json:"avg_rating"`
	MinRating   *string `json:"min_rating"`
	MaxRating   *string `json:"max_rating"`
	WithRatings int64   `json:"with_ratings"`
}

// StatsResponse - статистика по точкам интереса
type StatsResponse struct {
	TotalStatistics TotalStatistics `json:"total_statistics"`
	ByCategory      []GroupResponse `json:"by_category"`
	BySource        []GroupResponse `json:"by_source"`
	LastUpdated     time.Time       `json:"last_updated"`
}

// NewStatsResponse переводит доменную статистику в ответ API
func NewStatsResponse(s *domain.Statistics) StatsResponse {
	return StatsResponse{
		TotalStatistics: TotalStatistics{
			TotalPOIs:   s.TotalPOIs,
			AvgRating:   nullDecimalString(s.AvgRating, domain.RatingScale),
			MinRating:   nullDecimalString(s.MinRating, domain.RatingScale),
			MaxRating:   nullDecimalString(s.MaxRating, domain.RatingScale),
			WithRatings: s.WithRatings,
		},
		ByCategory:  NewGroupsResponse(s.ByCategory).Items,
		BySource:    NewGroupsResponse(s.BySource).Items,
		LastUpdated: s.LastUpdated,
	}
}

func nullDecimalString(d decimal.NullDecimal, places int32) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(places)
	return &s
}
