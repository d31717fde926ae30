package dto

import (
	"time"

	"github.com/poi-ingest/internal/domain"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// ListPOIsRequest - параметры выборки точек интереса.
// Нечисловые рейтинги и неизвестный source игнорируются, нечисловой id даёт пустой результат.
type ListPOIsRequest struct {
	ID         string `query:"id"`
	ExternalID string `query:"external_id" validate:"omitempty,max=128"`
	Category   string `query:"category" validate:"omitempty,max=64"`
	Source     string `query:"source"`
	MinRating  string `query:"min_rating"`
	MaxRating  string `query:"max_rating"`
	Ordering   string `query:"ordering"`
	Page       int    `query:"page" validate:"omitempty,min=1"`
	Limit      int    `query:"limit" validate:"omitempty,min=1"`
}

// CoordinatesDTO - координаты точки
type CoordinatesDTO struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// POIResponse - точка интереса в ответе API
type POIResponse struct {
	ID          int64          `json:"id"`
	ExternalID  string         `json:"external_id"`
	Source      string         `json:"source"`
	Name        string         `json:"name"`
	Latitude    string         `json:"latitude"`
	Longitude   string         `json:"longitude"`
	Category    string         `json:"category"`
	AvgRating   string         `json:"avg_rating"`
	RatingsRaw  []float64      `json:"ratings_raw"`
	Description string         `json:"description"`
	RatingCount int            `json:"rating_count"`
	HasRatings  bool           `json:"has_ratings"`
	Coordinates CoordinatesDTO `json:"coordinates"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewPOIResponse собирает ответ из доменной точки
func NewPOIResponse(p *domain.PointOfInterest) POIResponse {
	lat := p.Latitude.StringFixed(domain.CoordinateScale)
	lon := p.Longitude.StringFixed(domain.CoordinateScale)
	return POIResponse{
		ID:          p.ID,
		ExternalID:  p.ExternalID,
		Source:      p.Source.String(),
		Name:        p.Name,
		Latitude:    lat,
		Longitude:   lon,
		Category:    p.Category,
		AvgRating:   p.AvgRating.StringFixed(domain.RatingScale),
		RatingsRaw:  p.RatingsRaw,
		Description: p.Description,
		RatingCount: p.RatingCount(),
		HasRatings:  p.HasRatings(),
		Coordinates: CoordinatesDTO{Latitude: lat, Longitude: lon},
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ListPOIsResponse - страница точек интереса
type ListPOIsResponse struct {
	POIs  []POIResponse `json:"pois"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// GroupResponse - значение группы и число точек в ней
type GroupResponse struct {
	Value     string  `json:"value"`
	Count     int64   `json:"count"`
	AvgRating *string `json:"avg_rating"`
}

// GroupsResponse - список категорий или источников
type GroupsResponse struct {
	Items []GroupResponse `json:"items"`
	Count int             `json:"count"`
}

// NewGroupsResponse переводит доменные группы в ответ API
func NewGroupsResponse(groups []domain.GroupStats) GroupsResponse {
	items := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		items = append(items, GroupResponse{
			Value:     g.Key,
			Count:     g.Count,
			AvgRating: nullDecimalString(g.AvgRating, domain.RatingScale),
		})
	}
	return GroupsResponse{Items: items, Count: len(items)}
}
