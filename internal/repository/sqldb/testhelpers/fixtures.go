package testhelpers

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/domain/repository"
)

// NewPOI собирает точку интереса для фикстур
func NewPOI(externalID string, source domain.Source, name, category string, ratings ...float64) *domain.PointOfInterest {
	poi := &domain.PointOfInterest{
		ExternalID: externalID,
		Source:     source,
		Name:       name,
		Latitude:   decimal.RequireFromString("41.390000"),
		Longitude:  decimal.RequireFromString("2.170000"),
		Category:   category,
		AvgRating:  decimal.Zero,
	}
	if ratings != nil {
		poi.RatingsRaw = domain.Ratings(ratings)
		sum := 0.0
		for _, r := range ratings {
			sum += r
		}
		if len(ratings) > 0 {
			poi.AvgRating = decimal.NewFromFloat(sum / float64(len(ratings))).Round(domain.RatingScale)
		}
	}
	return poi
}

// InsertPOIs вставляет фикстуры одной транзакцией
func InsertPOIs(t *testing.T, store repository.POIStore, pois ...*domain.PointOfInterest) {
	t.Helper()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.POITx) error {
		for _, poi := range pois {
			if err := tx.Insert(ctx, poi); err != nil {
				return fmt.Errorf("insert fixture %s/%s: %w", poi.Source, poi.ExternalID, err)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to load fixtures: %v", err)
	}
}
