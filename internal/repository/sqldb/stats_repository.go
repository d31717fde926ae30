package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/domain/repository"
)

type statsRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewStatsRepository создает новый экземпляр stats repository
func NewStatsRepository(db *DB, logger *zap.Logger) repository.StatsRepository {
	return &statsRepository{
		db:     db.DB,
		logger: logger,
	}
}

// GetStatistics возвращает агрегированную статистику по точкам интереса
func (r *statsRepository) GetStatistics(ctx context.Context) (*domain.Statistics, error) {
	stats := &domain.Statistics{
		LastUpdated: time.Now().UTC(),
	}

	// Общие показатели
	totals := struct {
		Total       int64               `db:"total"`
		AvgRating   decimal.NullDecimal `db:"avg_rating"`
		MinRating   decimal.NullDecimal `db:"min_rating"`
		MaxRating   decimal.NullDecimal `db:"max_rating"`
		WithRatings int64               `db:"with_ratings"`
	}{}

	query := `
		SELECT
			COUNT(*) AS total,
			AVG(avg_rating) AS avg_rating,
			MIN(avg_rating) AS min_rating,
			MAX(avg_rating) AS max_rating,
			COALESCE(SUM(CASE WHEN ratings_raw IS NOT NULL AND ratings_raw <> '[]' THEN 1 ELSE 0 END), 0) AS with_ratings
		FROM points_of_interest
	`
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		r.logger.Error("failed to get poi totals", zap.Error(err))
		return nil, fmt.Errorf("get poi totals: %w", err)
	}

	stats.TotalPOIs = totals.Total
	stats.AvgRating = roundNull(totals.AvgRating)
	stats.MinRating = roundNull(totals.MinRating)
	stats.MaxRating = roundNull(totals.MaxRating)
	stats.WithRatings = totals.WithRatings

	// Разбивка по категориям
	byCategory, err := r.breakdown(ctx, "category")
	if err != nil {
		r.logger.Error("failed to get category stats", zap.Error(err))
		return nil, fmt.Errorf("get category stats: %w", err)
	}
	stats.ByCategory = byCategory

	// Разбивка по источникам
	bySource, err := r.breakdown(ctx, "source")
	if err != nil {
		r.logger.Error("failed to get source stats", zap.Error(err))
		return nil, fmt.Errorf("get source stats: %w", err)
	}
	stats.BySource = bySource

	return stats, nil
}

// breakdown группирует точки по колонке, самые крупные группы первыми
func (r *statsRepository) breakdown(ctx context.Context, column string) ([]domain.GroupStats, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s AS "key", COUNT(*) AS "count", AVG(avg_rating) AS avg_rating
		FROM points_of_interest
		GROUP BY %[1]s
		ORDER BY COUNT(*) DESC, %[1]s ASC`, column)

	groups := make([]domain.GroupStats, 0)
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("query %s stats: %w", column, err)
	}
	roundGroups(groups)
	return groups, nil
}

func roundNull(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NewNullDecimal(d.Decimal.Round(domain.RatingScale))
}

func roundGroups(groups []domain.GroupStats) {
	for i := range groups {
		groups[i].AvgRating = roundNull(groups[i].AvgRating)
	}
}
