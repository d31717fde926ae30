package repository

import (
	"context"

	"github.com/poi-ingest/internal/domain"
)

// StatsRepository интерфейс для работы со статистикой
type StatsRepository interface {
	// GetStatistics возвращает агрегированную статистику по точкам интереса
	GetStatistics(ctx context.Context) (*domain.Statistics, error)
}
