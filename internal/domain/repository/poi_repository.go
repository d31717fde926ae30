package repository

import (
	"context"

	"github.com/poi-ingest/internal/domain"
)

// POIStore - хранилище точек интереса с транзакциями
type POIStore interface {
	// WithinTx выполняет fn в одной транзакции.
	// Ошибка fn откатывает транзакцию, nil - фиксирует.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx POITx) error) error
}

// POITx - операции записи внутри транзакции
type POITx interface {
	// FindByExternalIDAndSource ищет точку по уникальному ключу.
	// Возвращает domain.ErrPOINotFound, если точки нет.
	FindByExternalIDAndSource(ctx context.Context, externalID string, source domain.Source) (*domain.PointOfInterest, error)

	// Insert создаёт точку и заполняет ID и временные метки.
	// При нарушении уникальности возвращает domain.ErrDuplicateKey, транзакция остаётся рабочей.
	Insert(ctx context.Context, poi *domain.PointOfInterest) error

	// Update перезаписывает изменяемые поля точки
	Update(ctx context.Context, id int64, fields domain.POIFields) (*domain.PointOfInterest, error)
}

// POIQueryRepository - чтение точек для API
type POIQueryRepository interface {
	// List возвращает страницу точек и общее количество по фильтру
	List(ctx context.Context, filter domain.POIFilter) ([]*domain.PointOfInterest, int64, error)

	// GetByID возвращает точку по ID
	GetByID(ctx context.Context, id int64) (*domain.PointOfInterest, error)

	// Categories возвращает категории с количеством точек
	Categories(ctx context.Context) ([]domain.GroupStats, error)

	// Sources возвращает источники с количеством точек
	Sources(ctx context.Context) ([]domain.GroupStats, error)
}
