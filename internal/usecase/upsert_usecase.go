package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/domain/repository"
	"github.com/poi-ingest/internal/pkg/normalize"
)

// UpsertUseCase создаёт или перезаписывает точку по ключу (external_id, source)
type UpsertUseCase struct {
	store  repository.POIStore
	logger *zap.Logger
}

func NewUpsertUseCase(store repository.POIStore, logger *zap.Logger) *UpsertUseCase {
	return &UpsertUseCase{
		store:  store,
		logger: logger,
	}
}

// Upsert выполняет create-or-update внутри транзакции вызывающего.
// Второй результат - true, если точка создана.
func (uc *UpsertUseCase) Upsert(ctx context.Context, tx repository.POITx, rec domain.POIRecord) (*domain.PointOfInterest, bool, error) {
	fields := fieldsFromRecord(rec)

	existing, err := tx.FindByExternalIDAndSource(ctx, rec.ExternalID, rec.Source)
	switch {
	case err == nil:
		return uc.update(ctx, tx, existing.ID, rec, fields)
	case !errors.Is(err, domain.ErrPOINotFound):
		return nil, false, fmt.Errorf("lookup %s/%s: %w", rec.Source, rec.ExternalID, err)
	}

	poi := &domain.PointOfInterest{
		ExternalID: rec.ExternalID,
		Source:     rec.Source,
	}
	poi.Apply(fields)

	err = tx.Insert(ctx, poi)
	if err == nil {
		uc.logger.Debug("Created POI",
			zap.Int64("id", poi.ID),
			zap.String("external_id", rec.ExternalID),
			zap.String("source", rec.Source.String()),
			zap.Int("ratings", len(fields.RatingsRaw)),
			zap.String("avg_rating", fields.AvgRating.StringFixed(domain.RatingScale)),
		)
		return poi, true, nil
	}
	if !errors.Is(err, domain.ErrDuplicateKey) {
		return nil, false, fmt.Errorf("insert %s/%s: %w", rec.Source, rec.ExternalID, err)
	}

	// Параллельный писатель успел вставить ту же пару: перечитываем и обновляем
	existing, err = tx.FindByExternalIDAndSource(ctx, rec.ExternalID, rec.Source)
	if err != nil {
		return nil, false, fmt.Errorf("reload %s/%s after duplicate insert: %w", rec.Source, rec.ExternalID, err)
	}
	return uc.update(ctx, tx, existing.ID, rec, fields)
}

func (uc *UpsertUseCase) update(ctx context.Context, tx repository.POITx, id int64, rec domain.POIRecord, fields domain.POIFields) (*domain.PointOfInterest, bool, error) {
	poi, err := tx.Update(ctx, id, fields)
	if err != nil {
		return nil, false, fmt.Errorf("update %s/%s: %w", rec.Source, rec.ExternalID, err)
	}

	uc.logger.Debug("Updated POI",
		zap.Int64("id", id),
		zap.String("external_id", rec.ExternalID),
		zap.String("source", rec.Source.String()),
		zap.Int("ratings", len(fields.RatingsRaw)),
		zap.String("avg_rating", fields.AvgRating.StringFixed(domain.RatingScale)),
	)
	return poi, false, nil
}

// UpsertOne выполняет upsert в собственной транзакции
func (uc *UpsertUseCase) UpsertOne(ctx context.Context, rec domain.POIRecord) (*domain.PointOfInterest, bool, error) {
	var (
		poi     *domain.PointOfInterest
		created bool
	)
	err := uc.store.WithinTx(ctx, func(ctx context.Context, tx repository.POITx) error {
		var err error
		poi, created, err = uc.Upsert(ctx, tx, rec)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return poi, created, nil
}

// fieldsFromRecord собирает изменяемые поля и пересчитывает средний рейтинг
func fieldsFromRecord(rec domain.POIRecord) domain.POIFields {
	var ratings domain.Ratings
	if rec.Ratings != nil {
		ratings = domain.Ratings(slices.Clone(rec.Ratings))
	}

	return domain.POIFields{
		Name:        rec.Name,
		Latitude:    rec.Latitude,
		Longitude:   rec.Longitude,
		Category:    rec.Category,
		RatingsRaw:  ratings,
		AvgRating:   normalize.ComputeAverageRating(rec.Ratings),
		Description: rec.Description,
	}
}
