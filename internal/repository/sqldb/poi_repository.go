package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/domain/repository"
)

const poiColumns = `
	id, external_id, source, name, latitude, longitude, category,
	ratings_raw, avg_rating, description, created_at, updated_at`

type poiStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPOIStore создаёт транзакционное хранилище точек интереса
func NewPOIStore(db *DB) repository.POIStore {
	return &poiStore{
		db:     db.DB,
		logger: db.logger,
	}
}

func (s *poiStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.POITx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &poiTx{tx: tx, logger: s.logger}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type poiTx struct {
	tx     *sqlx.Tx
	logger *zap.Logger
}

func (t *poiTx) FindByExternalIDAndSource(ctx context.Context, externalID string, source domain.Source) (*domain.PointOfInterest, error) {
	query := t.tx.Rebind(`SELECT` + poiColumns + `
		FROM points_of_interest
		WHERE external_id = ? AND source = ?`)

	var poi domain.PointOfInterest
	err := t.tx.GetContext(ctx, &poi, query, externalID, string(source))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPOINotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find poi %s/%s: %w", source, externalID, err)
	}
	return &poi, nil
}

func (t *poiTx) Insert(ctx context.Context, poi *domain.PointOfInterest) error {
	// Savepoint оставляет транзакцию рабочей после нарушения уникальности
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT poi_insert"); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}

	now := time.Now().UTC()
	query := t.tx.Rebind(`
		INSERT INTO points_of_interest (
			external_id, source, name, latitude, longitude, category,
			ratings_raw, avg_rating, description, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err := t.tx.QueryRowxContext(ctx, query,
		poi.ExternalID, string(poi.Source), poi.Name, poi.Latitude, poi.Longitude, poi.Category,
		poi.RatingsRaw, poi.AvgRating, poi.Description, now, now,
	).Scan(&id)
	if err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT poi_insert"); rbErr != nil {
			return fmt.Errorf("rollback to savepoint after %v: %w", err, rbErr)
		}
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("insert poi %s/%s: %w", poi.Source, poi.ExternalID, err)
	}

	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT poi_insert"); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}

	poi.ID = id
	poi.CreatedAt = now
	poi.UpdatedAt = now
	return nil
}

func (t *poiTx) Update(ctx context.Context, id int64, fields domain.POIFields) (*domain.PointOfInterest, error) {
	query := t.tx.Rebind(`
		UPDATE points_of_interest SET
			name = ?, latitude = ?, longitude = ?, category = ?,
			ratings_raw = ?, avg_rating = ?, description = ?, updated_at = ?
		WHERE id = ?`)

	res, err := t.tx.ExecContext(ctx, query,
		fields.Name, fields.Latitude, fields.Longitude, fields.Category,
		fields.RatingsRaw, fields.AvgRating, fields.Description, time.Now().UTC(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update poi %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update poi %d: %w", id, err)
	}
	if affected == 0 {
		return nil, domain.ErrPOINotFound
	}

	var poi domain.PointOfInterest
	if err := t.tx.GetContext(ctx, &poi,
		t.tx.Rebind(`SELECT`+poiColumns+` FROM points_of_interest WHERE id = ?`), id); err != nil {
		return nil, fmt.Errorf("reload poi %d: %w", id, err)
	}
	return &poi, nil
}
