package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/domain/repository"
)

// orderColumns - допустимые поля сортировки и их колонки
var orderColumns = map[string]string{
	"name":       "name",
	"category":   "category",
	"avg_rating": "avg_rating",
	"id":         "id",
}

type poiQueryRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPOIQueryRepository создаёт репозиторий чтения для API
func NewPOIQueryRepository(db *DB) repository.POIQueryRepository {
	return &poiQueryRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

func (r *poiQueryRepository) List(ctx context.Context, filter domain.POIFilter) ([]*domain.PointOfInterest, int64, error) {
	where, args := buildWhere(filter)

	var total int64
	countQuery := r.db.Rebind(`SELECT COUNT(*) FROM points_of_interest` + where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		r.logger.Error("Failed to count POIs", zap.Error(err))
		return nil, 0, fmt.Errorf("count pois: %w", err)
	}

	query := `SELECT` + poiColumns + ` FROM points_of_interest` + where + orderBy(filter.Ordering)
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	pois := make([]*domain.PointOfInterest, 0)
	if err := r.db.SelectContext(ctx, &pois, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to list POIs", zap.Error(err))
		return nil, 0, fmt.Errorf("list pois: %w", err)
	}

	return pois, total, nil
}

func (r *poiQueryRepository) GetByID(ctx context.Context, id int64) (*domain.PointOfInterest, error) {
	var poi domain.PointOfInterest
	err := r.db.GetContext(ctx, &poi,
		r.db.Rebind(`SELECT`+poiColumns+` FROM points_of_interest WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPOINotFound
	}
	if err != nil {
		r.logger.Error("Failed to get POI by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get poi %d: %w", id, err)
	}
	return &poi, nil
}

func (r *poiQueryRepository) Categories(ctx context.Context) ([]domain.GroupStats, error) {
	return r.groupBy(ctx, "category")
}

func (r *poiQueryRepository) Sources(ctx context.Context) ([]domain.GroupStats, error) {
	return r.groupBy(ctx, "source")
}

// groupBy возвращает различные значения колонки по алфавиту
func (r *poiQueryRepository) groupBy(ctx context.Context, column string) ([]domain.GroupStats, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s AS "key", COUNT(*) AS "count", AVG(avg_rating) AS avg_rating
		FROM points_of_interest
		GROUP BY %[1]s
		ORDER BY %[1]s`, column)

	groups := make([]domain.GroupStats, 0)
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		r.logger.Error("Failed to group POIs", zap.String("column", column), zap.Error(err))
		return nil, fmt.Errorf("group pois by %s: %w", column, err)
	}
	roundGroups(groups)
	return groups, nil
}

func buildWhere(f domain.POIFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.ID != nil {
		conds = append(conds, "id = ?")
		args = append(args, *f.ID)
	}
	if f.ExternalID != "" {
		conds = append(conds, "external_id = ?")
		args = append(args, f.ExternalID)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(f.Source))
	}
	if f.MinRating != nil {
		conds = append(conds, "avg_rating >= ?")
		args = append(args, *f.MinRating)
	}
	if f.MaxRating != nil {
		conds = append(conds, "avg_rating <= ?")
		args = append(args, *f.MaxRating)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// orderBy переводит "-avg_rating" в "avg_rating DESC". Неизвестное поле - сортировка по имени.
func orderBy(ordering string) string {
	direction := "ASC"
	field := strings.TrimSpace(ordering)
	if strings.HasPrefix(field, "-") {
		direction = "DESC"
		field = field[1:]
	}

	column, ok := orderColumns[field]
	if !ok {
		column, direction = "name", "ASC"
	}
	if column == "id" {
		return fmt.Sprintf(" ORDER BY id %s", direction)
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", column, direction)
}
