package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/domain/repository"
	apperrors "github.com/poi-ingest/internal/pkg/errors"
	"github.com/poi-ingest/internal/usecase/dto"
)

// POIUseCase - чтение точек интереса для API
type POIUseCase struct {
	poiRepo   repository.POIQueryRepository
	cacheRepo repository.CacheRepository
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewPOIUseCase создает новый экземпляр POIUseCase. cacheRepo может быть nil.
func NewPOIUseCase(
	poiRepo repository.POIQueryRepository,
	cacheRepo repository.CacheRepository,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *POIUseCase {
	return &POIUseCase{
		poiRepo:   poiRepo,
		cacheRepo: cacheRepo,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// List возвращает страницу точек по фильтрам запроса
func (uc *POIUseCase) List(ctx context.Context, req dto.ListPOIsRequest) (*dto.ListPOIsResponse, error) {
	filter, page, limit, empty := buildFilter(req)

	resp := &dto.ListPOIsResponse{
		POIs:  []dto.POIResponse{},
		Page:  page,
		Limit: limit,
	}
	if empty {
		return resp, nil
	}

	pois, total, err := uc.poiRepo.List(ctx, filter)
	if err != nil {
		uc.logger.Error("Failed to list POIs", zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	resp.Total = total
	for _, p := range pois {
		resp.POIs = append(resp.POIs, dto.NewPOIResponse(p))
	}
	return resp, nil
}

// GetByID возвращает точку по внутреннему ID
func (uc *POIUseCase) GetByID(ctx context.Context, id int64) (*dto.POIResponse, error) {
	poi, err := uc.poiRepo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrPOINotFound) {
		return nil, apperrors.ErrPOINotFound
	}
	if err != nil {
		uc.logger.Error("Failed to get POI", zap.Int64("id", id), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	resp := dto.NewPOIResponse(poi)
	return &resp, nil
}

// Categories возвращает различные категории по алфавиту
func (uc *POIUseCase) Categories(ctx context.Context) (*dto.GroupsResponse, error) {
	return uc.groups(ctx, domain.CacheKeyCategories, uc.poiRepo.Categories)
}

// Sources возвращает различные источники по алфавиту
func (uc *POIUseCase) Sources(ctx context.Context) (*dto.GroupsResponse, error) {
	return uc.groups(ctx, domain.CacheKeySources, uc.poiRepo.Sources)
}

func (uc *POIUseCase) groups(
	ctx context.Context,
	key string,
	load func(ctx context.Context) ([]domain.GroupStats, error),
) (*dto.GroupsResponse, error) {
	if uc.cacheRepo != nil {
		cached, err := uc.cacheRepo.GetGroups(ctx, key)
		if err != nil {
			uc.logger.Warn("Failed to get groups from cache", zap.String("key", key), zap.Error(err))
		} else if cached != nil {
			resp := dto.NewGroupsResponse(cached)
			return &resp, nil
		}
	}

	groups, err := load(ctx)
	if err != nil {
		uc.logger.Error("Failed to load groups", zap.String("key", key), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}

	if uc.cacheRepo != nil {
		if err := uc.cacheRepo.SetGroups(ctx, key, groups, uc.cacheTTL); err != nil {
			uc.logger.Warn("Failed to cache groups", zap.String("key", key), zap.Error(err))
		}
	}

	resp := dto.NewGroupsResponse(groups)
	return &resp, nil
}

// buildFilter переводит параметры запроса в фильтр хранилища.
// empty=true, если результат заведомо пуст (нечисловой id).
func buildFilter(req dto.ListPOIsRequest) (filter domain.POIFilter, page, limit int, empty bool) {
	page = req.Page
	if page < 1 {
		page = 1
	}
	limit = req.Limit
	switch {
	case limit <= 0:
		limit = dto.DefaultPageSize
	case limit > dto.MaxPageSize:
		limit = dto.MaxPageSize
	}

	filter = domain.POIFilter{
		ExternalID: strings.TrimSpace(req.ExternalID),
		Category:   strings.TrimSpace(req.Category),
		Ordering:   req.Ordering,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}

	if raw := strings.TrimSpace(req.ID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, page, limit, true
		}
		filter.ID = &id
	}

	if src := domain.Source(strings.TrimSpace(req.Source)); src.IsValid() {
		filter.Source = src
	}

	filter.MinRating = parseRating(req.MinRating)
	filter.MaxRating = parseRating(req.MaxRating)

	return filter, page, limit, false
}

// parseRating возвращает nil для пустого или нечислового значения
func parseRating(raw string) *decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &d
}
