package usecase_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/domain/repository"
)

// MockPOIStore выполняет fn с переданной MockPOITx
type MockPOIStore struct {
	mock.Mock
	Tx *MockPOITx
}

func (m *MockPOIStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.POITx) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m.Tx)
}

type MockPOITx struct {
	mock.Mock
}

func (m *MockPOITx) FindByExternalIDAndSource(ctx context.Context, externalID string, source domain.Source) (*domain.PointOfInterest, error) {
	args := m.Called(ctx, externalID, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointOfInterest), args.Error(1)
}

func (m *MockPOITx) Insert(ctx context.Context, poi *domain.PointOfInterest) error {
	args := m.Called(ctx, poi)
	return args.Error(0)
}

func (m *MockPOITx) Update(ctx context.Context, id int64, fields domain.POIFields) (*domain.PointOfInterest, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointOfInterest), args.Error(1)
}

type MockPOIQueryRepository struct {
	mock.Mock
}

func (m *MockPOIQueryRepository) List(ctx context.Context, filter domain.POIFilter) ([]*domain.PointOfInterest, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.PointOfInterest), args.Get(1).(int64), args.Error(2)
}

func (m *MockPOIQueryRepository) GetByID(ctx context.Context, id int64) (*domain.PointOfInterest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PointOfInterest), args.Error(1)
}

func (m *MockPOIQueryRepository) Categories(ctx context.Context) ([]domain.GroupStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.GroupStats), args.Error(1)
}

func (m *MockPOIQueryRepository) Sources(ctx context.Context) ([]domain.GroupStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.GroupStats), args.Error(1)
}

type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) GetStatistics(ctx context.Context) (*domain.Statistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Statistics), args.Error(1)
}

type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepository) GetStats(ctx context.Context) (*domain.Statistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Statistics), args.Error(1)
}

func (m *MockCacheRepository) SetStats(ctx context.Context, stats *domain.Statistics, ttl time.Duration) error {
	args := m.Called(ctx, stats, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) GetGroups(ctx context.Context, key string) ([]domain.GroupStats, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.GroupStats), args.Error(1)
}

func (m *MockCacheRepository) SetGroups(ctx context.Context, key string, groups []domain.GroupStats, ttl time.Duration) error {
	args := m.Called(ctx, key, groups, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) InvalidatePOIData(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
