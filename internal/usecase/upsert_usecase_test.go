package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/usecase"
)

func testRecord() domain.POIRecord {
	return domain.POIRecord{
		ExternalID:  "poi_001",
		Source:      domain.SourceCSV,
		Name:        "Cafe",
		Latitude:    decimal.RequireFromString("40.712800"),
		Longitude:   decimal.RequireFromString("-74.006000"),
		Category:    "restaurant",
		Ratings:     []float64{4.5, 3.8, 4.2},
		Description: "Nice place",
	}
}

func TestUpsertUseCase_Upsert(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("creates when not found", func(t *testing.T) {
		tx := &MockPOITx{}
		uc := usecase.NewUpsertUseCase(&MockPOIStore{Tx: tx}, logger)
		rec := testRecord()

		tx.On("FindByExternalIDAndSource", ctx, "poi_001", domain.SourceCSV).
			Return(nil, domain.ErrPOINotFound)
		tx.On("Insert", ctx, mock.MatchedBy(func(p *domain.PointOfInterest) bool {
			return p.ExternalID == "poi_001" && p.Source == domain.SourceCSV &&
				p.AvgRating.StringFixed(2) == "4.17" &&
				len(p.RatingsRaw) == 3 && p.Category == "restaurant"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.PointOfInterest).ID = 7
		}).Return(nil)

		poi, created, err := uc.Upsert(ctx, tx, rec)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, int64(7), poi.ID)
		assert.Equal(t, "Nice place", poi.Description)
		tx.AssertExpectations(t)
	})

	t.Run("updates every mutable field when found", func(t *testing.T) {
		tx := &MockPOITx{}
		uc := usecase.NewUpsertUseCase(&MockPOIStore{Tx: tx}, logger)
		rec := testRecord()
		rec.Ratings = []float64{5, 0, 3, 4}

		existing := &domain.PointOfInterest{ID: 3, ExternalID: "poi_001", Source: domain.SourceCSV, Name: "Old"}
		tx.On("FindByExternalIDAndSource", ctx, "poi_001", domain.SourceCSV).Return(existing, nil)
		tx.On("Update", ctx, int64(3), mock.MatchedBy(func(f domain.POIFields) bool {
			return f.Name == "Cafe" && f.AvgRating.StringFixed(2) == "3.00" &&
				f.Description == "Nice place" && len(f.RatingsRaw) == 4
		})).Return(&domain.PointOfInterest{ID: 3, Name: "Cafe"}, nil)

		poi, created, err := uc.Upsert(ctx, tx, rec)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "Cafe", poi.Name)
		tx.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		tx.AssertExpectations(t)
	})

	t.Run("duplicate insert falls back to update", func(t *testing.T) {
		tx := &MockPOITx{}
		uc := usecase.NewUpsertUseCase(&MockPOIStore{Tx: tx}, logger)
		rec := testRecord()

		tx.On("FindByExternalIDAndSource", ctx, "poi_001", domain.SourceCSV).
			Return(nil, domain.ErrPOINotFound).Once()
		tx.On("Insert", ctx, mock.Anything).Return(domain.ErrDuplicateKey)
		tx.On("FindByExternalIDAndSource", ctx, "poi_001", domain.SourceCSV).
			Return(&domain.PointOfInterest{ID: 9}, nil).Once()
		tx.On("Update", ctx, int64(9), mock.Anything).
			Return(&domain.PointOfInterest{ID: 9, Name: "Cafe"}, nil)

		poi, created, err := uc.Upsert(ctx, tx, rec)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, int64(9), poi.ID)
		tx.AssertExpectations(t)
	})

	t.Run("nil ratings stay nil with zero average", func(t *testing.T) {
		tx := &MockPOITx{}
		uc := usecase.NewUpsertUseCase(&MockPOIStore{Tx: tx}, logger)
		rec := testRecord()
		rec.Ratings = nil

		tx.On("FindByExternalIDAndSource", ctx, "poi_001", domain.SourceCSV).
			Return(nil, domain.ErrPOINotFound)
		tx.On("Insert", ctx, mock.MatchedBy(func(p *domain.PointOfInterest) bool {
			return p.RatingsRaw == nil && p.AvgRating.StringFixed(2) == "0.00"
		})).Return(nil)

		_, created, err := uc.Upsert(ctx, tx, rec)
		require.NoError(t, err)
		assert.True(t, created)
		tx.AssertExpectations(t)
	})

	t.Run("lookup error is returned", func(t *testing.T) {
		tx := &MockPOITx{}
		uc := usecase.NewUpsertUseCase(&MockPOIStore{Tx: tx}, logger)
		boom := errors.New("connection reset")

		tx.On("FindByExternalIDAndSource", ctx, "poi_001", domain.SourceCSV).Return(nil, boom)

		poi, _, err := uc.Upsert(ctx, tx, testRecord())
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, poi)
	})

	t.Run("insert error is returned", func(t *testing.T) {
		tx := &MockPOITx{}
		uc := usecase.NewUpsertUseCase(&MockPOIStore{Tx: tx}, logger)
		boom := errors.New("check constraint")

		tx.On("FindByExternalIDAndSource", ctx, "poi_001", domain.SourceCSV).
			Return(nil, domain.ErrPOINotFound)
		tx.On("Insert", ctx, mock.Anything).Return(boom)

		_, _, err := uc.Upsert(ctx, tx, testRecord())
		assert.ErrorIs(t, err, boom)
	})
}

func TestUpsertUseCase_UpsertOne(t *testing.T) {
	ctx := context.Background()
	tx := &MockPOITx{}
	store := &MockPOIStore{Tx: tx}
	uc := usecase.NewUpsertUseCase(store, zap.NewNop())

	store.On("WithinTx", ctx).Return(nil)
	tx.On("FindByExternalIDAndSource", ctx, "poi_001", domain.SourceCSV).
		Return(nil, domain.ErrPOINotFound)
	tx.On("Insert", ctx, mock.Anything).Return(nil)

	poi, created, err := uc.UpsertOne(ctx, testRecord())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Cafe", poi.Name)
	store.AssertExpectations(t)

	failing := &MockPOIStore{Tx: tx}
	failing.On("WithinTx", ctx).Return(errors.New("begin tx: database is closed"))
	_, _, err = usecase.NewUpsertUseCase(failing, zap.NewNop()).UpsertOne(ctx, testRecord())
	assert.Error(t, err)
}
