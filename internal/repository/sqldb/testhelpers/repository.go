package testhelpers

import (
	"github.com/poi-ingest/internal/domain/repository"
	"github.com/poi-ingest/internal/repository/sqldb"
)

// NewPOIStoreForTest creates a transactional POI store over the test database
func NewPOIStoreForTest(tdb *TestDB) repository.POIStore {
	return sqldb.NewPOIStore(tdb.DB)
}

// NewPOIQueryRepositoryForTest creates a read repository over the test database
func NewPOIQueryRepositoryForTest(tdb *TestDB) repository.POIQueryRepository {
	return sqldb.NewPOIQueryRepository(tdb.DB)
}

// NewStatsRepositoryForTest creates a stats repository over the test database
func NewStatsRepositoryForTest(tdb *TestDB) repository.StatsRepository {
	return sqldb.NewStatsRepository(tdb.DB, tdb.Logger)
}
