package http_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/poi-ingest/internal/config"
	apihttp "github.com/poi-ingest/internal/delivery/http"
	"github.com/poi-ingest/internal/delivery/http/handler"
	"github.com/poi-ingest/internal/domain"
	"github.com/poi-ingest/internal/repository/sqldb/testhelpers"
	"github.com/poi-ingest/internal/usecase"
	"github.com/poi-ingest/internal/usecase/dto"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  *meta           `json:"meta"`
	Error *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

type meta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

type ServerSuite struct {
	suite.Suite
	server  *apihttp.Server
	cafeA   *domain.PointOfInterest
	museumD *domain.PointOfInterest
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	t := s.T()
	logger := zap.NewNop()
	tdb := testhelpers.NewSQLiteForTest(t)

	s.cafeA = testhelpers.NewPOI("1", domain.SourceCSV, "Cafe A", "Cafe", 4, 5)
	s.museumD = testhelpers.NewPOI("9", domain.SourceXML, "Museum D", "Museum")
	s.museumD.RatingsRaw = domain.Ratings{}
	testhelpers.InsertPOIs(t, testhelpers.NewPOIStoreForTest(tdb),
		s.cafeA,
		testhelpers.NewPOI("2", domain.SourceCSV, "Bar B", "Bar", 3),
		testhelpers.NewPOI("1", domain.SourceJSON, "Cafe C", "Cafe"),
		s.museumD,
	)

	poiUC := usecase.NewPOIUseCase(testhelpers.NewPOIQueryRepositoryForTest(tdb), nil, time.Minute, logger)
	statsUC := usecase.NewStatsUseCase(testhelpers.NewStatsRepositoryForTest(tdb), nil, time.Minute, logger)

	s.server = apihttp.NewServer(
		&config.Config{},
		logger,
		handler.NewHealthHandler(map[string]handler.HealthChecker{"database": tdb.DB}, logger),
		handler.NewPOIHandler(poiUC, logger),
		handler.NewStatsHandler(statsUC, logger),
	)
}

func (s *ServerSuite) do(method, target string) (int, []byte) {
	resp, err := s.server.App().Test(httptest.NewRequest(method, target, nil), -1)
	s.Require().NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, body
}

func (s *ServerSuite) get(target string, wantStatus int) envelope {
	status, body := s.do("GET", target)
	s.Require().Equal(wantStatus, status, string(body))

	var env envelope
	s.Require().NoError(json.Unmarshal(body, &env))
	return env
}

func (s *ServerSuite) list(target string) ([]dto.POIResponse, *meta) {
	env := s.get(target, 200)
	var pois []dto.POIResponse
	s.Require().NoError(json.Unmarshal(env.Data, &pois))
	return pois, env.Meta
}

func names(pois []dto.POIResponse) []string {
	out := make([]string, len(pois))
	for i, p := range pois {
		out[i] = p.Name
	}
	return out
}

func (s *ServerSuite) TestHealth() {
	status, body := s.do("GET", "/api/v1/health")
	s.Equal(200, status)
	s.Contains(string(body), `"status":"healthy"`)
	s.Contains(string(body), `"database":"ok"`)
}

func (s *ServerSuite) TestListDefaults() {
	pois, m := s.list("/api/v1/pois")
	s.Equal([]string{"Bar B", "Cafe A", "Cafe C", "Museum D"}, names(pois))
	s.Require().NotNil(m)
	s.Equal(int64(4), m.Total)
	s.Equal(1, m.Page)
	s.Equal(dto.DefaultPageSize, m.Limit)
	s.Equal(int64(1), m.Pages)
}

func (s *ServerSuite) TestListFiltersAndOrdering() {
	pois, _ := s.list("/api/v1/pois?source=csv&ordering=-avg_rating")
	s.Equal([]string{"Cafe A", "Bar B"}, names(pois))

	pois, _ = s.list("/api/v1/pois?category=Cafe&ordering=-name")
	s.Equal([]string{"Cafe C", "Cafe A"}, names(pois))

	pois, _ = s.list("/api/v1/pois?min_rating=4")
	s.Equal([]string{"Cafe A"}, names(pois))

	pois, _ = s.list("/api/v1/pois?external_id=1")
	s.Equal([]string{"Cafe A", "Cafe C"}, names(pois))
}

func (s *ServerSuite) TestListIgnoresInvalidFilters() {
	pois, _ := s.list("/api/v1/pois?source=yaml")
	s.Len(pois, 4)

	pois, _ = s.list("/api/v1/pois?min_rating=high&max_rating=")
	s.Len(pois, 4)

	pois, m := s.list("/api/v1/pois?id=abc")
	s.Empty(pois)
	s.Equal(int64(0), m.Total)

	pois, _ = s.list("/api/v1/pois?id=" + strconv.FormatInt(s.cafeA.ID, 10))
	s.Equal([]string{"Cafe A"}, names(pois))
}

func (s *ServerSuite) TestListPagination() {
	pois, m := s.list("/api/v1/pois?limit=3&page=2")
	s.Equal([]string{"Museum D"}, names(pois))
	s.Equal(int64(2), m.Pages)
	s.Equal(2, m.Page)

	_, m = s.list("/api/v1/pois?limit=500")
	s.Equal(dto.MaxPageSize, m.Limit)

	env := s.get("/api/v1/pois?page=-1", 400)
	s.Require().NotNil(env.Error)
	s.Equal("VALIDATION_FAILED", env.Error.Code)
	s.Contains(env.Error.Details, "page")

	env = s.get("/api/v1/pois?page=abc", 400)
	s.Equal("INVALID_REQUEST", env.Error.Code)
}

func (s *ServerSuite) TestGetByID() {
	env := s.get("/api/v1/pois/"+strconv.FormatInt(s.cafeA.ID, 10), 200)
	var poi dto.POIResponse
	s.Require().NoError(json.Unmarshal(env.Data, &poi))
	s.Equal("Cafe A", poi.Name)
	s.Equal("csv", poi.Source)
	s.Equal("4.50", poi.AvgRating)
	s.Equal(2, poi.RatingCount)
	s.True(poi.HasRatings)
	s.Equal("41.390000", poi.Coordinates.Latitude)
	s.Equal("2.170000", poi.Coordinates.Longitude)

	env = s.get("/api/v1/pois/"+strconv.FormatInt(s.museumD.ID, 10), 200)
	s.Require().NoError(json.Unmarshal(env.Data, &poi))
	s.False(poi.HasRatings)
	s.Equal(0, poi.RatingCount)

	env = s.get("/api/v1/pois/999999", 404)
	s.Equal("POI_NOT_FOUND", env.Error.Code)

	env = s.get("/api/v1/pois/abc", 400)
	s.Equal("INVALID_POI_ID", env.Error.Code)
}

func (s *ServerSuite) TestCategoriesAndSources() {
	env := s.get("/api/v1/pois/categories", 200)
	var groups dto.GroupsResponse
	s.Require().NoError(json.Unmarshal(env.Data, &groups))
	s.Equal(3, groups.Count)
	s.Require().Len(groups.Items, 3)
	s.Equal("Bar", groups.Items[0].Value)
	s.Equal("Cafe", groups.Items[1].Value)
	s.Equal(int64(2), groups.Items[1].Count)
	s.Equal("Museum", groups.Items[2].Value)

	env = s.get("/api/v1/pois/sources", 200)
	s.Require().NoError(json.Unmarshal(env.Data, &groups))
	s.Require().Len(groups.Items, 3)
	s.Equal("csv", groups.Items[0].Value)
	s.Equal("json", groups.Items[1].Value)
	s.Equal("xml", groups.Items[2].Value)
}

func (s *ServerSuite) TestStats() {
	env := s.get("/api/v1/stats", 200)
	var stats dto.StatsResponse
	s.Require().NoError(json.Unmarshal(env.Data, &stats))
	s.Equal(int64(4), stats.TotalStatistics.TotalPOIs)
	s.Equal(int64(2), stats.TotalStatistics.WithRatings)
	s.Require().NotNil(stats.TotalStatistics.MaxRating)
	s.Equal("4.50", *stats.TotalStatistics.MaxRating)
	s.Require().NotEmpty(stats.ByCategory)
	s.Equal("Cafe", stats.ByCategory[0].Value)
	s.Len(stats.BySource, 3)

	status, _ := s.do("POST", "/api/v1/stats/refresh")
	s.Equal(200, status)
}

func (s *ServerSuite) TestMetricsAndUnknownRoute() {
	env := s.get("/api/v1/unknown", 404)
	s.Require().NotNil(env.Error)

	status, body := s.do("GET", "/metrics")
	s.Equal(200, status)
	s.Contains(string(body), "go_goroutines")
}

func TestServer_HealthWithoutChecks(t *testing.T) {
	tdb := testhelpers.NewSQLiteForTest(t)
	logger := zap.NewNop()
	server := apihttp.NewServer(
		&config.Config{},
		logger,
		handler.NewHealthHandler(nil, logger),
		handler.NewPOIHandler(usecase.NewPOIUseCase(testhelpers.NewPOIQueryRepositoryForTest(tdb), nil, time.Minute, logger), logger),
		handler.NewStatsHandler(usecase.NewStatsUseCase(testhelpers.NewStatsRepositoryForTest(tdb), nil, time.Minute, logger), logger),
	)

	resp, err := server.App().Test(httptest.NewRequest("GET", "/api/v1/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
