package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poi-ingest/internal/domain"
)

func TestJSONParser_ArrayWithBothCoordinateShapes(t *testing.T) {
	path := writeFile(t, "pois.json", []byte(`[
  {"id": "json_001", "name": "JSON Cafe", "category": "cafe",
   "coordinates": {"latitude": 40.712800, "longitude": -74.006}, "ratings": [4.5, 3.8, 4.2]},
  {"id": "json_002", "name": "JSON Park",
   "coordinates": [51.5074, "-0.1278"], "ratings": "1, 2", "description": "Green"}
]`))

	records, failures := collect(t, NewJSONParser(zap.NewNop()), path)
	require.Empty(t, failures)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "json_001", first.ExternalID)
	assert.Equal(t, domain.SourceJSON, first.Source)
	assert.Equal(t, "40.712800", first.Latitude.StringFixed(6))
	assert.Equal(t, "-74.006000", first.Longitude.StringFixed(6))
	assert.Equal(t, []float64{4.5, 3.8, 4.2}, first.Ratings)

	second := records[1]
	assert.Equal(t, domain.DefaultCategory, second.Category)
	assert.Equal(t, "51.507400", second.Latitude.StringFixed(6))
	assert.Equal(t, "-0.127800", second.Longitude.StringFixed(6))
	assert.Equal(t, []float64{1, 2}, second.Ratings)
	assert.Equal(t, "Green", second.Description)
}

func TestJSONParser_SingleObject(t *testing.T) {
	path := writeFile(t, "poi.json", []byte(`{"id": 42, "name": "Numeric Id", "coordinates": [1, 2]}`))

	records, failures := collect(t, NewJSONParser(zap.NewNop()), path)
	require.Empty(t, failures)
	require.Len(t, records, 1)
	assert.Equal(t, "42", records[0].ExternalID)
	assert.Equal(t, []float64{}, records[0].Ratings)
}

func TestJSONParser_NDJSONFallback(t *testing.T) {
	path := writeFile(t, "pois.ndjson", []byte(
		`{"id": "ndjson_001", "name": "First", "coordinates": [1, 1], "ratings": [4.0, 5.0]}`+"\n"+
			"\n"+
			`{"id": "broken", "name": `+"\n"+
			`["not", "an", "object"]`+"\n"+
			`{"id": "ndjson_002", "name": "Second", "coordinates": {"latitude": 2, "longitude": 2}}`+"\n"))

	records, failures := collect(t, NewJSONParser(zap.NewNop()), path)
	require.Len(t, records, 2)
	assert.Equal(t, "ndjson_001", records[0].ExternalID)
	assert.Equal(t, []float64{4.0, 5.0}, records[0].Ratings)
	assert.Equal(t, "ndjson_002", records[1].ExternalID)

	require.Len(t, failures, 2)
	assert.Equal(t, 3, failures[0].Index)
	assert.Equal(t, 4, failures[1].Index)
	for _, f := range failures {
		assert.ErrorIs(t, f.Err, ErrRecordSkipped)
	}
}

func TestJSONParser_RejectedObjects(t *testing.T) {
	path := writeFile(t, "pois.json", []byte(`[
  {"name": "No Id", "coordinates": [1, 1]},
  {"id": "no-name", "coordinates": [1, 1]},
  {"id": "bad-shape", "name": "String Coords", "coordinates": "1,2"},
  {"id": "short", "name": "One Coord", "coordinates": [1]},
  {"id": "range", "name": "Out Of Range", "coordinates": [95, 1]},
  "just a string",
  {"id": "ok", "name": "Fine", "coordinates": [1, 1]}
]`))

	records, failures := collect(t, NewJSONParser(zap.NewNop()), path)
	require.Len(t, records, 1)
	assert.Equal(t, "ok", records[0].ExternalID)

	require.Len(t, failures, 6)
	for i, f := range failures {
		assert.Equal(t, i, f.Index)
		assert.ErrorIs(t, f.Err, ErrRecordSkipped)
	}
	assert.Contains(t, failures[2].Err.Error(), "invalid coordinates format")
	assert.Contains(t, failures[3].Err.Error(), "invalid coordinates format")
}

func TestJSONParser_NullVersusMissingCoordinates(t *testing.T) {
	path := writeFile(t, "pois.json", []byte(`[
  {"id": "null", "name": "Null Coords", "coordinates": null},
  {"id": "missing", "name": "No Coords"},
  {"id": "overflow", "name": "Overflow", "coordinates": [1e999, 10]}
]`))

	records, failures := collect(t, NewJSONParser(zap.NewNop()), path)
	require.Len(t, records, 1)
	assert.Equal(t, "missing", records[0].ExternalID)
	assert.Equal(t, "0.000000", records[0].Latitude.StringFixed(6))
	assert.Equal(t, "0.000000", records[0].Longitude.StringFixed(6))

	require.Len(t, failures, 2)
	assert.Equal(t, 0, failures[0].Index)
	assert.ErrorIs(t, failures[0].Err, ErrRecordSkipped)
	assert.Contains(t, failures[0].Err.Error(), "invalid coordinates format")
	assert.Equal(t, 2, failures[1].Index)
	assert.ErrorIs(t, failures[1].Err, ErrRecordSkipped)
}

func TestJSONParser_EmptyAndScalar(t *testing.T) {
	p := NewJSONParser(zap.NewNop())

	records, failures := collect(t, p, writeFile(t, "empty.json", []byte("  \n ")))
	assert.Empty(t, records)
	assert.Empty(t, failures)

	records, failures = collect(t, p, writeFile(t, "scalar.json", []byte("42")))
	assert.Empty(t, records)
	assert.Empty(t, failures)
}
