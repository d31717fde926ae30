package normalize

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCoerceFloat(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		def      float64
		expected float64
		ok       bool
	}{
		{"nil uses default", nil, 1.5, 1.5, false},
		{"int", 3, 0, 3, true},
		{"int64", int64(-7), 0, -7, true},
		{"float", 4.25, 0, 4.25, true},
		{"decimal", decimal.RequireFromString("40.712800"), 0, 40.7128, true},
		{"json number", json.Number("2.5"), 0, 2.5, true},
		{"string with spaces", "  12.5 ", 0, 12.5, true},
		{"empty string", "   ", 9, 9, false},
		{"non numeric string", "abc", 2, 2, false},
		{"nan string", "NaN", 1, 1, false},
		{"infinite float", math.Inf(1), 0, 0, false},
		{"overflowing string", "1e999", 3, 3, false},
		{"inf string", "-inf", 3, 3, false},
		{"unsupported type", []int{1}, 4, 4, false},
		{"bool is unsupported", true, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceFloat(tt.value, tt.def)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestCoerceFloatList(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected []float64
		dropped  int
	}{
		{"nil", nil, []float64{}, 0},
		{"empty string", "", []float64{}, 0},
		{"empty json array", "[]", []float64{}, 0},
		{"empty braces", "{}", []float64{}, 0},
		{"brace array", "{4.5,3.8,4.2}", []float64{4.5, 3.8, 4.2}, 0},
		{"json array", "[1, 2.5, 3]", []float64{1, 2.5, 3}, 0},
		{"json array with strings", `["4", "x", 5]`, []float64{4, 5}, 1},
		{"separated", "1, 3, 4.5", []float64{1, 3, 4.5}, 0},
		{"separated with garbage", "1, good, 4", []float64{1, 4}, 1},
		{"broken brace falls back to split", "{1, 2, x}", []float64{1, 2}, 1},
		{"broken json falls back to split", "[1, 2,]", []float64{1, 2}, 0},
		{"native list", []any{1.0, "2", "bad", json.Number("3")}, []float64{1, 2, 3}, 1},
		{"native float list", []float64{1, 2}, []float64{1, 2}, 0},
		{"native string list", []string{"5", "n/a"}, []float64{5}, 1},
		{"unsupported type", 42, []float64{}, 1},
		{"overflow saturates to bounds", "{1e999,-1e999,nan}", []float64{MaxRating, MinRating}, 1},
		{"json overflow", "[1e999, 4]", []float64{MaxRating, 4}, 0},
		{"native non-finite floats", []float64{math.Inf(1), math.NaN(), 2}, []float64{MaxRating, 2}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dropped := CoerceFloatList(tt.value, DefaultSeparator)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.dropped, dropped)
		})
	}
}

func TestCoerceFloatList_CustomSeparator(t *testing.T) {
	got, dropped := CoerceFloatList("1;2;3", ";")
	assert.Equal(t, []float64{1, 2, 3}, got)
	assert.Zero(t, dropped)
}

func TestClampRating(t *testing.T) {
	tests := []struct {
		value    float64
		expected float64
		clamped  bool
	}{
		{-1, 0, true},
		{0, 0, false},
		{2.5, 2.5, false},
		{5, 5, false},
		{6, 5, true},
		{1000, 5, true},
	}

	for _, tt := range tests {
		got, clamped := ClampRating(tt.value, MinRating, MaxRating)
		assert.Equal(t, tt.expected, got)
		assert.Equal(t, tt.clamped, clamped)
	}
}

func TestComputeAverageRating(t *testing.T) {
	tests := []struct {
		name     string
		ratings  []float64
		expected string
	}{
		{"empty", nil, "0.00"},
		{"single", []float64{4}, "4.00"},
		{"rounded half up", []float64{4.5, 3.8, 4.2}, "4.17"},
		{"clamped before mean", []float64{6.0, -1.0, 3.0, 4.0}, "3.00"},
		{"exact half", []float64{4.125}, "4.13"},
		{"all above range", []float64{10, 7}, "5.00"},
		{"two thirds", []float64{1, 1, 0}, "0.67"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeAverageRating(tt.ratings)
			assert.Equal(t, tt.expected, got.StringFixed(2))
		})
	}
}

func TestComputeAverageRating_WithinRange(t *testing.T) {
	inputs := [][]float64{
		{-100, 100},
		{0.001, 0.002},
		{4.999, 5.001},
		{3.3333, 3.3333, 3.3334},
	}
	lo := decimal.Zero
	hi := decimal.NewFromInt(5)

	for _, ratings := range inputs {
		got := ComputeAverageRating(ratings)
		assert.True(t, got.GreaterThanOrEqual(lo), ratings)
		assert.True(t, got.LessThanOrEqual(hi), ratings)
		assert.LessOrEqual(t, -got.Exponent(), int32(2))
	}
}

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		name   string
		lat    any
		lon    any
		ok     bool
		expLat string
		expLon string
	}{
		{"strings", "40.7128", "-74.0060", true, "40.712800", "-74.006000"},
		{"floats", 51.5074, -0.1278, true, "51.507400", "-0.127800"},
		{"boundaries", 90, -180, true, "90.000000", "-180.000000"},
		{"quantized", "12.12345678", "1.0000005", true, "12.123457", "1.000000"},
		{"latitude out of range", 91, 0, false, "", ""},
		{"longitude out of range", 0, 180.5, false, "", ""},
		{"negative latitude out of range", "-90.1", "10", false, "", ""},
		{"missing values become zero", nil, "", true, "0.000000", "0.000000"},
		{"overflowing latitude", "1e999", "10", false, "", ""},
		{"negative overflowing latitude", "-1e999", "10", false, "", ""},
		{"nan latitude", "nan", "10", false, "", ""},
		{"inf longitude", "10", "inf", false, "", ""},
		{"infinite float longitude", 10.0, math.Inf(-1), false, "", ""},
		{"nan json number", json.Number("NaN"), "1", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon, ok := ParseCoordinates(tt.lat, tt.lon)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.expLat, lat.StringFixed(6))
			assert.Equal(t, tt.expLon, lon.StringFixed(6))
			assert.GreaterOrEqual(t, lat.Exponent(), int32(-6))
			assert.GreaterOrEqual(t, lon.Exponent(), int32(-6))
		})
	}
}

func TestNormalizeString(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		def      string
		expected string
	}{
		{"nil", nil, "Unknown", "Unknown"},
		{"trimmed", "  Cafe  ", "", "Cafe"},
		{"blank uses default", "   ", "Unknown", "Unknown"},
		{"json number", json.Number("123"), "", "123"},
		{"int", 42, "", "42"},
		{"float", 1.5, "", "1.5"},
		{"decimal", decimal.RequireFromString("2.50"), "", "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeString(tt.value, tt.def))
		})
	}
}

func TestTruncate(t *testing.T) {
	s, cut := Truncate("short", 10)
	assert.Equal(t, "short", s)
	assert.False(t, cut)

	long := strings.Repeat("я", 1001)
	s, cut = Truncate(long, 1000)
	assert.True(t, cut)
	assert.Equal(t, 1000, len([]rune(s)))
}
