package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBBoxValidate(t *testing.T) {
	require.NoError(t, BBox{MinLat: 40.5, MinLng: -74.3, MaxLat: 40.9, MaxLng: -73.7}.Validate())

	err := BBox{MinLat: 41, MinLng: -74, MaxLat: 40, MaxLng: -73}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	var ipe *InvalidParameterError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, "min_lat", ipe.Param)

	assert.ErrorIs(t, BBox{MinLat: -91, MaxLat: 0}.Validate(), ErrInvalidParameter)
}

func TestFilterMatch(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	e := Event{
		Kind:      KindServiceRequest,
		Timestamp: ts,
		Category:  CategoryOverflow,
		Region:    RegionBronx,
		ZoneID:    "BX-01",
		Location:  &Geo{Lat: 40.81, Lng: -73.92},
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"zero filter", Filter{}, true},
		{"from inclusive", Filter{From: ts}, true},
		{"to exclusive", Filter{To: ts}, false},
		{"kind mismatch", Filter{Kind: KindCollection}, false},
		{"region match", Filter{Region: RegionBronx}, true},
		{"category mismatch", Filter{Category: "illegal_dumping"}, false},
		{"zone match", Filter{ZoneID: "BX-01"}, true},
		{"inside bounds", Filter{Bounds: &BBox{MinLat: 40.8, MinLng: -74, MaxLat: 40.9, MaxLng: -73.9}}, true},
		{"outside bounds", Filter{Bounds: &BBox{MinLat: 40.5, MinLng: -74, MaxLat: 40.6, MaxLng: -73.9}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(e))
		})
	}

	noLoc := e
	noLoc.Location = nil
	assert.False(t, Filter{Bounds: &BBox{MaxLat: 90, MaxLng: 180, MinLat: -90, MinLng: -180}}.Match(noLoc))
}

func TestRequirePositive(t *testing.T) {
	require.NoError(t, RequirePositive("horizon_days", 7))
	assert.ErrorIs(t, RequirePositive("horizon_days", 0), ErrInvalidParameter)
	assert.ErrorIs(t, RequirePositive("grid_size", -0.01), ErrInvalidParameter)
	assert.ErrorIs(t, RequirePositive("radius_meters", math.NaN()), ErrInvalidParameter)
	assert.ErrorIs(t, RequirePositive("radius_meters", math.Inf(1)), ErrInvalidParameter)
}

func TestValidateCoordinate(t *testing.T) {
	require.NoError(t, ValidateCoordinate(40.7, -73.9))
	require.NoError(t, ValidateCoordinate(-90, 180))
	for name, c := range map[string][2]float64{
		"lat out of range": {90.5, 0},
		"lng out of range": {0, -180.5},
		"nan lat":          {math.NaN(), 0},
		"nan lng":          {0, math.NaN()},
		"inf lat":          {math.Inf(-1), 0},
	} {
		assert.ErrorIs(t, ValidateCoordinate(c[0], c[1]), ErrInvalidParameter, name)
	}
}
