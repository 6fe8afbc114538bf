package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLongitude(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{179.5, 179.5},
		{180, -180},
		{-180, -180},
		{190, -170},
		{-190, 170},
		{540, -180},
		{-725, -5},
	}
	for _, tt := range tests {
		assert.InDeltaf(t, tt.want, NormalizeLongitude(tt.in), 1e-12, "NormalizeLongitude(%v)", tt.in)
	}
}

func TestNearestLongitude(t *testing.T) {
	assert.InDelta(t, 190.0, NearestLongitude(-170, 175), 1e-12)
	assert.InDelta(t, -190.0, NearestLongitude(170, -175), 1e-12)
	assert.InDelta(t, 10.0, NearestLongitude(10, 0), 1e-12)
}

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("52.5, 13.4")
	require.NoError(t, err)
	assert.Equal(t, Location{Latitude: 52.5, Longitude: 13.4}, loc)
	assert.Equal(t, "52.5,13.4", loc.String())

	_, err = ParseLocation("52.5")
	require.Error(t, err)
	_, err = ParseLocation("north,13")
	require.Error(t, err)
}

func TestLocationEqualityIsByValue(t *testing.T) {
	a := Location{Latitude: 1, Longitude: 2}
	b := Location{Latitude: 1, Longitude: 2}
	assert.True(t, a.Equal(b))

	seen := map[Location]bool{a: true}
	assert.True(t, seen[b])
}

func TestBoundingBox(t *testing.T) {
	b := NewBoundingBox(-95, 170, 95, 200)
	assert.Equal(t, -90.0, b.South)
	assert.Equal(t, 90.0, b.North)
	assert.Equal(t, 30.0, b.Width())
	assert.Equal(t, 180.0, b.Height())
	assert.True(t, b.Valid())
	assert.Equal(t, Location{Latitude: 0, Longitude: 185}, b.Center())

	assert.False(t, NewBoundingBox(10, 0, 10, 5).Valid())
	assert.False(t, NewBoundingBox(0, 5, 10, 5).Valid())
}

func TestCenteredBoundingBox(t *testing.T) {
	b := NewCenteredBoundingBox(Location{Latitude: 90}, 1000, 2000)
	assert.Equal(t, 1000.0, b.Width())
	assert.Equal(t, 2000.0, b.Height())
	assert.True(t, b.Valid())
	assert.False(t, NewCenteredBoundingBox(Location{}, 0, 10).Valid())
}
