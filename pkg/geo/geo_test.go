package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinate_Label(t *testing.T) {
	c := NewCoordinate(-6.2087634, 106.845599)
	assert.Equal(t, "-6.20876, 106.84560", c.Label())
}

func TestCoordinate_IsValid(t *testing.T) {
	assert.True(t, NewCoordinate(0, 0).IsValid())
	assert.True(t, NewCoordinate(-90, 180).IsValid())
	assert.False(t, NewCoordinate(91, 0).IsValid())
	assert.False(t, NewCoordinate(0, -181).IsValid())
}

func TestFromLonLat_SwapsOrder(t *testing.T) {
	c, ok := FromLonLat([]float64{106.8, -6.2})
	require.True(t, ok)
	assert.Equal(t, -6.2, c.Latitude)
	assert.Equal(t, 106.8, c.Longitude)
	assert.Equal(t, []float64{106.8, -6.2}, c.LonLat())

	_, ok = FromLonLat([]float64{1})
	assert.False(t, ok)
}

func TestOffset_NorthAndEast(t *testing.T) {
	origin := NewCoordinate(0, 0)

	north := origin.Offset(111111, 0)
	assert.InDelta(t, 1.0, north.Latitude, 1e-9)
	assert.InDelta(t, 0.0, north.Longitude, 1e-9)

	east := origin.Offset(111111, math.Pi/2)
	assert.InDelta(t, 0.0, east.Latitude, 1e-9)
	assert.InDelta(t, 1.0, east.Longitude, 1e-9)
}

func TestOffset_DistanceRoughlyPreserved(t *testing.T) {
	origin := NewCoordinate(-6.2, 106.8)
	moved := origin.Offset(1500, 1.2)
	assert.InDelta(t, 1.5, Haversine(origin, moved), 0.02)
}

func TestHaversine(t *testing.T) {
	jakarta := NewCoordinate(-6.2088, 106.8456)
	bandung := NewCoordinate(-6.9175, 107.6191)
	assert.InDelta(t, 116.0, Haversine(jakarta, bandung), 2.0)
	assert.Equal(t, 0.0, Haversine(jakarta, jakarta))
}

func TestDriverCell(t *testing.T) {
	c := NewCoordinate(-6.2088, 106.8456)
	id := DriverCell(c)
	require.NotEmpty(t, id)

	center, ok := CellCenter(id)
	require.True(t, ok)
	assert.InDelta(t, 0.0, Haversine(c, center), 0.3)

	_, ok = CellCenter("not-a-cell")
	assert.False(t, ok)
}
