package simulation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/richxcame/rideplanner/pkg/geo"
	"github.com/richxcame/rideplanner/pkg/models"
)

func TestGenerateDrivers_WithinRing(t *testing.T) {
	origin := geo.NewCoordinate(-6.2, 106.8)
	rng := rand.New(rand.NewSource(42))

	drivers := GenerateDrivers(rng, origin, models.VehicleCar, 50, 1000, 500)

	assert.Len(t, drivers, 50)
	ids := map[string]bool{}
	for _, d := range drivers {
		km := geo.Haversine(origin, d.Position)
		assert.GreaterOrEqual(t, km, 0.49)
		assert.LessOrEqual(t, km, 1.51)
		assert.Equal(t, models.VehicleCar, d.Type)
		assert.NotEmpty(t, d.Cell)
		assert.False(t, ids[d.ID], "duplicate driver id")
		ids[d.ID] = true
	}
}

func TestGenerateDrivers_SeededPositionsRepeat(t *testing.T) {
	origin := geo.NewCoordinate(-6.2, 106.8)

	a := GenerateDrivers(rand.New(rand.NewSource(7)), origin, models.VehicleTruck, 4, 1000, 500)
	b := GenerateDrivers(rand.New(rand.NewSource(7)), origin, models.VehicleTruck, 4, 1000, 500)

	for i := range a {
		assert.Equal(t, a[i].Position, b[i].Position)
		assert.Equal(t, a[i].Cell, b[i].Cell)
	}
}

func TestGenerateDrivers_Zero(t *testing.T) {
	drivers := GenerateDrivers(rand.New(rand.NewSource(1)), geo.Coordinate{}, models.VehicleCar, 0, 1000, 500)
	assert.Empty(t, drivers)
}
