package simulation

import (
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/richxcame/rideplanner/pkg/geo"
	"github.com/richxcame/rideplanner/pkg/models"
)

// GenerateDrivers places count drivers around origin with uniform areal density.
// Each driver sits between minDistance and minDistance+radius meters away.
func GenerateDrivers(rng *rand.Rand, origin geo.Coordinate, class models.VehicleClass, count int, radius, minDistance float64) []models.Driver {
	drivers := make([]models.Driver, 0, count)
	for i := 0; i < count; i++ {
		distance := math.Sqrt(rng.Float64())*radius + minDistance
		bearing := rng.Float64() * 2 * math.Pi
		pos := origin.Offset(distance, bearing)

		drivers = append(drivers, models.Driver{
			ID:       "driver-" + uuid.NewString()[:8],
			Type:     class,
			Position: pos,
			Cell:     geo.DriverCell(pos),
		})
	}
	return drivers
}
