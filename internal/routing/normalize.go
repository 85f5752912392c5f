package routing

import (
	"github.com/twpayne/go-polyline"

	"github.com/richxcame/rideplanner/pkg/geo"
	"github.com/richxcame/rideplanner/pkg/models"
)

// MinSpeedKmh is the floor applied to every adjusted average speed.
const MinSpeedKmh = 5.0

// speedAdjustment returns the km/h delta applied to the service speed.
func speedAdjustment(class models.VehicleClass, hasToll bool) float64 {
	switch class {
	case models.VehicleMotorbike:
		return 17
	case models.VehicleCar:
		if hasToll {
			return 15
		}
		return -30
	case models.VehicleTruck:
		if hasToll {
			return 10
		}
		return -15
	}
	return 0
}

// Normalize converts a raw service route into a RouteInfo for the vehicle class.
// ID and IsPrimary are left for the caller to assign.
func Normalize(raw models.RawRoute, class models.VehicleClass, hasToll bool) models.RouteInfo {
	distanceKm := raw.Summary.DistanceMeters / 1000
	if distanceKm < 0 {
		distanceKm = 0
	}

	var rawSpeed float64
	if distanceKm > 0 && raw.Summary.DurationSeconds > 0 {
		rawSpeed = distanceKm / (raw.Summary.DurationSeconds / 3600)
	}

	speed := rawSpeed + speedAdjustment(class, hasToll)
	if speed < MinSpeedKmh {
		speed = MinSpeedKmh
	}

	return models.RouteInfo{
		Coordinates:     DecodeGeometry(raw.Geometry),
		DistanceKm:      distanceKm,
		DurationMinutes: distanceKm / speed * 60,
		HasToll:         hasToll,
		AverageSpeedKmh: speed,
	}
}

// DecodeGeometry decodes an encoded polyline with 1e5 precision.
// Decoding stops at the first malformed coordinate and keeps the valid prefix.
func DecodeGeometry(encoded string) []geo.Coordinate {
	buf := []byte(encoded)
	coords := make([]geo.Coordinate, 0, len(buf)/4)

	var lat, lng float64
	for len(buf) > 0 {
		delta, rest, err := polyline.DecodeCoord(buf)
		if err != nil || len(delta) < 2 {
			break
		}
		lat += delta[0]
		lng += delta[1]
		coords = append(coords, geo.NewCoordinate(lat, lng))
		buf = rest
	}
	return coords
}
