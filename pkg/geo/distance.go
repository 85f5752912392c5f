package geo

import "math"

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in kilometres between two
// coordinates. The result is rounded to two decimal places.
func Haversine(a, b Coordinate) float64 {
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180.0
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*math.Pi/180.0)*math.Cos(b.Latitude*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return math.Round(earthRadiusKm*c*100) / 100
}
