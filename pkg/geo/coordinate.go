package geo

import (
	"fmt"
	"math"
)

// metersPerDegree is the equirectangular approximation used for short offsets.
const metersPerDegree = 111111.0

// Coordinate represents a geographic point in latitude/longitude order.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate builds a Coordinate from latitude and longitude.
func NewCoordinate(lat, lng float64) Coordinate {
	return Coordinate{Latitude: lat, Longitude: lng}
}

// IsValid reports whether the coordinate is inside the WGS84 range.
func (c Coordinate) IsValid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Label formats the coordinate as "lat, lon" with five decimals.
// It is the address shown when reverse geocoding has nothing better.
func (c Coordinate) Label() string {
	return fmt.Sprintf("%.5f, %.5f", c.Latitude, c.Longitude)
}

// LonLat returns the coordinate in [lon, lat] order used by GeoJSON services.
func (c Coordinate) LonLat() []float64 {
	return []float64{c.Longitude, c.Latitude}
}

// FromLonLat converts a [lon, lat] pair into a Coordinate.
func FromLonLat(pair []float64) (Coordinate, bool) {
	if len(pair) < 2 {
		return Coordinate{}, false
	}
	return Coordinate{Latitude: pair[1], Longitude: pair[0]}, true
}

// Offset moves the coordinate by distanceMeters along bearing (radians, 0 = north).
// Uses the equirectangular approximation, fine for a few kilometres.
func (c Coordinate) Offset(distanceMeters, bearing float64) Coordinate {
	latOffset := distanceMeters * math.Cos(bearing) / metersPerDegree
	lonOffset := distanceMeters * math.Sin(bearing) / (metersPerDegree * math.Cos(c.Latitude*math.Pi/180))
	return Coordinate{
		Latitude:  c.Latitude + latOffset,
		Longitude: c.Longitude + lonOffset,
	}
}
