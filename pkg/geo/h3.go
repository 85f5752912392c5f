package geo

import (
	"github.com/uber/h3-go/v4"
)

// H3ResolutionDrivers is used to bucket nearby drivers (~175m edge, ~0.11 km²).
const H3ResolutionDrivers = 9

// Cell returns the H3 cell of the coordinate at the given resolution.
// Invalid input yields the zero cell.
func Cell(c Coordinate, resolution int) h3.Cell {
	cell, err := h3.LatLngToCell(h3.NewLatLng(c.Latitude, c.Longitude), resolution)
	if err != nil {
		return 0
	}
	return cell
}

// DriverCell returns the hex cell id used to group drivers around a pickup point.
func DriverCell(c Coordinate) string {
	cell := Cell(c, H3ResolutionDrivers)
	if cell == 0 {
		return ""
	}
	return cell.String()
}

// CellCenter returns the center coordinate of a hex cell id.
func CellCenter(id string) (Coordinate, bool) {
	cell := h3.Cell(h3.IndexFromString(id))
	if !cell.IsValid() {
		return Coordinate{}, false
	}
	latLng, err := cell.LatLng()
	if err != nil {
		return Coordinate{}, false
	}
	return Coordinate{Latitude: latLng.Lat, Longitude: latLng.Lng}, true
}
