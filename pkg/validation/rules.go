package validation

import (
	"github.com/richxcame/rideplanner/pkg/geo"
	"github.com/richxcame/rideplanner/pkg/models"
)

// Trip point kinds accepted in URL paths
const (
	PointDeparture   = "departure"
	PointDestination = "destination"
)

// MaxAddressLength bounds typed address text
const MaxAddressLength = 200

// CoordinateRequest is a map position sent by the client
type CoordinateRequest struct {
	Latitude  float64 `json:"latitude" form:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" form:"longitude" validate:"longitude"`
}

// Coordinate converts the request into a geo.Coordinate
func (r CoordinateRequest) Coordinate() geo.Coordinate {
	return geo.NewCoordinate(r.Latitude, r.Longitude)
}

// VehicleClassRequest selects the vehicle class
type VehicleClassRequest struct {
	VehicleClass string `json:"vehicle_class" validate:"required,vehicle_class"`
}

// Class returns the typed vehicle class
func (r VehicleClassRequest) Class() models.VehicleClass {
	return models.VehicleClass(r.VehicleClass)
}

// TollsRequest toggles toll roads; a pointer so an explicit false is distinguishable from absence
type TollsRequest struct {
	IncludeTolls *bool `json:"include_tolls" validate:"required"`
}

// AddressRequest carries typed address text
type AddressRequest struct {
	Text string `json:"text" validate:"max=200"`
}

// PointKindRequest validates the departure/destination path segment
type PointKindRequest struct {
	Kind string `validate:"required,point_kind"`
}

// GeocodeRequest is a forward geocoding query
type GeocodeRequest struct {
	Text           string   `form:"text" validate:"required,max=200"`
	FocusLatitude  *float64 `form:"focus_lat" validate:"omitempty,latitude"`
	FocusLongitude *float64 `form:"focus_lon" validate:"omitempty,longitude"`
}

// Focus returns the focus point when both coordinates are present
func (r GeocodeRequest) Focus() *geo.Coordinate {
	if r.FocusLatitude == nil || r.FocusLongitude == nil {
		return nil
	}
	focus := geo.NewCoordinate(*r.FocusLatitude, *r.FocusLongitude)
	return &focus
}

// RouteRequest asks the routing collaborator directly for raw routes
type RouteRequest struct {
	Start        CoordinateRequest `json:"start"`
	End          CoordinateRequest `json:"end"`
	VehicleClass string            `json:"vehicle_class" validate:"required,vehicle_class"`
	AvoidTolls   bool              `json:"avoid_tolls"`
}
