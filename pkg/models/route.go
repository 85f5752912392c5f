package models

import (
	"github.com/richxcame/rideplanner/pkg/geo"
)

// VehicleClass represents the kind of vehicle a trip is planned for
type VehicleClass string

const (
	VehicleMotorbike VehicleClass = "motorbike"
	VehicleCar       VehicleClass = "car"
	VehicleTruck     VehicleClass = "truck"
)

// IsValid reports whether the class is one of the known vehicle classes
func (v VehicleClass) IsValid() bool {
	switch v {
	case VehicleMotorbike, VehicleCar, VehicleTruck:
		return true
	}
	return false
}

// TollEligible reports whether toll roads may be offered to this class
func (v VehicleClass) TollEligible() bool {
	return v == VehicleCar || v == VehicleTruck
}

// LocationInfo is a geocoded point with a human readable name
type LocationInfo struct {
	Coords geo.Coordinate `json:"coords"`
	Name   string         `json:"name"`
}

// RawRoute is a single candidate as returned by a routing service
type RawRoute struct {
	Summary  RouteSummary   `json:"summary"`
	Geometry string         `json:"geometry"`
	Segments []RouteSegment `json:"segments,omitempty"`
}

// RouteSummary carries the service totals for a raw route
type RouteSummary struct {
	DistanceMeters  float64 `json:"distance"`
	DurationSeconds float64 `json:"duration"`
}

// RouteSegment groups the navigation steps of a raw route
type RouteSegment struct {
	Steps []RouteStep `json:"steps,omitempty"`
}

// RouteStep is a single navigation step; Toll is set when the step uses a tollway
type RouteStep struct {
	Toll bool `json:"toll,omitempty"`
}

// UsesTollway reports whether any step of the route is flagged as a toll road
func (r RawRoute) UsesTollway() bool {
	for _, seg := range r.Segments {
		for _, step := range seg.Steps {
			if step.Toll {
				return true
			}
		}
	}
	return false
}

// RouteInfo is a normalized route ready for display and animation
type RouteInfo struct {
	ID              string           `json:"id"`
	Coordinates     []geo.Coordinate `json:"coordinates"`
	DistanceKm      float64          `json:"distance_km"`
	DurationMinutes float64          `json:"duration_minutes"`
	IsPrimary       bool             `json:"is_primary"`
	HasToll         bool             `json:"has_toll"`
	AverageSpeedKmh float64          `json:"average_speed_kmh"`
}

// PrimaryRoute returns the primary route of the list, if any
func PrimaryRoute(routes []RouteInfo) (RouteInfo, bool) {
	for _, r := range routes {
		if r.IsPrimary {
			return r, true
		}
	}
	return RouteInfo{}, false
}
