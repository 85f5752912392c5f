package models

import (
	"github.com/richxcame/rideplanner/pkg/geo"
)

// Direction is the way a vehicle marker is facing
type Direction string

const (
	DirectionFront Direction = "front"
	DirectionBack  Direction = "back"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Driver represents a simulated nearby driver
type Driver struct {
	ID       string         `json:"id"`
	Type     VehicleClass   `json:"type"`
	Position geo.Coordinate `json:"position"`
	Cell     string         `json:"cell,omitempty"` // H3 cell of Position
}
