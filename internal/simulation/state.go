package simulation

import (
	"errors"

	"github.com/richxcame/rideplanner/pkg/geo"
	"github.com/richxcame/rideplanner/pkg/models"
)

// Phase is the current step of a ride offer.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseSearching         Phase = "searching"
	PhaseNoDriverFound     Phase = "no_driver_found"
	PhaseDriverAccepted    Phase = "driver_accepted"
	PhasePickupEnRoute     Phase = "pickup_en_route"
	PhaseDriverArrived     Phase = "driver_arrived"
	PhaseJourneyInProgress Phase = "journey_in_progress"
	PhaseFinished          Phase = "finished"
	PhaseCancelled         Phase = "cancelled"
)

// Messages shown to the rider while the driver is with them.
const (
	MessageArrived        = "Knock, knock! I'm here"
	MessageJourneyStarted = "Okay, let's start this journey"
	MessageFinished       = "I'm finished, thank you"
)

var (
	// ErrOfferFailed is reported when the pickup route could not be computed.
	ErrOfferFailed = errors.New("offer failed")
	// ErrNoDeparture is returned when an offer is requested without a departure point.
	ErrNoDeparture = errors.New("departure point is not set")
	// ErrNoPrimaryRoute is returned when an offer is requested without a drivable primary route.
	ErrNoPrimaryRoute = errors.New("no primary route to drive")
	// ErrCancelNotAllowed is returned when the cancel policy forbids cancelling in the current phase.
	ErrCancelNotAllowed = errors.New("offer cannot be cancelled in this phase")
)

// Trip is what a ride offer is made for.
type Trip struct {
	Departure   *models.LocationInfo
	Destination *models.LocationInfo
	Class       models.VehicleClass
	Route       models.RouteInfo
}

// TripSource exposes the route currently chosen by the rider.
type TripSource interface {
	PrimaryRoute() (models.RouteInfo, bool)
}

// State is a snapshot of the ride offer.
type State struct {
	Phase           Phase             `json:"phase"`
	OfferID         string            `json:"offer_id,omitempty"`
	NearbyDrivers   []models.Driver   `json:"nearby_drivers"`
	AcceptingDriver *models.Driver    `json:"accepting_driver,omitempty"`
	PickupRoute     *models.RouteInfo `json:"pickup_route,omitempty"`
	DriverPosition  *geo.Coordinate   `json:"driver_position,omitempty"`
	DriverDirection models.Direction  `json:"driver_direction,omitempty"`
	JourneyMessage  string            `json:"journey_message,omitempty"`
	ActionLocked    bool              `json:"action_locked"`
}

func (s State) clone() State {
	out := s
	if s.NearbyDrivers != nil {
		out.NearbyDrivers = make([]models.Driver, len(s.NearbyDrivers))
		copy(out.NearbyDrivers, s.NearbyDrivers)
	}
	if s.AcceptingDriver != nil {
		d := *s.AcceptingDriver
		out.AcceptingDriver = &d
	}
	if s.PickupRoute != nil {
		r := *s.PickupRoute
		out.PickupRoute = &r
	}
	if s.DriverPosition != nil {
		p := *s.DriverPosition
		out.DriverPosition = &p
	}
	out.ActionLocked = s.Phase != PhaseIdle
	return out
}

// Event names carried by updates.
const (
	EventSearching       = "searching"
	EventNoDriverFound   = "no_driver_found"
	EventDriverAccepted  = "driver_accepted"
	EventPickupStarted   = "pickup_started"
	EventDriverMoved     = "driver_moved"
	EventDriverArrived   = "driver_arrived"
	EventJourneyStarted  = "journey_started"
	EventJourneyFinished = "journey_finished"
	EventReset           = "reset"
	EventCancelled       = "cancelled"
	EventOfferFailed     = "offer_failed"
)

// Update is delivered to listeners after every state change.
type Update struct {
	Event string `json:"event"`
	State State  `json:"state"`
}

// Listener observes ride offer updates. Calls are made without internal locks held.
type Listener interface {
	OnSimulationUpdate(u Update)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(u Update)

// OnSimulationUpdate implements Listener
func (f ListenerFunc) OnSimulationUpdate(u Update) { f(u) }
