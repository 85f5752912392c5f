package eventbus

import (
	"time"
)

// Subjects for ride offer simulation events.
const (
	SubjectOfferWildcard = "offers.>"

	SubjectOfferSearching  = "offers.searching"
	SubjectOfferNoDriver   = "offers.no_driver"
	SubjectDriverAccepted  = "offers.driver.accepted"
	SubjectPickupStarted   = "offers.pickup.started"
	SubjectDriverArrived   = "offers.driver.arrived"
	SubjectJourneyStarted  = "offers.journey.started"
	SubjectJourneyFinished = "offers.journey.finished"
	SubjectOfferCancelled  = "offers.cancelled"
	SubjectOfferFailed     = "offers.failed"
)

// OfferSearchingData is emitted when a rider asks for a driver.
type OfferSearchingData struct {
	OfferID          string    `json:"offer_id"`
	VehicleClass     string    `json:"vehicle_class"`
	PickupLatitude   float64   `json:"pickup_latitude"`
	PickupLongitude  float64   `json:"pickup_longitude"`
	PickupAddress    string    `json:"pickup_address"`
	DropoffLatitude  float64   `json:"dropoff_latitude,omitempty"`
	DropoffLongitude float64   `json:"dropoff_longitude,omitempty"`
	DropoffAddress   string    `json:"dropoff_address,omitempty"`
	NearbyDrivers    int       `json:"nearby_drivers"`
	RequestedAt      time.Time `json:"requested_at"`
}

// DriverAcceptedData is emitted once a driver and its pickup route are known.
type DriverAcceptedData struct {
	OfferID               string    `json:"offer_id"`
	DriverID              string    `json:"driver_id"`
	DriverCell            string    `json:"driver_h3_cell"`
	PickupDistanceKm      float64   `json:"pickup_distance_km"`
	PickupDurationMinutes float64   `json:"pickup_duration_minutes"`
	AcceptedAt            time.Time `json:"accepted_at"`
}

// OfferProgressData is emitted for pickup, arrival and journey transitions.
type OfferProgressData struct {
	OfferID   string    `json:"offer_id"`
	DriverID  string    `json:"driver_id"`
	Phase     string    `json:"phase"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OfferEndedData is emitted when an offer is cancelled, fails, or finds no driver.
type OfferEndedData struct {
	OfferID  string    `json:"offer_id"`
	DriverID string    `json:"driver_id,omitempty"` // empty if not yet assigned
	Phase    string    `json:"phase"`               // phase the offer was in
	Reason   string    `json:"reason"`
	EndedAt  time.Time `json:"ended_at"`
}
