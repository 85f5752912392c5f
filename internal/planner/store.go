package planner

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/richxcame/rideplanner/internal/routing"
	"github.com/richxcame/rideplanner/internal/simulation"
	"github.com/richxcame/rideplanner/pkg/geo"
	"github.com/richxcame/rideplanner/pkg/logger"
	"github.com/richxcame/rideplanner/pkg/models"
	"github.com/richxcame/rideplanner/pkg/tracing"
	"github.com/richxcame/rideplanner/pkg/validation"
)

const tracerName = "planner"

// Geocoder resolves addresses and names coordinates.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, c geo.Coordinate) string
	ForwardGeocode(ctx context.Context, text string, focus *geo.Coordinate) (*models.LocationInfo, error)
}

// RouteSelector produces the routes offered for a trip.
type RouteSelector interface {
	SelectRoutes(ctx context.Context, start, end models.LocationInfo, class models.VehicleClass, includeTolls bool) ([]models.RouteInfo, error)
}

// OfferMachine runs simulated ride offers.
type OfferMachine interface {
	StartOffer(ctx context.Context, trip simulation.Trip) error
	Cancel() error
	Reset()
	State() simulation.State
	ActionLocked() bool
}

// Trip is the rider's current plan.
type Trip struct {
	UserLocation       *models.LocationInfo `json:"user_location,omitempty"`
	Departure          *models.LocationInfo `json:"departure,omitempty"`
	Destination        *models.LocationInfo `json:"destination,omitempty"`
	DepartureAddress   string               `json:"departure_address"`
	DestinationAddress string               `json:"destination_address"`
	VehicleClass       models.VehicleClass  `json:"vehicle_class"`
	IncludeTolls       bool                 `json:"include_tolls"`
	Routes             []models.RouteInfo   `json:"routes"`
	RouteLoading       bool                 `json:"route_loading"`
	Error              string               `json:"error,omitempty"`
}

func (t Trip) clone() Trip {
	out := t
	out.UserLocation = cloneLocation(t.UserLocation)
	out.Departure = cloneLocation(t.Departure)
	out.Destination = cloneLocation(t.Destination)
	out.Routes = make([]models.RouteInfo, len(t.Routes))
	copy(out.Routes, t.Routes)
	return out
}

func cloneLocation(l *models.LocationInfo) *models.LocationInfo {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

// Snapshot is everything a client needs to render the planner.
type Snapshot struct {
	Trip         Trip             `json:"trip"`
	Offer        simulation.State `json:"offer"`
	ActionLocked bool             `json:"action_locked"`
}

// Store owns the planner state. Every exported method is one user action.
//
// mu guards the trip only. Collaborators and the offer machine are always
// called with mu released.
type Store struct {
	geocoder Geocoder
	selector RouteSelector
	offers   OfferMachine

	mu       sync.Mutex
	trip     Trip
	fetchSeq uint64
	notify   func(Snapshot)
}

// NewStore creates a planner store with the default trip settings.
func NewStore(geocoder Geocoder, selector RouteSelector, offers OfferMachine) *Store {
	return &Store{
		geocoder: geocoder,
		selector: selector,
		offers:   offers,
		trip: Trip{
			VehicleClass: models.VehicleMotorbike,
			IncludeTolls: true,
			Routes:       []models.RouteInfo{},
		},
	}
}

// SetNotifier registers a callback run after every trip change.
func (s *Store) SetNotifier(fn func(Snapshot)) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// Snapshot returns the current planner state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	trip := s.trip.clone()
	s.mu.Unlock()

	offer := s.offers.State()
	return Snapshot{Trip: trip, Offer: offer, ActionLocked: offer.ActionLocked}
}

// ActionLocked reports whether trip changes are currently refused.
func (s *Store) ActionLocked() bool {
	return s.offers.ActionLocked()
}

// PrimaryRoute returns the route currently marked as primary.
func (s *Store) PrimaryRoute() (models.RouteInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.PrimaryRoute(s.trip.Routes)
}

// InitializeLocation records the rider's live position and uses it as departure.
func (s *Store) InitializeLocation(ctx context.Context, c geo.Coordinate) error {
	if s.offers.ActionLocked() {
		return ErrActionLocked
	}

	loc := models.LocationInfo{Coords: c, Name: s.geocoder.ReverseGeocode(ctx, c)}

	s.update(func(t *Trip) {
		t.UserLocation = cloneLocation(&loc)
		t.Departure = cloneLocation(&loc)
		t.DepartureAddress = loc.Name
		t.Error = ""
	})
	return nil
}

// LocationUnavailable records that the device could not provide a position.
func (s *Store) LocationUnavailable() error {
	if s.offers.ActionLocked() {
		return ErrActionLocked
	}

	s.update(func(t *Trip) {
		t.UserLocation = nil
		t.Departure = nil
		t.DepartureAddress = ""
		t.Error = UserMessage(ErrNoLocation)
	})
	return nil
}

// SetVehicleClass changes the vehicle class and drops the current routes.
func (s *Store) SetVehicleClass(class models.VehicleClass) error {
	if err := s.beginTripChange(); err != nil {
		return err
	}

	s.update(func(t *Trip) {
		t.VehicleClass = class
		t.Routes = []models.RouteInfo{}
		t.Error = ""
	})
	return nil
}

// SetIncludeTolls changes the toll preference and drops the current routes.
func (s *Store) SetIncludeTolls(include bool) error {
	if err := s.beginTripChange(); err != nil {
		return err
	}

	s.update(func(t *Trip) {
		t.IncludeTolls = include
		t.Routes = []models.RouteInfo{}
		t.Error = ""
	})
	return nil
}

// SetDepartureText stores typed departure text; it is resolved on the next route fetch.
func (s *Store) SetDepartureText(text string) error {
	if err := s.beginTripChange(); err != nil {
		return err
	}

	s.update(func(t *Trip) {
		t.DepartureAddress = text
		t.Routes = []models.RouteInfo{}
	})
	return nil
}

// SetDestinationText stores typed destination text; it is resolved on the next route fetch.
func (s *Store) SetDestinationText(text string) error {
	if err := s.beginTripChange(); err != nil {
		return err
	}

	s.update(func(t *Trip) {
		t.DestinationAddress = text
		t.Routes = []models.RouteInfo{}
	})
	return nil
}

// SetPoint places the departure or destination at a map position.
func (s *Store) SetPoint(ctx context.Context, kind string, c geo.Coordinate) error {
	if err := s.beginTripChange(); err != nil {
		return err
	}

	loc := models.LocationInfo{Coords: c, Name: s.geocoder.ReverseGeocode(ctx, c)}

	s.update(func(t *Trip) {
		if kind == validation.PointDestination {
			t.Destination = cloneLocation(&loc)
			t.DestinationAddress = loc.Name
		} else {
			t.Departure = cloneLocation(&loc)
			t.DepartureAddress = loc.Name
		}
		t.Routes = []models.RouteInfo{}
		t.Error = ""
	})
	return nil
}

// FetchRoutes resolves both addresses and loads the routes for the trip.
// When fetches overlap, only the most recently started one updates the state.
// Failures are stored as the user-facing error and also returned.
func (s *Store) FetchRoutes(ctx context.Context) ([]models.RouteInfo, error) {
	if err := s.beginTripChange(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	trip := s.trip.clone()
	if trip.DepartureAddress == "" || trip.DestinationAddress == "" {
		s.trip.Error = UserMessage(ErrTripIncomplete)
		snap, notify := s.snapshotLocked()
		s.mu.Unlock()
		s.emit(notify, snap)
		return nil, ErrTripIncomplete
	}
	s.fetchSeq++
	seq := s.fetchSeq
	s.trip.RouteLoading = true
	s.trip.Error = ""
	s.trip.Routes = []models.RouteInfo{}
	snap, notify := s.snapshotLocked()
	s.mu.Unlock()
	s.emit(notify, snap)

	var routes []models.RouteInfo
	err := tracing.TraceBusinessLogic(ctx, tracerName, "planner.FetchRoutes",
		append(tracing.RouteAttributes(string(trip.VehicleClass), !trip.IncludeTolls), tracing.IncludeTollsKey.Bool(trip.IncludeTolls)),
		func(ctx context.Context) error {
			var err error
			routes, err = s.loadRoutes(ctx, seq, trip)
			return err
		})

	s.mu.Lock()
	if seq != s.fetchSeq {
		s.mu.Unlock()
		logger.WithContext(ctx).Debug("discarding superseded route fetch", zap.Uint64("seq", seq))
		return routes, err
	}
	s.trip.RouteLoading = false
	if err != nil {
		s.trip.Routes = []models.RouteInfo{}
		s.trip.Error = UserMessage(err)
	} else {
		s.trip.Routes = routes
	}
	snap, notify = s.snapshotLocked()
	s.mu.Unlock()
	s.emit(notify, snap)

	if err != nil {
		logger.WithContext(ctx).Info("route fetch failed",
			zap.String("vehicle_class", string(trip.VehicleClass)),
			zap.Error(err),
		)
		return nil, err
	}
	return routes, nil
}

func (s *Store) loadRoutes(ctx context.Context, seq uint64, trip Trip) ([]models.RouteInfo, error) {
	var focus *geo.Coordinate
	if trip.UserLocation != nil {
		c := trip.UserLocation.Coords
		focus = &c
	}

	start, err := s.resolve(ctx, trip.Departure, trip.DepartureAddress, focus)
	if err != nil {
		return nil, err
	}
	end, err := s.resolve(ctx, trip.Destination, trip.DestinationAddress, focus)
	if err != nil {
		return nil, err
	}
	if start == nil || end == nil {
		return nil, routing.ErrLocationNotFound
	}

	s.mu.Lock()
	if seq == s.fetchSeq {
		s.trip.Departure = start
		s.trip.DepartureAddress = start.Name
		s.trip.Destination = end
		s.trip.DestinationAddress = end.Name
	}
	s.mu.Unlock()

	routes, err := s.selector.SelectRoutes(ctx, *start, *end, trip.VehicleClass, trip.IncludeTolls)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		return nil, routing.ErrRouteNotFound
	}
	return routes, nil
}

// resolve reuses a point whose name still matches the address text, so map
// picks and the live location are not geocoded a second time.
func (s *Store) resolve(ctx context.Context, point *models.LocationInfo, text string, focus *geo.Coordinate) (*models.LocationInfo, error) {
	if point != nil && point.Name == text {
		return cloneLocation(point), nil
	}
	return s.geocoder.ForwardGeocode(ctx, text, focus)
}

// ActivateRoute makes the route with id the primary one. Unknown ids are ignored.
// Allowed during an offer: the journey drives whichever route is primary when it starts.
func (s *Store) ActivateRoute(id string) []models.RouteInfo {
	s.mu.Lock()
	s.trip.Routes = routing.Activate(s.trip.Routes, id)
	routes := make([]models.RouteInfo, len(s.trip.Routes))
	copy(routes, s.trip.Routes)
	snap, notify := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(notify, snap)
	return routes
}

// StartOffer asks the simulation for a driver for the current trip.
func (s *Store) StartOffer(ctx context.Context) error {
	if s.offers.ActionLocked() {
		return ErrActionLocked
	}

	s.mu.Lock()
	trip := simulation.Trip{
		Departure:   cloneLocation(s.trip.Departure),
		Destination: cloneLocation(s.trip.Destination),
		Class:       s.trip.VehicleClass,
	}
	primary, ok := models.PrimaryRoute(s.trip.Routes)
	s.trip.Error = ""
	s.mu.Unlock()

	if !ok {
		return simulation.ErrNoPrimaryRoute
	}
	trip.Route = primary

	attrs := []attribute.KeyValue{tracing.VehicleClassKey.String(string(trip.Class))}
	return tracing.TraceBusinessLogic(ctx, tracerName, "planner.StartOffer", attrs, func(ctx context.Context) error {
		if err := s.offers.StartOffer(ctx, trip); err != nil {
			return err
		}
		trace.SpanFromContext(ctx).SetAttributes(tracing.OfferIDKey.String(s.offers.State().OfferID))
		return nil
	})
}

// CancelOffer stops the running offer, if any.
func (s *Store) CancelOffer() error {
	return s.offers.Cancel()
}

// ResetApplication cancels any offer and restores the initial trip.
func (s *Store) ResetApplication() {
	s.offers.Reset()
	s.OnReset()
}

// OnReset clears destination and routes and puts the departure back on the
// rider's live location. The simulation calls it after a finished ride.
func (s *Store) OnReset() {
	s.update(func(t *Trip) {
		t.Routes = []models.RouteInfo{}
		t.Destination = nil
		t.DestinationAddress = ""
		t.Departure = cloneLocation(t.UserLocation)
		if t.UserLocation != nil {
			t.DepartureAddress = t.UserLocation.Name
		} else {
			t.DepartureAddress = ""
		}
		t.Error = ""
	})
}

// OnOfferError records a failed offer as the user-facing error.
func (s *Store) OnOfferError(err error) {
	s.update(func(t *Trip) {
		t.Error = UserMessage(err)
	})
}

// ClearError dismisses the current error.
func (s *Store) ClearError() {
	s.update(func(t *Trip) {
		t.Error = ""
	})
}

// beginTripChange refuses trip changes while an offer is running.
func (s *Store) beginTripChange() error {
	if s.offers.ActionLocked() {
		return ErrActionLocked
	}
	return nil
}

func (s *Store) update(fn func(t *Trip)) {
	s.mu.Lock()
	fn(&s.trip)
	snap, notify := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(notify, snap)
}

func (s *Store) snapshotLocked() (Trip, func(Snapshot)) {
	return s.trip.clone(), s.notify
}

func (s *Store) emit(notify func(Snapshot), trip Trip) {
	if notify == nil {
		return
	}
	offer := s.offers.State()
	notify(Snapshot{Trip: trip, Offer: offer, ActionLocked: offer.ActionLocked})
}
