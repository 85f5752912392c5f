package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/richxcame/rideplanner/internal/routing"
	"github.com/richxcame/rideplanner/pkg/async"
	"github.com/richxcame/rideplanner/pkg/eventbus"
	"github.com/richxcame/rideplanner/pkg/geo"
	"github.com/richxcame/rideplanner/pkg/logger"
	"github.com/richxcame/rideplanner/pkg/models"
	"github.com/richxcame/rideplanner/pkg/tracing"
)

const eventSource = "ride-planner"

// Machine drives a single simulated ride offer from search to drop-off.
//
// State is guarded by mu. Every scheduled callback and animation tick carries
// the generation it was created for and is ignored once the offer moved on.
// Collaborators, listeners and hooks are always called with mu released.
type Machine struct {
	cfg       Config
	routes    routing.RouteSource
	sched     Scheduler
	frames    func() FrameSource
	publisher eventbus.Publisher

	mu        sync.Mutex
	rng       *rand.Rand
	gen       uint64
	state     State
	trip      Trip
	offerCtx  context.Context
	timer     Timer
	animator  *Animator
	trips     TripSource
	listeners []Listener
	onReset   func()
	onError   func(error)
}

// NewMachine creates a new ride offer machine. rng must not be shared with
// other goroutines.
func NewMachine(cfg Config, routes routing.RouteSource, rng *rand.Rand) *Machine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	interval := cfg.FrameInterval
	return &Machine{
		cfg:    cfg,
		routes: routes,
		sched:  NewRealScheduler(),
		frames: func() FrameSource { return NewTickerFrames(interval) },
		rng:    rng,
		state:  State{Phase: PhaseIdle},
	}
}

// SetScheduler replaces the timer implementation.
func (m *Machine) SetScheduler(s Scheduler) {
	m.sched = s
}

// SetFrameSource replaces the animation frame clock factory.
func (m *Machine) SetFrameSource(factory func() FrameSource) {
	m.frames = factory
}

// SetPublisher enables lifecycle event publishing.
func (m *Machine) SetPublisher(p eventbus.Publisher) {
	m.publisher = p
}

// SetTripSource lets the journey phase pick up the route chosen at that moment.
func (m *Machine) SetTripSource(src TripSource) {
	m.mu.Lock()
	m.trips = src
	m.mu.Unlock()
}

// SetOnReset registers the hook run after a finished ride resets the machine.
func (m *Machine) SetOnReset(fn func()) {
	m.mu.Lock()
	m.onReset = fn
	m.mu.Unlock()
}

// SetOnError registers the hook run when an offer fails.
func (m *Machine) SetOnError(fn func(error)) {
	m.mu.Lock()
	m.onError = fn
	m.mu.Unlock()
}

// AddListener registers an observer for state updates.
func (m *Machine) AddListener(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// State returns a snapshot of the current offer.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// ActionLocked reports whether an offer is in progress.
func (m *Machine) ActionLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Phase != PhaseIdle
}

// StartOffer begins searching for a driver for trip. Any previous offer is
// cancelled first.
func (m *Machine) StartOffer(ctx context.Context, trip Trip) error {
	if trip.Departure == nil {
		return ErrNoDeparture
	}
	if len(trip.Route.Coordinates) < 2 {
		return ErrNoPrimaryRoute
	}

	m.abort("superseded")

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.trip = trip
	m.offerCtx = async.CaptureContext(ctx, "ride-offer").NewContext()
	drivers := GenerateDrivers(m.rng, trip.Departure.Coords, trip.Class,
		m.cfg.DriverCount, m.cfg.SearchRadius, m.cfg.MinDriverDistance)
	m.state = State{
		Phase:         PhaseSearching,
		OfferID:       uuid.NewString(),
		NearbyDrivers: drivers,
	}
	delay := m.cfg.scale(m.searchDelayLocked())
	m.timer = m.sched.AfterFunc(delay, func() { m.acceptDriver(gen) })
	snap := m.state.clone()
	offerCtx := m.offerCtx
	m.mu.Unlock()

	recordOutcome("started")
	recordPhase(PhaseSearching)
	logger.WithContext(ctx).Info("ride offer started",
		zap.String("offer_id", snap.OfferID),
		zap.String("vehicle_class", string(trip.Class)),
		zap.Int("nearby_drivers", len(drivers)),
		zap.Duration("search_delay", delay),
	)

	m.emit(EventSearching, snap)
	data := eventbus.OfferSearchingData{
		OfferID:         snap.OfferID,
		VehicleClass:    string(trip.Class),
		PickupLatitude:  trip.Departure.Coords.Latitude,
		PickupLongitude: trip.Departure.Coords.Longitude,
		PickupAddress:   trip.Departure.Name,
		NearbyDrivers:   len(drivers),
		RequestedAt:     time.Now().UTC(),
	}
	if trip.Destination != nil {
		data.DropoffLatitude = trip.Destination.Coords.Latitude
		data.DropoffLongitude = trip.Destination.Coords.Longitude
		data.DropoffAddress = trip.Destination.Name
	}
	m.publish(offerCtx, eventbus.SubjectOfferSearching, data)
	return nil
}

func (m *Machine) searchDelayLocked() time.Duration {
	span := m.cfg.SearchDelayMax - m.cfg.SearchDelayMin
	if span <= 0 {
		return m.cfg.SearchDelayMin
	}
	return m.cfg.SearchDelayMin + time.Duration(m.rng.Float64()*float64(span))
}

// Cancel stops the current offer, if any, and returns to idle.
func (m *Machine) Cancel() error {
	return m.abortIf("cancelled by rider", m.cancelAllowed)
}

// Reset stops the current offer regardless of the cancel policy.
func (m *Machine) Reset() {
	m.abort("reset")
}

func (m *Machine) cancelAllowed(phase Phase) error {
	if phase == PhaseJourneyInProgress && !m.cfg.CancelPolicy.AllowJourneyCancel {
		return ErrCancelNotAllowed
	}
	return nil
}

func (m *Machine) abort(reason string) {
	_ = m.abortIf(reason, nil)
}

// abortIf resets the offer unless allow rejects the phase. allow runs under mu,
// so the phase it sees is the phase being torn down.
func (m *Machine) abortIf(reason string, allow func(Phase) error) error {
	m.mu.Lock()
	if m.state.Phase == PhaseIdle {
		m.mu.Unlock()
		return nil
	}
	if allow != nil {
		if err := allow(m.state.Phase); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	prev := m.resetLocked()
	offerCtx := m.offerCtx
	m.mu.Unlock()

	recordOutcome("cancelled")
	recordPhase(PhaseCancelled)
	logger.WithContext(offerCtx).Info("ride offer cancelled",
		zap.String("offer_id", prev.OfferID),
		zap.String("phase", string(prev.Phase)),
		zap.String("reason", reason),
	)

	m.emit(EventCancelled, State{Phase: PhaseCancelled, OfferID: prev.OfferID})
	m.emit(EventReset, State{Phase: PhaseIdle})
	m.publish(offerCtx, eventbus.SubjectOfferCancelled, endedData(prev, reason))
	return nil
}

// resetLocked clears every offer field and invalidates pending callbacks.
func (m *Machine) resetLocked() State {
	prev := m.state
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.animator != nil {
		m.animator.Cancel()
		m.animator = nil
	}
	m.gen++
	m.state = State{Phase: PhaseIdle}
	return prev
}

func (m *Machine) acceptDriver(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.state.Phase != PhaseSearching {
		m.mu.Unlock()
		return
	}
	m.timer = nil

	if len(m.state.NearbyDrivers) == 0 {
		prev := m.resetLocked()
		offerCtx := m.offerCtx
		m.mu.Unlock()

		recordOutcome("no_driver")
		recordPhase(PhaseNoDriverFound)
		m.emit(EventNoDriverFound, State{Phase: PhaseNoDriverFound, OfferID: prev.OfferID})
		m.emit(EventReset, State{Phase: PhaseIdle})
		m.publish(offerCtx, eventbus.SubjectOfferNoDriver, endedData(prev, "no driver nearby"))
		return
	}

	driver := m.state.NearbyDrivers[m.rng.Intn(len(m.state.NearbyDrivers))]
	trip := m.trip
	offerCtx := m.offerCtx
	offerID := m.state.OfferID
	m.mu.Unlock()

	from := models.LocationInfo{Coords: driver.Position, Name: driver.ID}
	var raw []models.RawRoute
	attrs := []attribute.KeyValue{
		tracing.OfferIDKey.String(offerID),
		tracing.DriverIDKey.String(driver.ID),
		tracing.VehicleClassKey.String(string(trip.Class)),
	}
	err := tracing.TraceBusinessLogic(offerCtx, "simulation", "simulation.PickupRoute", attrs, func(ctx context.Context) error {
		var err error
		raw, err = m.routes.GetRoutes(ctx, from, *trip.Departure, trip.Class, true)
		if err == nil && len(raw) == 0 {
			err = routing.ErrRouteNotFound
		}
		return err
	})

	m.mu.Lock()
	if m.gen != gen || m.state.Phase != PhaseSearching {
		m.mu.Unlock()
		return
	}
	if err != nil {
		prev := m.resetLocked()
		onError := m.onError
		m.mu.Unlock()
		m.fail(offerCtx, prev, driver, err, onError)
		return
	}

	pickup := routing.Normalize(raw[0], trip.Class, false)
	pickup.ID = "pickup-" + driver.ID
	pickup.IsPrimary = true

	pos := driver.Position
	m.state.Phase = PhaseDriverAccepted
	m.state.AcceptingDriver = &driver
	m.state.PickupRoute = &pickup
	m.state.DriverPosition = &pos
	m.state.DriverDirection = models.DirectionFront
	m.timer = m.sched.AfterFunc(m.cfg.scale(m.cfg.SettleDelay), func() { m.startPickup(gen) })
	snap := m.state.clone()
	m.mu.Unlock()

	pickupDistanceKm.Observe(pickup.DistanceKm)
	recordPhase(PhaseDriverAccepted)
	logger.WithContext(offerCtx).Info("driver accepted ride offer",
		zap.String("offer_id", snap.OfferID),
		zap.String("driver_id", driver.ID),
		zap.Float64("pickup_distance_km", pickup.DistanceKm),
		zap.Float64("pickup_duration_minutes", pickup.DurationMinutes),
	)

	m.emit(EventDriverAccepted, snap)
	m.publish(offerCtx, eventbus.SubjectDriverAccepted, eventbus.DriverAcceptedData{
		OfferID:               snap.OfferID,
		DriverID:              driver.ID,
		DriverCell:            driver.Cell,
		PickupDistanceKm:      pickup.DistanceKm,
		PickupDurationMinutes: pickup.DurationMinutes,
		AcceptedAt:            time.Now().UTC(),
	})
}

func (m *Machine) fail(ctx context.Context, prev State, driver models.Driver, cause error, onError func(error)) {
	err := fmt.Errorf("%w: %w", ErrOfferFailed, cause)

	recordOutcome("failed")
	logger.WithContext(ctx).Warn("pickup route failed, offer cancelled",
		zap.String("offer_id", prev.OfferID),
		zap.String("driver_id", driver.ID),
		zap.Error(cause),
	)

	m.emit(EventOfferFailed, State{Phase: PhaseCancelled, OfferID: prev.OfferID})
	m.emit(EventReset, State{Phase: PhaseIdle})
	ended := endedData(prev, cause.Error())
	ended.DriverID = driver.ID
	m.publish(ctx, eventbus.SubjectOfferFailed, ended)

	if onError != nil {
		onError(err)
	}
}

func (m *Machine) startPickup(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.state.Phase != PhaseDriverAccepted {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.state.Phase = PhasePickupEnRoute
	anim, err := m.animateLocked(gen, PhasePickupEnRoute, *m.state.PickupRoute, func() { m.arrive(gen) })
	snap := m.state.clone()
	offerCtx := m.offerCtx
	m.mu.Unlock()

	recordPhase(PhasePickupEnRoute)
	m.emit(EventPickupStarted, snap)
	m.publish(offerCtx, eventbus.SubjectPickupStarted, progressData(snap))

	if err != nil {
		// driver already at the pickup point
		m.arrive(gen)
		return
	}
	anim.Start(m.frames())
}

func (m *Machine) animateLocked(gen uint64, phase Phase, route models.RouteInfo, done func()) (*Animator, error) {
	duration := m.cfg.scale(time.Duration(route.DurationMinutes * float64(time.Minute)))
	anim, err := NewAnimator(route.Coordinates, duration, func(pos geo.Coordinate, dir models.Direction) {
		m.move(gen, phase, pos, dir)
	}, done)
	if err != nil {
		return nil, err
	}
	m.animator = anim
	return anim, nil
}

func (m *Machine) move(gen uint64, phase Phase, pos geo.Coordinate, dir models.Direction) {
	m.mu.Lock()
	if m.gen != gen || m.state.Phase != phase {
		m.mu.Unlock()
		return
	}
	m.state.DriverPosition = &pos
	m.state.DriverDirection = dir
	snap := m.state.clone()
	m.mu.Unlock()

	m.emit(EventDriverMoved, snap)
}

func (m *Machine) arrive(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.state.Phase != PhasePickupEnRoute {
		m.mu.Unlock()
		return
	}
	m.animator = nil
	pos := m.trip.Departure.Coords
	m.state.Phase = PhaseDriverArrived
	m.state.DriverPosition = &pos
	m.state.JourneyMessage = MessageArrived
	m.timer = m.sched.AfterFunc(m.cfg.scale(m.cfg.SettleDelay), func() { m.startJourney(gen) })
	snap := m.state.clone()
	offerCtx := m.offerCtx
	m.mu.Unlock()

	recordPhase(PhaseDriverArrived)
	m.emit(EventDriverArrived, snap)
	m.publish(offerCtx, eventbus.SubjectDriverArrived, progressData(snap))
}

func (m *Machine) startJourney(gen uint64) {
	m.mu.Lock()
	trips := m.trips
	m.mu.Unlock()

	var current models.RouteInfo
	var ok bool
	if trips != nil {
		current, ok = trips.PrimaryRoute()
	}

	m.mu.Lock()
	if m.gen != gen || m.state.Phase != PhaseDriverArrived {
		m.mu.Unlock()
		return
	}
	if !ok {
		current = m.trip.Route
	}
	m.timer = nil
	m.state.Phase = PhaseJourneyInProgress
	m.state.JourneyMessage = MessageJourneyStarted
	anim, err := m.animateLocked(gen, PhaseJourneyInProgress, current, func() { m.finish(gen) })
	snap := m.state.clone()
	offerCtx := m.offerCtx
	m.mu.Unlock()

	recordPhase(PhaseJourneyInProgress)
	m.emit(EventJourneyStarted, snap)
	m.publish(offerCtx, eventbus.SubjectJourneyStarted, progressData(snap))

	if err != nil {
		m.finish(gen)
		return
	}
	anim.Start(m.frames())
}

func (m *Machine) finish(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.state.Phase != PhaseJourneyInProgress {
		m.mu.Unlock()
		return
	}
	m.animator = nil
	var pos geo.Coordinate
	switch {
	case m.trip.Destination != nil:
		pos = m.trip.Destination.Coords
	case m.state.DriverPosition != nil:
		pos = *m.state.DriverPosition
	}
	m.state.Phase = PhaseFinished
	m.state.DriverPosition = &pos
	m.state.JourneyMessage = MessageFinished
	m.timer = m.sched.AfterFunc(m.cfg.scale(m.cfg.SettleDelay), func() { m.complete(gen) })
	snap := m.state.clone()
	offerCtx := m.offerCtx
	m.mu.Unlock()

	recordPhase(PhaseFinished)
	m.emit(EventJourneyFinished, snap)
	m.publish(offerCtx, eventbus.SubjectJourneyFinished, progressData(snap))
}

func (m *Machine) complete(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.state.Phase != PhaseFinished {
		m.mu.Unlock()
		return
	}
	prev := m.resetLocked()
	onReset := m.onReset
	offerCtx := m.offerCtx
	m.mu.Unlock()

	recordOutcome("completed")
	recordPhase(PhaseIdle)
	logger.WithContext(offerCtx).Info("ride offer completed", zap.String("offer_id", prev.OfferID))

	m.emit(EventReset, State{Phase: PhaseIdle})
	if onReset != nil {
		onReset()
	}
}

func (m *Machine) emit(event string, state State) {
	m.mu.Lock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	u := Update{Event: event, State: state}
	for _, l := range listeners {
		l.OnSimulationUpdate(u)
	}
}

func (m *Machine) publish(ctx context.Context, subject string, data interface{}) {
	if m.publisher == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	async.Go(ctx, "publish-offer-event", func(ctx context.Context) {
		event, err := eventbus.NewEvent(subject, eventSource, data)
		if err != nil {
			logger.WarnContext(ctx, "failed to build offer event", zap.String("subject", subject), zap.Error(err))
			return
		}
		if err := m.publisher.Publish(ctx, subject, event); err != nil {
			logger.WarnContext(ctx, "failed to publish offer event", zap.String("subject", subject), zap.Error(err))
		}
	})
}

func endedData(prev State, reason string) eventbus.OfferEndedData {
	data := eventbus.OfferEndedData{
		OfferID: prev.OfferID,
		Phase:   string(prev.Phase),
		Reason:  reason,
		EndedAt: time.Now().UTC(),
	}
	if prev.AcceptingDriver != nil {
		data.DriverID = prev.AcceptingDriver.ID
	}
	return data
}

func progressData(s State) eventbus.OfferProgressData {
	data := eventbus.OfferProgressData{
		OfferID:   s.OfferID,
		Phase:     string(s.Phase),
		Message:   s.JourneyMessage,
		Timestamp: time.Now().UTC(),
	}
	if s.AcceptingDriver != nil {
		data.DriverID = s.AcceptingDriver.ID
	}
	if s.DriverPosition != nil {
		data.Latitude = s.DriverPosition.Latitude
		data.Longitude = s.DriverPosition.Longitude
	}
	return data
}
