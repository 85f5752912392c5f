package simulation

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/richxcame/rideplanner/pkg/geo"
	"github.com/richxcame/rideplanner/pkg/models"
)

// ErrInvalidPath is returned when an animation has fewer than two points or no duration.
var ErrInvalidPath = errors.New("animation needs at least two coordinates and a positive duration")

const (
	animRunning int32 = iota
	animCompleted
	animCancelled
)

// TickFunc receives the interpolated position and facing direction on every frame.
type TickFunc func(pos geo.Coordinate, dir models.Direction)

// Animator moves a position along a path over a fixed duration.
type Animator struct {
	path       []geo.Coordinate
	duration   time.Duration
	onTick     TickFunc
	onComplete func()

	state    atomic.Int32
	stop     chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	startedAt time.Time
	last      geo.Coordinate
	direction models.Direction
}

// NewAnimator prepares an animation over path. Nothing moves until frames are fed
// through Start or Step.
func NewAnimator(path []geo.Coordinate, duration time.Duration, onTick TickFunc, onComplete func()) (*Animator, error) {
	if len(path) < 2 || duration <= 0 {
		return nil, ErrInvalidPath
	}
	if onTick == nil {
		onTick = func(geo.Coordinate, models.Direction) {}
	}
	if onComplete == nil {
		onComplete = func() {}
	}

	p := make([]geo.Coordinate, len(path))
	copy(p, path)

	return &Animator{
		path:       p,
		duration:   duration,
		onTick:     onTick,
		onComplete: onComplete,
		stop:       make(chan struct{}),
		last:       p[0],
		direction:  models.DirectionFront,
	}, nil
}

// Start consumes frames in a goroutine until the animation completes or is cancelled.
// The frame source is stopped when the loop exits.
func (a *Animator) Start(frames FrameSource) {
	go func() {
		defer frames.Stop()
		for {
			select {
			case <-a.stop:
				return
			case now, ok := <-frames.Frames():
				if !ok || !a.Step(now) {
					return
				}
			}
		}
	}()
}

// Step advances the animation to the frame time now. It reports whether more
// frames are needed.
func (a *Animator) Step(now time.Time) bool {
	if a.state.Load() != animRunning {
		return false
	}

	a.mu.Lock()
	if a.startedAt.IsZero() {
		a.startedAt = now
	}
	progress := float64(now.Sub(a.startedAt)) / float64(a.duration)
	progress = math.Max(0, math.Min(1, progress))

	pos := Interpolate(a.path, progress)
	a.direction = Facing(a.last, pos, a.direction)
	a.last = pos
	dir := a.direction
	a.mu.Unlock()

	if a.state.Load() != animRunning {
		return false
	}
	a.onTick(pos, dir)

	if progress < 1 {
		return true
	}
	if a.state.CompareAndSwap(animRunning, animCompleted) {
		a.halt()
		a.onComplete()
	}
	return false
}

// Cancel stops the animation. Safe to call repeatedly and after completion;
// onComplete is never called after Cancel returns. A tick already running on
// another goroutine is not waited for, so onTick may observe one last frame
// after Cancel returns. Callers that need a hard stop must drop ticks they no
// longer expect; Cancel is called with the caller's locks held, so blocking
// here on an in-flight onTick would deadlock against them.
func (a *Animator) Cancel() {
	if a.state.CompareAndSwap(animRunning, animCancelled) {
		a.halt()
	}
}

// Done reports whether the animation completed or was cancelled.
func (a *Animator) Done() bool {
	return a.state.Load() != animRunning
}

func (a *Animator) halt() {
	a.stopOnce.Do(func() { close(a.stop) })
}

// Interpolate returns the point at progress (0..1) along path, interpolating
// linearly between the two nearest vertices in lat/lon space.
func Interpolate(path []geo.Coordinate, progress float64) geo.Coordinate {
	switch len(path) {
	case 0:
		return geo.Coordinate{}
	case 1:
		return path[0]
	}

	progress = math.Max(0, math.Min(1, progress))
	exact := progress * float64(len(path)-1)
	lo := int(math.Floor(exact))
	hi := int(math.Ceil(exact))
	if lo == hi {
		return path[lo]
	}

	frac := exact - float64(lo)
	from, to := path[lo], path[hi]
	return geo.Coordinate{
		Latitude:  from.Latitude + (to.Latitude-from.Latitude)*frac,
		Longitude: from.Longitude + (to.Longitude-from.Longitude)*frac,
	}
}

// Facing derives the marker direction from the last movement.
// A vehicle that did not move keeps its current direction.
func Facing(prev, cur geo.Coordinate, current models.Direction) models.Direction {
	dLat := cur.Latitude - prev.Latitude
	dLon := cur.Longitude - prev.Longitude
	if dLat == 0 && dLon == 0 {
		return current
	}
	if math.Abs(dLat) > math.Abs(dLon) {
		if dLat < 0 {
			return models.DirectionFront
		}
		return models.DirectionBack
	}
	if dLon > 0 {
		return models.DirectionRight
	}
	return models.DirectionLeft
}
