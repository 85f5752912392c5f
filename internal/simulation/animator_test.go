package simulation

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/rideplanner/pkg/geo"
	"github.com/richxcame/rideplanner/pkg/models"
)

var twoPoints = []geo.Coordinate{
	geo.NewCoordinate(-6.20, 106.80),
	geo.NewCoordinate(-6.30, 106.80),
}

type chanFrames struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func newChanFrames() *chanFrames {
	return &chanFrames{ch: make(chan time.Time)}
}

func (f *chanFrames) Frames() <-chan time.Time { return f.ch }
func (f *chanFrames) Stop()                    { f.stopped.Store(true) }

// instantFrames delivers a start frame and a frame far past any duration.
type instantFrames struct {
	ch chan time.Time
}

func newInstantFrames() FrameSource {
	ch := make(chan time.Time, 2)
	start := time.Unix(0, 0)
	ch <- start
	ch <- start.Add(24 * time.Hour)
	return &instantFrames{ch: ch}
}

func (f *instantFrames) Frames() <-chan time.Time { return f.ch }
func (f *instantFrames) Stop()                    {}

type tickRecorder struct {
	mu        sync.Mutex
	positions []geo.Coordinate
	dirs      []models.Direction
	completed int
}

func (r *tickRecorder) tick(pos geo.Coordinate, dir models.Direction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = append(r.positions, pos)
	r.dirs = append(r.dirs, dir)
}

func (r *tickRecorder) complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *tickRecorder) ticks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.positions)
}

func (r *tickRecorder) completions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

func TestNewAnimator_InvalidInput(t *testing.T) {
	_, err := NewAnimator(twoPoints[:1], time.Second, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = NewAnimator(twoPoints, 0, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = NewAnimator(nil, time.Second, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestAnimator_BoundariesAndSingleCompletion(t *testing.T) {
	rec := &tickRecorder{}
	anim, err := NewAnimator(twoPoints, 10*time.Second, rec.tick, rec.complete)
	require.NoError(t, err)

	start := time.Unix(100, 0)
	assert.True(t, anim.Step(start))
	assert.True(t, anim.Step(start.Add(5*time.Second)))
	assert.False(t, anim.Step(start.Add(10*time.Second)))
	assert.False(t, anim.Step(start.Add(11*time.Second)))

	require.Equal(t, 3, rec.ticks())
	assert.Equal(t, twoPoints[0], rec.positions[0])
	assert.InDelta(t, -6.25, rec.positions[1].Latitude, 1e-9)
	assert.Equal(t, twoPoints[1], rec.positions[2])
	assert.Equal(t, 1, rec.completions())
	assert.True(t, anim.Done())
}

func TestAnimator_FacingFollowsMovement(t *testing.T) {
	rec := &tickRecorder{}
	anim, err := NewAnimator(twoPoints, time.Second, rec.tick, rec.complete)
	require.NoError(t, err)

	start := time.Unix(0, 0)
	anim.Step(start)
	anim.Step(start.Add(500 * time.Millisecond))

	assert.Equal(t, models.DirectionFront, rec.dirs[0])
	// latitude decreasing
	assert.Equal(t, models.DirectionFront, rec.dirs[1])
}

func TestAnimator_CancelStopsTicksAndCompletion(t *testing.T) {
	rec := &tickRecorder{}
	anim, err := NewAnimator(twoPoints, time.Second, rec.tick, rec.complete)
	require.NoError(t, err)

	start := time.Unix(0, 0)
	anim.Step(start)
	anim.Cancel()
	anim.Cancel()

	assert.False(t, anim.Step(start.Add(2*time.Second)))
	assert.Equal(t, 1, rec.ticks())
	assert.Equal(t, 0, rec.completions())
	assert.True(t, anim.Done())
}

func TestAnimator_CancelAfterCompletionIsSafe(t *testing.T) {
	rec := &tickRecorder{}
	anim, err := NewAnimator(twoPoints, time.Second, rec.tick, rec.complete)
	require.NoError(t, err)

	anim.Step(time.Unix(0, 0))
	anim.Step(time.Unix(5, 0))
	assert.NotPanics(t, anim.Cancel)
	assert.Equal(t, 1, rec.completions())
}

func TestAnimator_StartDrivesFrames(t *testing.T) {
	rec := &tickRecorder{}
	anim, err := NewAnimator(twoPoints, time.Second, rec.tick, rec.complete)
	require.NoError(t, err)

	frames := newChanFrames()
	anim.Start(frames)

	start := time.Unix(0, 0)
	frames.ch <- start
	frames.ch <- start.Add(250 * time.Millisecond)
	frames.ch <- start.Add(time.Second)

	assert.Eventually(t, func() bool { return rec.completions() == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, frames.stopped.Load, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, rec.ticks())
}

func TestAnimator_StartAfterCancelExits(t *testing.T) {
	rec := &tickRecorder{}
	anim, err := NewAnimator(twoPoints, time.Second, rec.tick, rec.complete)
	require.NoError(t, err)

	anim.Cancel()
	frames := newChanFrames()
	anim.Start(frames)

	assert.Eventually(t, frames.stopped.Load, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, rec.ticks())
}

func TestInterpolate(t *testing.T) {
	path := []geo.Coordinate{
		geo.NewCoordinate(0, 0),
		geo.NewCoordinate(0, 10),
		geo.NewCoordinate(10, 10),
	}

	assert.Equal(t, path[0], Interpolate(path, 0))
	assert.Equal(t, path[1], Interpolate(path, 0.5))
	assert.Equal(t, path[2], Interpolate(path, 1))
	assert.Equal(t, geo.NewCoordinate(0, 5), Interpolate(path, 0.25))
	assert.Equal(t, geo.NewCoordinate(5, 10), Interpolate(path, 0.75))
	assert.Equal(t, path[2], Interpolate(path, 3))
	assert.Equal(t, path[0], Interpolate(path, -1))
	assert.Equal(t, path[0], Interpolate(path[:1], 0.4))
	assert.Equal(t, geo.Coordinate{}, Interpolate(nil, 0.4))
}

func TestFacing(t *testing.T) {
	origin := geo.NewCoordinate(0, 0)
	tests := []struct {
		name     string
		cur      geo.Coordinate
		expected models.Direction
	}{
		{"south is front", geo.NewCoordinate(-1, 0.5), models.DirectionFront},
		{"north is back", geo.NewCoordinate(1, -0.5), models.DirectionBack},
		{"east is right", geo.NewCoordinate(0.5, 1), models.DirectionRight},
		{"west is left", geo.NewCoordinate(-0.5, -1), models.DirectionLeft},
		{"diagonal tie is horizontal", geo.NewCoordinate(1, 1), models.DirectionRight},
		{"no movement keeps direction", origin, models.DirectionLeft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Facing(origin, tt.cur, models.DirectionLeft))
		})
	}
}
