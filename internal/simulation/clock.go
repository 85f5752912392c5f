package simulation

import (
	"time"
)

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realScheduler struct{}

// NewRealScheduler returns a Scheduler backed by time.AfterFunc.
func NewRealScheduler() Scheduler {
	return realScheduler{}
}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// FrameSource delivers animation frame timestamps.
type FrameSource interface {
	Frames() <-chan time.Time
	Stop()
}

// DefaultFrameInterval is roughly 60 frames per second.
const DefaultFrameInterval = 16 * time.Millisecond

type tickerFrames struct {
	ticker *time.Ticker
}

// NewTickerFrames returns a FrameSource ticking at the given interval.
func NewTickerFrames(interval time.Duration) FrameSource {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &tickerFrames{ticker: time.NewTicker(interval)}
}

func (f *tickerFrames) Frames() <-chan time.Time { return f.ticker.C }

func (f *tickerFrames) Stop() { f.ticker.Stop() }
