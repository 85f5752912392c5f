package simulation

import (
	"time"
)

// CancelPolicy controls which phases a rider may cancel from.
type CancelPolicy struct {
	// AllowJourneyCancel lets the rider abort once the journey has started.
	AllowJourneyCancel bool
}

// Config holds the pacing of the offer simulation.
type Config struct {
	DriverCount       int
	SearchRadius      float64 // meters
	MinDriverDistance float64 // meters
	SearchDelayMin    time.Duration
	SearchDelayMax    time.Duration
	SettleDelay       time.Duration
	FrameInterval     time.Duration
	// TimeScale multiplies every delay and animation duration. 1 is real time.
	TimeScale    float64
	CancelPolicy CancelPolicy
}

// DefaultConfig returns the standard simulation pacing.
func DefaultConfig() Config {
	return Config{
		DriverCount:       4,
		SearchRadius:      1000,
		MinDriverDistance: 500,
		SearchDelayMin:    3 * time.Second,
		SearchDelayMax:    8 * time.Second,
		SettleDelay:       5 * time.Second,
		FrameInterval:     DefaultFrameInterval,
		TimeScale:         1,
		CancelPolicy:      CancelPolicy{AllowJourneyCancel: true},
	}
}

func (c Config) scale(d time.Duration) time.Duration {
	if c.TimeScale <= 0 {
		return d
	}
	return time.Duration(float64(d) * c.TimeScale)
}
