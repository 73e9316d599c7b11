package service

import (
	"time"

	"github.com/fleetwatch/tracker/module/core/domain"
)

// StateDeriver classifies a vehicle's liveness from its latest sample and the
// wall clock. The derivation is pure and recomputed on demand; caching the
// result would freeze a time-dependent answer.
type StateDeriver struct {
	// Staleness is the maximum sample age before a vehicle counts as
	// offline.
	Staleness time.Duration
	// SpeedDeadBand is the speed at or below which a vehicle counts as
	// parked. Default 0: any reported movement is "moving".
	SpeedDeadBand float64
}

const DefaultStaleness = 10 * time.Minute

func NewStateDeriver(staleness time.Duration, deadBand float64) *StateDeriver {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	return &StateDeriver{Staleness: staleness, SpeedDeadBand: deadBand}
}

// IsOnline reports whether the sample is recent enough to trust. A sample
// without a timestamp is never online.
func (d *StateDeriver) IsOnline(s *domain.TelemetrySample, now time.Time) bool {
	if s == nil || !s.HasTimestamp() {
		return false
	}
	return now.Sub(s.Timestamp) <= d.Staleness
}

// Activity classifies the vehicle as moving, parked or offline.
func (d *StateDeriver) Activity(s *domain.TelemetrySample, now time.Time) domain.Activity {
	if !d.IsOnline(s, now) {
		return domain.ActivityOffline
	}
	if s.SpeedKmh > d.SpeedDeadBand {
		return domain.ActivityMoving
	}
	return domain.ActivityParked
}
