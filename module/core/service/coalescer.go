package service

import (
	"sync"

	"github.com/fleetwatch/tracker/module/core/domain"
)

// TelemetryCoalescer folds an unordered, possibly duplicated stream of
// samples into the single latest-by-timestamp sample per device key.
// Applying the same sample twice, or an older sample after a newer one,
// leaves the stored value unchanged.
type TelemetryCoalescer struct {
	mu     sync.RWMutex
	latest map[string]*domain.TelemetrySample
}

func NewTelemetryCoalescer() *TelemetryCoalescer {
	return &TelemetryCoalescer{
		latest: make(map[string]*domain.TelemetrySample),
	}
}

// Apply merges one sample and reports whether it became the stored latest.
// Untimestamped samples fill an empty slot only; they never replace a
// timestamped one.
func (c *TelemetryCoalescer) Apply(s *domain.TelemetrySample) bool {
	key := s.Key()
	if key == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.latest[key]
	if !ok {
		c.latest[key] = s
		return true
	}

	if !s.HasTimestamp() {
		if cur.HasTimestamp() {
			return false
		}
		c.latest[key] = s
		return true
	}

	if cur.HasTimestamp() && !s.Timestamp.After(cur.Timestamp) {
		return false
	}

	c.latest[key] = s
	return true
}

// Latest returns the stored sample for a device key, or nil.
func (c *TelemetryCoalescer) Latest(key string) *domain.TelemetrySample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest[key]
}

// Forget drops the stored sample for a key, used when a vehicle leaves the
// roster.
func (c *TelemetryCoalescer) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.latest, key)
}

// Len reports how many device keys currently hold a sample.
func (c *TelemetryCoalescer) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.latest)
}
