package service

import (
	"sync"

	"github.com/fleetwatch/tracker/module/core/domain"
)

// GeofenceRegistry holds validated geofence definitions. Updates are rare
// relative to telemetry volume, so a reader-preference lock is enough.
//
// An invalid update never evicts a previously valid definition: the update is
// rejected with the validation error and the prior copy stays served.
type GeofenceRegistry struct {
	mu        sync.RWMutex
	geofences map[string]domain.Geofence
}

func NewGeofenceRegistry() *GeofenceRegistry {
	return &GeofenceRegistry{
		geofences: make(map[string]domain.Geofence),
	}
}

// Upsert validates and stores a geofence. The reactivated result is true when
// the stored definition went from inactive to active, which the detector must
// treat as a fresh assignment.
func (r *GeofenceRegistry) Upsert(g domain.Geofence) (reactivated bool, err error) {
	if err := g.Validate(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	prev, existed := r.geofences[g.GeofenceID]
	r.geofences[g.GeofenceID] = g
	return existed && !prev.Active && g.Active, nil
}

func (r *GeofenceRegistry) Remove(geofenceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.geofences, geofenceID)
}

// Replace swaps the registry for a snapshot load. Definitions that fail
// validation are skipped rather than stored. It returns the ids that came
// back active after having been inactive.
func (r *GeofenceRegistry) Replace(geofences []domain.Geofence) (reactivated []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]domain.Geofence, len(geofences))
	for _, g := range geofences {
		if g.Validate() != nil {
			continue
		}
		if prev, ok := r.geofences[g.GeofenceID]; ok && !prev.Active && g.Active {
			reactivated = append(reactivated, g.GeofenceID)
		}
		next[g.GeofenceID] = g
	}
	r.geofences = next
	return reactivated
}

// Get returns a usable geofence: known, valid and active. Anything else is
// reported as absent.
func (r *GeofenceRegistry) Get(geofenceID string) (domain.Geofence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.geofences[geofenceID]
	if !ok || !g.Usable() {
		return domain.Geofence{}, false
	}
	return g, true
}

// All returns every stored definition, active or not, for the management
// surface.
func (r *GeofenceRegistry) All() []domain.Geofence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Geofence, 0, len(r.geofences))
	for _, g := range r.geofences {
		out = append(out, g)
	}
	return out
}
