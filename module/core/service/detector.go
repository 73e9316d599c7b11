package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/fleetwatch/tracker/module/core/domain"
	"github.com/fleetwatch/tracker/module/core/geo"
)

// DefaultCooldown is the minimum gap between two emitted alerts of the same
// kind for the same vehicle.
const DefaultCooldown = 5 * time.Minute

// historyKey keys containment state by vehicle and geofence together, so a
// geofence reassignment starts from a clean wasInside=false rather than
// comparing against state computed for the old region.
type historyKey struct {
	VehicleID  string
	GeofenceID string
}

// cooldownKey keys alert suppression by vehicle and alert kind.
type cooldownKey struct {
	VehicleID string
	Kind      domain.AlertKind
}

// ContainmentRecord is the per-(vehicle, geofence) state the detector keeps.
// It lives for the life of the process; cardinality is bounded by fleet size.
type ContainmentRecord struct {
	PrevPosition geo.Point
	Position     geo.Point
	WasInside    bool
	LastChecked  time.Time
}

// ViolationDetector classifies containment transitions into alerts under the
// geofence's rule type. The first observation of a (vehicle, geofence) pair
// only seeds its history: a vehicle already sitting inside a FORBIDDEN zone
// will not alert until a later exit and re-entry. That is an accepted
// boundary behavior.
type ViolationDetector struct {
	mu        sync.Mutex
	history   map[historyKey]*ContainmentRecord
	cooldowns map[cooldownKey]time.Time
	cooldown  time.Duration
}

func NewViolationDetector(cooldown time.Duration) *ViolationDetector {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &ViolationDetector{
		history:   make(map[historyKey]*ContainmentRecord),
		cooldowns: make(map[cooldownKey]time.Time),
		cooldown:  cooldown,
	}
}

// Check advances the containment state machine for one sample against the
// vehicle's assigned geofence and returns the alert to emit, if any. State
// advances even when the alert is suppressed by the cooldown; only emission
// is suppressed. A sample without a valid position never mutates state.
func (d *ViolationDetector) Check(v domain.Vehicle, g domain.Geofence, s *domain.TelemetrySample, now time.Time) *domain.GeofenceAlert {
	if s == nil || !s.HasPosition || !g.Usable() {
		return nil
	}

	pos := geo.Point{Lon: s.Longitude, Lat: s.Latitude}
	isInside := contains(pos, g)

	d.mu.Lock()
	defer d.mu.Unlock()

	key := historyKey{VehicleID: v.VehicleID, GeofenceID: g.GeofenceID}
	rec, ok := d.history[key]
	if !ok {
		// First observation for this pair seeds the history without
		// emitting: a vehicle first seen inside a FORBIDDEN zone alerts
		// only on a later exit and re-entry.
		d.history[key] = &ContainmentRecord{
			Position:    pos,
			WasInside:   isInside,
			LastChecked: now,
		}
		return nil
	}

	wasInside := rec.WasInside
	rec.PrevPosition = rec.Position
	rec.Position = pos
	rec.WasInside = isInside
	rec.LastChecked = now

	kind, ok := classify(g.Rule, wasInside, isInside)
	if !ok {
		return nil
	}

	ck := cooldownKey{VehicleID: v.VehicleID, Kind: kind}
	if last, ok := d.cooldowns[ck]; ok && now.Sub(last) < d.cooldown {
		return nil
	}
	d.cooldowns[ck] = now

	return buildAlert(v, g, kind, pos, now)
}

// classify applies the rule table to a containment transition. Steady states
// never alert.
func classify(rule domain.RuleType, wasInside, isInside bool) (domain.AlertKind, bool) {
	switch {
	case !wasInside && isInside:
		if rule == domain.RuleForbidden || rule == domain.RuleStandard {
			return domain.AlertViolationEnter, true
		}
	case wasInside && !isInside:
		if rule == domain.RuleStayIn || rule == domain.RuleStandard {
			return domain.AlertViolationExit, true
		}
	}
	return "", false
}

func contains(pos geo.Point, g domain.Geofence) bool {
	switch g.Kind {
	case domain.ShapeCircle:
		return geo.CircleContains(pos, geo.Point{Lon: g.Center.Lon(), Lat: g.Center.Lat()}, g.RadiusM)
	case domain.ShapePolygon:
		ring := make([]geo.Point, len(g.Ring))
		for i, v := range g.Ring {
			ring[i] = geo.Point{Lon: v.Lon(), Lat: v.Lat()}
		}
		return geo.PolygonContains(pos, ring)
	}
	return false
}

func buildAlert(v domain.Vehicle, g domain.Geofence, kind domain.AlertKind, pos geo.Point, now time.Time) *domain.GeofenceAlert {
	name := v.Name
	if name == "" {
		name = v.VehicleID
	}
	zone := g.Name
	if zone == "" {
		zone = g.GeofenceID
	}

	var msg string
	switch kind {
	case domain.AlertViolationEnter:
		msg = fmt.Sprintf("%s entered restricted zone %s", name, zone)
	case domain.AlertViolationExit:
		msg = fmt.Sprintf("%s left designated zone %s", name, zone)
	default:
		msg = fmt.Sprintf("%s violated zone %s", name, zone)
	}

	return &domain.GeofenceAlert{
		VehicleID:  v.VehicleID,
		GeofenceID: g.GeofenceID,
		Kind:       kind,
		Message:    msg,
		Location:   fmt.Sprintf("%.6f, %.6f", pos.Lat, pos.Lon),
		Timestamp:  now,
	}
}

// ResetGeofence discards containment history for every vehicle against one
// geofence. Called when an inactive geofence is reactivated, so stale
// containment cannot produce spurious transitions.
func (d *ViolationDetector) ResetGeofence(geofenceID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k := range d.history {
		if k.GeofenceID == geofenceID {
			delete(d.history, k)
		}
	}
}

// ResetVehicle discards all state for a vehicle removed from the roster.
func (d *ViolationDetector) ResetVehicle(vehicleID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k := range d.history {
		if k.VehicleID == vehicleID {
			delete(d.history, k)
		}
	}
	for k := range d.cooldowns {
		if k.VehicleID == vehicleID {
			delete(d.cooldowns, k)
		}
	}
}

// ActiveCooldowns counts suppression windows still open at now, exposed on
// the diagnostics surface.
func (d *ViolationDetector) ActiveCooldowns(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, last := range d.cooldowns {
		if now.Sub(last) < d.cooldown {
			n++
		}
	}
	return n
}
