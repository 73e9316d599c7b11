package domain

import (
	"fmt"
	"math"
	"time"
)

type ShapeKind string

const (
	ShapeCircle  ShapeKind = "circle"
	ShapePolygon ShapeKind = "polygon"
)

// RuleType governs which containment transitions count as violations.
type RuleType string

const (
	// RuleForbidden alerts when a vehicle enters the region.
	RuleForbidden RuleType = "FORBIDDEN"
	// RuleStayIn alerts when a vehicle leaves the region.
	RuleStayIn RuleType = "STAY_IN"
	// RuleStandard alerts on both transitions.
	RuleStandard RuleType = "STANDARD"
)

// Coordinate is a (longitude, latitude) pair, matching the order geofence
// definitions use on the wire.
type Coordinate [2]float64

func (c Coordinate) Lon() float64 { return c[0] }
func (c Coordinate) Lat() float64 { return c[1] }

func (c Coordinate) valid() bool {
	return !math.IsNaN(c[0]) && !math.IsInf(c[0], 0) &&
		!math.IsNaN(c[1]) && !math.IsInf(c[1], 0) &&
		math.Abs(c[1]) <= 90 && math.Abs(c[0]) <= 180
}

// Geofence is a named geographic region with an activation flag and a rule
// type. Circle definitions use Center/RadiusM; polygon definitions use Ring
// (first ring only, holes unsupported).
type Geofence struct {
	GeofenceID string       `json:"geofence_id"`
	Name       string       `json:"name"`
	Kind       ShapeKind    `json:"kind"`
	Rule       RuleType     `json:"rule"`
	Active     bool         `json:"active"`
	Center     Coordinate   `json:"center,omitempty"`
	RadiusM    float64      `json:"radius_m,omitempty"`
	Ring       []Coordinate `json:"ring,omitempty"`
}

// Validate checks the shape definition. A geofence that fails validation is
// unusable and treated as absent by the detector.
func (g *Geofence) Validate() error {
	if g.GeofenceID == "" {
		return fmt.Errorf("geofence: missing geofence_id")
	}

	switch g.Rule {
	case RuleForbidden, RuleStayIn, RuleStandard:
	default:
		return fmt.Errorf("geofence %s: unknown rule type %q", g.GeofenceID, g.Rule)
	}

	switch g.Kind {
	case ShapeCircle:
		if !g.Center.valid() {
			return fmt.Errorf("geofence %s: circle center out of range", g.GeofenceID)
		}
		if math.IsNaN(g.RadiusM) || math.IsInf(g.RadiusM, 0) || g.RadiusM <= 0 {
			return fmt.Errorf("geofence %s: circle radius must be > 0", g.GeofenceID)
		}
	case ShapePolygon:
		if len(g.Ring) < 3 {
			return fmt.Errorf("geofence %s: polygon needs at least 3 vertices, got %d", g.GeofenceID, len(g.Ring))
		}
		for i, v := range g.Ring {
			if !v.valid() {
				return fmt.Errorf("geofence %s: polygon vertex %d out of range", g.GeofenceID, i)
			}
		}
	default:
		return fmt.Errorf("geofence %s: unknown shape kind %q", g.GeofenceID, g.Kind)
	}

	return nil
}

// Usable reports whether the detector may consult this geofence.
func (g *Geofence) Usable() bool {
	return g.Active && g.Validate() == nil
}

// AlertKind classifies a violation alert.
type AlertKind string

const (
	AlertViolationEnter AlertKind = "violation_enter"
	AlertViolationExit  AlertKind = "violation_exit"
	// AlertViolationStayOut is kept for wire compatibility with consumers;
	// the current rule table does not emit it.
	AlertViolationStayOut AlertKind = "violation_stay_out"
)

// GeofenceAlert is immutable once created and handed to the sink exactly once
// per qualifying transition, subject to the cooldown.
type GeofenceAlert struct {
	VehicleID  string    `json:"vehicle_id"`
	GeofenceID string    `json:"geofence_id"`
	Kind       AlertKind `json:"kind"`
	Message    string    `json:"message"`
	Location   string    `json:"location"`
	Timestamp  time.Time `json:"timestamp"`
}
