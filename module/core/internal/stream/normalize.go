package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetwatch/tracker/module/core/domain"
)

// wireFrame is the raw push message shape: a collection name, an event kind
// and an opaque payload decoded per collection.
type wireFrame struct {
	Type       string          `json:"type,omitempty"`
	Collection string          `json:"collection"`
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`
}

// normalize turns a push frame into the same shape a REST snapshot produces.
// The backend replays existing records with an "init" kind at subscribe
// time; those are plain upserts here.
func normalize(frame wireFrame, now time.Time) (domain.ChangeEvent, error) {
	var kind domain.EventKind
	switch frame.Event {
	case "create":
		kind = domain.EventCreate
	case "update", "init":
		kind = domain.EventUpdate
	case "delete":
		kind = domain.EventDelete
	default:
		return domain.ChangeEvent{}, fmt.Errorf("frame with unknown event kind %q dropped", frame.Event)
	}

	ev := domain.ChangeEvent{Kind: kind}

	switch domain.Collection(frame.Collection) {
	case domain.CollectionVehicles:
		ev.Collection = domain.CollectionVehicles
		if kind == domain.EventDelete {
			return withDeleteID(ev, frame.Payload, "vehicle_id")
		}
		var v domain.Vehicle
		if err := json.Unmarshal(frame.Payload, &v); err != nil {
			return ev, fmt.Errorf("malformed vehicle payload dropped: %w", err)
		}
		ev.Vehicle = &v

	case domain.CollectionTelemetry:
		ev.Collection = domain.CollectionTelemetry
		if kind == domain.EventDelete {
			return withDeleteID(ev, frame.Payload, "device_id")
		}
		var w domain.WireSample
		if err := json.Unmarshal(frame.Payload, &w); err != nil {
			return ev, fmt.Errorf("malformed telemetry payload dropped: %w", err)
		}
		s, err := w.Sample(now)
		if err != nil {
			return ev, fmt.Errorf("telemetry payload dropped: %w", err)
		}
		ev.Sample = s

	case domain.CollectionGeofences:
		ev.Collection = domain.CollectionGeofences
		if kind == domain.EventDelete {
			return withDeleteID(ev, frame.Payload, "geofence_id")
		}
		var g domain.Geofence
		if err := json.Unmarshal(frame.Payload, &g); err != nil {
			return ev, fmt.Errorf("malformed geofence payload dropped: %w", err)
		}
		ev.Geofence = &g

	default:
		return ev, fmt.Errorf("frame for unknown collection %q dropped", frame.Collection)
	}

	return ev, nil
}

func withDeleteID(ev domain.ChangeEvent, payload json.RawMessage, field string) (domain.ChangeEvent, error) {
	var ids map[string]string
	if err := json.Unmarshal(payload, &ids); err != nil {
		return ev, fmt.Errorf("malformed delete payload dropped: %w", err)
	}
	id := ids[field]
	if id == "" {
		id = ids["id"]
	}
	if id == "" {
		return ev, fmt.Errorf("delete payload missing %s", field)
	}
	ev.ID = id
	return ev, nil
}
