package domain

// Collection names the change feeds the backend publishes.
type Collection string

const (
	CollectionVehicles  Collection = "vehicles"
	CollectionTelemetry Collection = "telemetry"
	CollectionGeofences Collection = "geofences"
)

// EventKind classifies a change-feed message. Snapshot events replace the
// whole collection and are also synthesized after a reconnect resync.
type EventKind string

const (
	EventCreate   EventKind = "create"
	EventUpdate   EventKind = "update"
	EventDelete   EventKind = "delete"
	EventSnapshot EventKind = "snapshot"
)

// ChangeEvent is the normalized form every transport produces, whatever the
// push message looked like on the wire. Exactly one of the payload fields is
// set, matching Collection and Kind.
type ChangeEvent struct {
	Collection Collection
	Kind       EventKind

	// ID identifies the subject of a delete.
	ID string

	Vehicle  *Vehicle
	Sample   *TelemetrySample
	Geofence *Geofence

	Vehicles  []Vehicle
	Geofences []Geofence
}
