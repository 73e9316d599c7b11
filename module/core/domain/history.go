package domain

import "time"

// TrackPoint is one persisted telemetry position, used by the history query
// surface only.
type TrackPoint struct {
	VehicleID string    `json:"vehicle_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	SpeedKmh  float64   `json:"speed_kmh"`
	Timestamp time.Time `json:"timestamp"`
}

type HistoryQuery struct {
	VehicleID string
	Start     time.Time
	End       time.Time
}
