package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// TelemetrySample is the latest known reading for one device. Positions are
// optional: trackers without a GPS fix publish samples with no coordinates,
// and those must never reach containment testing.
type TelemetrySample struct {
	DeviceID  string
	VehicleID string

	// Timestamp is the device-reported fix time. Zero means the sample
	// carried no usable timestamp.
	Timestamp time.Time

	Latitude    float64
	Longitude   float64
	HasPosition bool

	SpeedKmh   float64
	FuelPct    float64
	BatteryPct float64
	Ignition   bool
	Satellites int

	ReceivedAt time.Time
}

// Key returns the coalescing key: device identifier, falling back to the
// vehicle identifier for trackers that never report one.
func (s *TelemetrySample) Key() string {
	if s.DeviceID != "" {
		return s.DeviceID
	}
	return s.VehicleID
}

// HasTimestamp reports whether the sample carried a parsable fix time.
func (s *TelemetrySample) HasTimestamp() bool {
	return !s.Timestamp.IsZero()
}

// Activity is the derived movement classification of a vehicle.
type Activity string

const (
	ActivityMoving  Activity = "moving"
	ActivityParked  Activity = "parked"
	ActivityOffline Activity = "offline"
)

// RuntimeState is derived per request from the latest sample and the wall
// clock. It is never persisted or cached as authoritative.
type RuntimeState struct {
	VehicleID string           `json:"vehicle_id"`
	Online    bool             `json:"online"`
	Activity  Activity         `json:"activity"`
	Sample    *TelemetrySample `json:"sample,omitempty"`
}

// NullableFloat is a wire-form float that may arrive as a JSON number, a
// numeric string, or null. Trackers in the field disagree on which.
type NullableFloat struct {
	Value float64
	Valid bool
}

func (f *NullableFloat) UnmarshalJSON(data []byte) error {
	f.Valid = false
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) >= 2 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("numeric string %q: %w", s, err)
		}
		f.Value = v
		f.Valid = true
		return nil
	}
	if err := json.Unmarshal(data, &f.Value); err != nil {
		return err
	}
	f.Valid = true
	return nil
}

// WireSample is the raw telemetry message shape shared by the change-feed
// connector and the MQTT subscriber.
type WireSample struct {
	DeviceID   string        `json:"device_id"`
	VehicleID  string        `json:"vehicle_id"`
	Timestamp  *int64        `json:"timestamp"`
	Latitude   NullableFloat `json:"latitude"`
	Longitude  NullableFloat `json:"longitude"`
	SpeedKmh   NullableFloat `json:"speed_kmh"`
	FuelPct    NullableFloat `json:"fuel_pct"`
	BatteryPct NullableFloat `json:"battery_pct"`
	Ignition   bool          `json:"ignition"`
	Satellites int           `json:"satellites"`
}

// Sample converts the wire form into a validated TelemetrySample. The
// coordinate pair is kept only when both halves are present, finite and in
// range; everything else still produces a usable sample.
func (w *WireSample) Sample(receivedAt time.Time) (*TelemetrySample, error) {
	if w.DeviceID == "" && w.VehicleID == "" {
		return nil, fmt.Errorf("sample has neither device_id nor vehicle_id")
	}

	s := &TelemetrySample{
		DeviceID:   w.DeviceID,
		VehicleID:  w.VehicleID,
		SpeedKmh:   w.SpeedKmh.Value,
		FuelPct:    w.FuelPct.Value,
		BatteryPct: w.BatteryPct.Value,
		Ignition:   w.Ignition,
		Satellites: w.Satellites,
		ReceivedAt: receivedAt,
	}

	if w.Timestamp != nil && *w.Timestamp > 0 {
		s.Timestamp = time.Unix(*w.Timestamp, 0)
	}

	if w.Latitude.Valid && w.Longitude.Valid &&
		validLatLon(w.Latitude.Value, w.Longitude.Value) {
		s.Latitude = w.Latitude.Value
		s.Longitude = w.Longitude.Value
		s.HasPosition = true
	}

	return s, nil
}

func validLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
