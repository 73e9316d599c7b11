package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNullableFloat_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValue float64
		wantValid bool
		wantErr   bool
	}{
		{"number", `-6.2088`, -6.2088, true, false},
		{"numeric string", `"106.8456"`, 106.8456, true, false},
		{"integer string", `"42"`, 42, true, false},
		{"null", `null`, 0, false, false},
		{"empty string", `""`, 0, false, false},
		{"garbage string", `"abc"`, 0, false, true},
		{"bool", `true`, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f NullableFloat
			err := json.Unmarshal([]byte(tt.input), &f)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if f.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", f.Valid, tt.wantValid)
			}
			if f.Valid && f.Value != tt.wantValue {
				t.Errorf("value = %f, want %f", f.Value, tt.wantValue)
			}
		})
	}
}

func TestWireSample_Sample(t *testing.T) {
	receivedAt := time.Unix(1715003500, 0)

	t.Run("full sample", func(t *testing.T) {
		var w WireSample
		payload := `{
			"device_id": "DEV1",
			"timestamp": 1715003456,
			"latitude": -6.2088,
			"longitude": "106.8456",
			"speed_kmh": 42.5,
			"fuel_pct": null,
			"ignition": true,
			"satellites": 9
		}`
		if err := json.Unmarshal([]byte(payload), &w); err != nil {
			t.Fatal(err)
		}
		s, err := w.Sample(receivedAt)
		if err != nil {
			t.Fatal(err)
		}
		if !s.HasPosition || s.Latitude != -6.2088 || s.Longitude != 106.8456 {
			t.Errorf("position: %+v", s)
		}
		if !s.Timestamp.Equal(time.Unix(1715003456, 0)) {
			t.Errorf("timestamp: %v", s.Timestamp)
		}
		if !s.HasTimestamp() {
			t.Error("HasTimestamp should report true")
		}
		if !s.ReceivedAt.Equal(receivedAt) {
			t.Errorf("receivedAt: %v", s.ReceivedAt)
		}
	})

	t.Run("missing identifiers rejected", func(t *testing.T) {
		w := WireSample{}
		if _, err := w.Sample(receivedAt); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("half a coordinate pair dropped", func(t *testing.T) {
		w := WireSample{
			DeviceID: "DEV1",
			Latitude: NullableFloat{Value: -6.2, Valid: true},
		}
		s, err := w.Sample(receivedAt)
		if err != nil {
			t.Fatal(err)
		}
		if s.HasPosition {
			t.Error("latitude without longitude must not count as a position")
		}
	})

	t.Run("out of range pair dropped", func(t *testing.T) {
		w := WireSample{
			DeviceID:  "DEV1",
			Latitude:  NullableFloat{Value: 95, Valid: true},
			Longitude: NullableFloat{Value: 106.8, Valid: true},
		}
		s, err := w.Sample(receivedAt)
		if err != nil {
			t.Fatal(err)
		}
		if s.HasPosition {
			t.Error("out-of-range latitude must not count as a position")
		}
	})

	t.Run("missing timestamp leaves zero", func(t *testing.T) {
		w := WireSample{DeviceID: "DEV1"}
		s, err := w.Sample(receivedAt)
		if err != nil {
			t.Fatal(err)
		}
		if s.HasTimestamp() {
			t.Error("sample without a wire timestamp must report no timestamp")
		}
	})
}

func TestTelemetrySample_Key(t *testing.T) {
	s := &TelemetrySample{DeviceID: "DEV1", VehicleID: "V1"}
	if s.Key() != "DEV1" {
		t.Errorf("expected device id, got %s", s.Key())
	}
	s = &TelemetrySample{VehicleID: "V1"}
	if s.Key() != "V1" {
		t.Errorf("expected vehicle id fallback, got %s", s.Key())
	}
}
