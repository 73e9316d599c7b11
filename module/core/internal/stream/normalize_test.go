package stream

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fleetwatch/tracker/module/core/domain"
)

func TestNormalize_VehicleCreate(t *testing.T) {
	frame := wireFrame{
		Collection: "vehicles",
		Event:      "create",
		Payload:    json.RawMessage(`{"vehicle_id": "V1", "name": "Truck 12", "device_id": "DEV1"}`),
	}

	ev, err := normalize(frame, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Collection != domain.CollectionVehicles || ev.Kind != domain.EventCreate {
		t.Errorf("expected vehicles/create, got %s/%s", ev.Collection, ev.Kind)
	}
	if ev.Vehicle == nil || ev.Vehicle.VehicleID != "V1" || ev.Vehicle.DeviceID != "DEV1" {
		t.Errorf("vehicle payload not decoded: %+v", ev.Vehicle)
	}
}

func TestNormalize_InitBecomesUpdate(t *testing.T) {
	frame := wireFrame{
		Collection: "geofences",
		Event:      "init",
		Payload:    json.RawMessage(`{"geofence_id": "G1", "kind": "circle", "rule": "FORBIDDEN", "active": true, "center": [106.8456, -6.2088], "radius_m": 500}`),
	}

	ev, err := normalize(frame, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != domain.EventUpdate {
		t.Errorf("init frames should normalize to update, got %s", ev.Kind)
	}
	if ev.Geofence == nil || ev.Geofence.GeofenceID != "G1" || ev.Geofence.Rule != domain.RuleForbidden {
		t.Errorf("geofence payload not decoded: %+v", ev.Geofence)
	}
}

func TestNormalize_TelemetryUpdate(t *testing.T) {
	now := time.Unix(1715003456, 0)
	frame := wireFrame{
		Collection: "telemetry",
		Event:      "update",
		Payload:    json.RawMessage(`{"device_id": "DEV1", "latitude": "-6.2088", "longitude": 106.8456, "timestamp": 1715003400}`),
	}

	ev, err := normalize(frame, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := ev.Sample
	if s == nil {
		t.Fatal("expected a sample")
	}
	if !s.HasPosition || s.Latitude != -6.2088 {
		t.Errorf("position not decoded: %+v", s)
	}
	if !s.ReceivedAt.Equal(now) {
		t.Errorf("expected receivedAt %v, got %v", now, s.ReceivedAt)
	}
}

func TestNormalize_DeleteIDExtraction(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		payload    string
		wantID     string
	}{
		{"vehicle field", "vehicles", `{"vehicle_id": "V1"}`, "V1"},
		{"telemetry field", "telemetry", `{"device_id": "DEV1"}`, "DEV1"},
		{"geofence field", "geofences", `{"geofence_id": "G1"}`, "G1"},
		{"generic id fallback", "vehicles", `{"id": "V9"}`, "V9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := wireFrame{
				Collection: tt.collection,
				Event:      "delete",
				Payload:    json.RawMessage(tt.payload),
			}
			ev, err := normalize(frame, time.Now())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev.Kind != domain.EventDelete {
				t.Errorf("expected delete, got %s", ev.Kind)
			}
			if ev.ID != tt.wantID {
				t.Errorf("expected id %s, got %s", tt.wantID, ev.ID)
			}
		})
	}
}

func TestNormalize_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		frame wireFrame
	}{
		{"unknown event", wireFrame{Collection: "vehicles", Event: "upsert", Payload: json.RawMessage(`{}`)}},
		{"unknown collection", wireFrame{Collection: "drivers", Event: "create", Payload: json.RawMessage(`{}`)}},
		{"malformed vehicle", wireFrame{Collection: "vehicles", Event: "create", Payload: json.RawMessage(`[1,2]`)}},
		{"telemetry without ids", wireFrame{Collection: "telemetry", Event: "update", Payload: json.RawMessage(`{"latitude": 1}`)}},
		{"delete without id", wireFrame{Collection: "geofences", Event: "delete", Payload: json.RawMessage(`{}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := normalize(tt.frame, time.Now()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
