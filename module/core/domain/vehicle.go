package domain

// Vehicle is a roster entry owned by the fleet registry. Only the
// assigned-geofence link changes after creation, and only via roster updates
// pushed from the backend.
type Vehicle struct {
	VehicleID    string `json:"vehicle_id"`
	Name         string `json:"name"`
	LicensePlate string `json:"license_plate"`
	DeviceID     string `json:"device_id"`
	GeofenceID   string `json:"geofence_id,omitempty"`
}

// TelemetryKey is the coalescing key for a vehicle's telemetry stream:
// the device identifier when present, the vehicle identifier otherwise.
func (v *Vehicle) TelemetryKey() string {
	if v.DeviceID != "" {
		return v.DeviceID
	}
	return v.VehicleID
}
