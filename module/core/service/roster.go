package service

import (
	"sync"

	"github.com/fleetwatch/tracker/module/core/domain"
)

// VehicleRoster mirrors the fleet registry: vehicle definitions pushed from
// the backend, indexed by vehicle id and by device id so telemetry can be
// joined to its vehicle.
type VehicleRoster struct {
	mu       sync.RWMutex
	vehicles map[string]domain.Vehicle
	byDevice map[string]string
}

func NewVehicleRoster() *VehicleRoster {
	return &VehicleRoster{
		vehicles: make(map[string]domain.Vehicle),
		byDevice: make(map[string]string),
	}
}

func (r *VehicleRoster) Upsert(v domain.Vehicle) {
	if v.VehicleID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.vehicles[v.VehicleID]; ok && prev.DeviceID != "" && prev.DeviceID != v.DeviceID {
		delete(r.byDevice, prev.DeviceID)
	}
	r.vehicles[v.VehicleID] = v
	if v.DeviceID != "" {
		r.byDevice[v.DeviceID] = v.VehicleID
	}
}

func (r *VehicleRoster) Remove(vehicleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.vehicles[vehicleID]; ok {
		delete(r.byDevice, v.DeviceID)
		delete(r.vehicles, vehicleID)
	}
}

// Replace swaps the whole roster, used for snapshot loads after (re)connect.
func (r *VehicleRoster) Replace(vehicles []domain.Vehicle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vehicles = make(map[string]domain.Vehicle, len(vehicles))
	r.byDevice = make(map[string]string, len(vehicles))
	for _, v := range vehicles {
		if v.VehicleID == "" {
			continue
		}
		r.vehicles[v.VehicleID] = v
		if v.DeviceID != "" {
			r.byDevice[v.DeviceID] = v.VehicleID
		}
	}
}

func (r *VehicleRoster) Get(vehicleID string) (domain.Vehicle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vehicles[vehicleID]
	return v, ok
}

// Resolve finds the vehicle a sample belongs to, trying the device index
// first and the vehicle id carried on the sample second.
func (r *VehicleRoster) Resolve(s *domain.TelemetrySample) (domain.Vehicle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s.DeviceID != "" {
		if id, ok := r.byDevice[s.DeviceID]; ok {
			return r.vehicles[id], true
		}
	}
	if s.VehicleID != "" {
		if v, ok := r.vehicles[s.VehicleID]; ok {
			return v, true
		}
	}
	return domain.Vehicle{}, false
}

func (r *VehicleRoster) All() []domain.Vehicle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Vehicle, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		out = append(out, v)
	}
	return out
}
