package service

import (
	"time"

	"github.com/fleetwatch/tracker/module/core/domain"
)

// RuntimeService answers "what is this vehicle doing right now" by joining
// the roster, the coalesced latest sample and the state deriver. Answers are
// computed per call because online-ness depends on the wall clock.
type RuntimeService struct {
	roster    *VehicleRoster
	coalescer *TelemetryCoalescer
	deriver   *StateDeriver
}

func NewRuntimeService(roster *VehicleRoster, coalescer *TelemetryCoalescer, deriver *StateDeriver) *RuntimeService {
	return &RuntimeService{roster: roster, coalescer: coalescer, deriver: deriver}
}

func (s *RuntimeService) State(vehicleID string, now time.Time) (domain.RuntimeState, bool) {
	v, ok := s.roster.Get(vehicleID)
	if !ok {
		return domain.RuntimeState{}, false
	}
	return s.stateFor(v, now), true
}

func (s *RuntimeService) All(now time.Time) []domain.RuntimeState {
	vehicles := s.roster.All()
	out := make([]domain.RuntimeState, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, s.stateFor(v, now))
	}
	return out
}

func (s *RuntimeService) stateFor(v domain.Vehicle, now time.Time) domain.RuntimeState {
	sample := s.coalescer.Latest(v.TelemetryKey())
	return domain.RuntimeState{
		VehicleID: v.VehicleID,
		Online:    s.deriver.IsOnline(sample, now),
		Activity:  s.deriver.Activity(sample, now),
		Sample:    sample,
	}
}
