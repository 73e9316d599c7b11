package core

import (
	"context"
	"log"
	"time"

	"github.com/fleetwatch/tracker/module/core/domain"
	"github.com/fleetwatch/tracker/module/core/internal/repository/cache"
	"github.com/fleetwatch/tracker/module/core/internal/repository/database"
	"github.com/fleetwatch/tracker/module/core/service"
)

// Engine is the detection core's event loop. All change events — pushed from
// the stream connector, the MQTT subscriber, or snapshot resyncs — serialize
// through one channel and are processed in arrival order, which the
// containment state machine depends on. Blocking I/O (alert delivery, state
// mirroring, track persistence) happens on dedicated workers fed by
// non-blocking sends, so a slow sink can drop work but never stall
// detection.
type Engine struct {
	roster    *service.VehicleRoster
	coalescer *service.TelemetryCoalescer
	registry  *service.GeofenceRegistry
	detector  *service.ViolationDetector
	runtime   *service.RuntimeService
	sink      *service.AlertSink

	telemetry database.TelemetryRepository
	mirror    cache.StateMirror

	events chan domain.ChangeEvent
	alerts chan *domain.GeofenceAlert
	states chan *domain.RuntimeState
	tracks chan *domain.TrackPoint

	tick time.Duration
}

const (
	defaultTick      = 30 * time.Second
	eventBufferSize  = 4096
	workerBufferSize = 1024
)

func newEngine(
	roster *service.VehicleRoster,
	coalescer *service.TelemetryCoalescer,
	registry *service.GeofenceRegistry,
	detector *service.ViolationDetector,
	runtime *service.RuntimeService,
	sink *service.AlertSink,
	telemetry database.TelemetryRepository,
	mirror cache.StateMirror,
	tick time.Duration,
) *Engine {
	if tick <= 0 {
		tick = defaultTick
	}
	return &Engine{
		roster:    roster,
		coalescer: coalescer,
		registry:  registry,
		detector:  detector,
		runtime:   runtime,
		sink:      sink,
		telemetry: telemetry,
		mirror:    mirror,
		events:    make(chan domain.ChangeEvent, eventBufferSize),
		alerts:    make(chan *domain.GeofenceAlert, workerBufferSize),
		states:    make(chan *domain.RuntimeState, workerBufferSize),
		tracks:    make(chan *domain.TrackPoint, workerBufferSize),
		tick:      tick,
	}
}

// Events is the intake every transport feeds.
func (e *Engine) Events() chan<- domain.ChangeEvent {
	return e.events
}

// Submit queues one event, dropping it if the engine is saturated.
func (e *Engine) Submit(ev domain.ChangeEvent) {
	select {
	case e.events <- ev:
	default:
		log.Printf("engine: event queue full, %s/%s dropped", ev.Collection, ev.Kind)
	}
}

// Run processes events until ctx is cancelled. The periodic tick re-derives
// runtime state so vehicles that went silent still age out to offline in the
// mirror without any new data arriving.
func (e *Engine) Run(ctx context.Context) {
	go e.alertWorker(ctx)
	go e.stateWorker(ctx)
	go e.trackWorker(ctx)

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case ev := <-e.events:
			e.handleEvent(ev)
		case <-ticker.C:
			e.refreshStates()
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) handleEvent(ev domain.ChangeEvent) {
	switch ev.Collection {
	case domain.CollectionVehicles:
		e.handleVehicleEvent(ev)
	case domain.CollectionGeofences:
		e.handleGeofenceEvent(ev)
	case domain.CollectionTelemetry:
		e.handleTelemetryEvent(ev)
	}
}

func (e *Engine) handleVehicleEvent(ev domain.ChangeEvent) {
	switch ev.Kind {
	case domain.EventSnapshot:
		e.roster.Replace(ev.Vehicles)
	case domain.EventCreate, domain.EventUpdate:
		if ev.Vehicle != nil {
			e.roster.Upsert(*ev.Vehicle)
		}
	case domain.EventDelete:
		if v, ok := e.roster.Get(ev.ID); ok {
			e.coalescer.Forget(v.TelemetryKey())
		}
		e.roster.Remove(ev.ID)
		e.detector.ResetVehicle(ev.ID)
	}
}

func (e *Engine) handleGeofenceEvent(ev domain.ChangeEvent) {
	switch ev.Kind {
	case domain.EventSnapshot:
		for _, id := range e.registry.Replace(ev.Geofences) {
			e.detector.ResetGeofence(id)
		}
	case domain.EventCreate, domain.EventUpdate:
		if ev.Geofence == nil {
			return
		}
		reactivated, err := e.registry.Upsert(*ev.Geofence)
		if err != nil {
			// Prior valid definition stays served.
			log.Printf("engine: geofence update rejected: %v", err)
			return
		}
		if reactivated {
			e.detector.ResetGeofence(ev.Geofence.GeofenceID)
		}
	case domain.EventDelete:
		e.registry.Remove(ev.ID)
		e.detector.ResetGeofence(ev.ID)
	}
}

func (e *Engine) handleTelemetryEvent(ev domain.ChangeEvent) {
	switch ev.Kind {
	case domain.EventCreate, domain.EventUpdate:
		if ev.Sample != nil {
			e.handleSample(ev.Sample)
		}
	case domain.EventDelete:
		e.coalescer.Forget(ev.ID)
	}
}

func (e *Engine) handleSample(s *domain.TelemetrySample) {
	// Stale or duplicate deliveries are no-ops.
	if !e.coalescer.Apply(s) {
		return
	}

	v, known := e.roster.Resolve(s)
	now := time.Now()

	if known && s.HasPosition {
		ts := s.Timestamp
		if ts.IsZero() {
			ts = s.ReceivedAt
		}
		e.enqueueTrack(&domain.TrackPoint{
			VehicleID: v.VehicleID,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			SpeedKmh:  s.SpeedKmh,
			Timestamp: ts,
		})
	}

	if known && v.GeofenceID != "" {
		if g, ok := e.registry.Get(v.GeofenceID); ok {
			if alert := e.detector.Check(v, g, s, now); alert != nil {
				e.enqueueAlert(alert)
			}
		}
	}

	if known {
		if st, ok := e.runtime.State(v.VehicleID, now); ok {
			e.enqueueState(&st)
		}
	}
}

func (e *Engine) refreshStates() {
	now := time.Now()
	for _, st := range e.runtime.All(now) {
		st := st
		e.enqueueState(&st)
	}
}

func (e *Engine) enqueueAlert(alert *domain.GeofenceAlert) {
	select {
	case e.alerts <- alert:
	default:
		log.Printf("engine: alert queue full, %s/%s dropped", alert.VehicleID, alert.Kind)
	}
}

func (e *Engine) enqueueState(st *domain.RuntimeState) {
	select {
	case e.states <- st:
	default:
	}
}

func (e *Engine) enqueueTrack(p *domain.TrackPoint) {
	select {
	case e.tracks <- p:
	default:
		log.Printf("engine: track queue full, point for %s dropped", p.VehicleID)
	}
}

func (e *Engine) alertWorker(ctx context.Context) {
	for {
		select {
		case alert := <-e.alerts:
			e.sink.Deliver(ctx, alert)
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) stateWorker(ctx context.Context) {
	for {
		select {
		case st := <-e.states:
			if e.mirror == nil {
				continue
			}
			if err := e.mirror.UpdateState(ctx, st); err != nil {
				log.Printf("engine: state mirror failed for %s: %v", st.VehicleID, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) trackWorker(ctx context.Context) {
	for {
		select {
		case p := <-e.tracks:
			if e.telemetry == nil {
				continue
			}
			if err := e.telemetry.InsertTrackPoint(ctx, p); err != nil {
				log.Printf("engine: track persist failed for %s: %v", p.VehicleID, err)
			}
		case <-ctx.Done():
			return
		}
	}
}
