package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fleetwatch/tracker/module/core/domain"
	"github.com/fleetwatch/tracker/module/core/internal/repository/cache"
)

var (
	_ cache.StateMirror   = (*StateMirror)(nil)
	_ cache.AlertNotifier = (*StateMirror)(nil)
)

const (
	stateTTL     = 90 * time.Second
	alertChannel = "fleet:alerts"
)

// StateMirror writes runtime state into Redis hashes and publishes alert
// notifications, so dashboard consumers never have to query the engine.
type StateMirror struct {
	client *redis.Client
}

func NewStateMirror(client *redis.Client) *StateMirror {
	return &StateMirror{client: client}
}

func (m *StateMirror) UpdateState(ctx context.Context, state *domain.RuntimeState) error {
	fields := map[string]interface{}{
		"vehicle_id": state.VehicleID,
		"online":     state.Online,
		"activity":   string(state.Activity),
	}
	if s := state.Sample; s != nil {
		fields["speed_kmh"] = s.SpeedKmh
		fields["fuel_pct"] = s.FuelPct
		fields["battery_pct"] = s.BatteryPct
		fields["ignition"] = s.Ignition
		if s.HasPosition {
			fields["lat"] = s.Latitude
			fields["lng"] = s.Longitude
		}
		if s.HasTimestamp() {
			fields["timestamp"] = s.Timestamp.Unix()
		}
	}

	key := fmt.Sprintf("vehicle:%s:state", state.VehicleID)

	pipe := m.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, stateTTL)
	if s := state.Sample; s != nil && s.HasPosition {
		pipe.GeoAdd(ctx, "fleet:geo", &redis.GeoLocation{
			Name:      state.VehicleID,
			Longitude: s.Longitude,
			Latitude:  s.Latitude,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis state update: %w", err)
	}
	return nil
}

func (m *StateMirror) NotifyAlert(ctx context.Context, alert *domain.GeofenceAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return m.client.Publish(ctx, alertChannel, payload).Err()
}
