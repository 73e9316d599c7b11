package cache

import (
	"context"

	"github.com/fleetwatch/tracker/module/core/domain"
)

// StateMirror keeps an external cache of per-vehicle runtime state so
// dashboards can read fleet state without touching the engine process.
type StateMirror interface {
	UpdateState(ctx context.Context, state *domain.RuntimeState) error
}

// AlertNotifier pushes emitted alerts to the UI notification channel.
type AlertNotifier interface {
	NotifyAlert(ctx context.Context, alert *domain.GeofenceAlert) error
}
