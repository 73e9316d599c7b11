package database

import (
	"context"

	"github.com/fleetwatch/tracker/module/core/domain"
)

type TelemetryRepository interface {
	InsertTrackPoint(ctx context.Context, p *domain.TrackPoint) error
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.TrackPoint, error)
}

type AlertRepository interface {
	InsertAlert(ctx context.Context, alert *domain.GeofenceAlert) error
	RecentAlerts(ctx context.Context, limit int) ([]domain.GeofenceAlert, error)
}
