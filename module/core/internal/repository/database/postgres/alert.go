package postgres

import (
	"context"
	"database/sql"

	"github.com/fleetwatch/tracker/module/core/domain"
	"github.com/fleetwatch/tracker/module/core/internal/repository/database"
)

var _ database.AlertRepository = (*AlertRepo)(nil)

type AlertRepo struct {
	db *sql.DB
}

func NewAlertRepo(db *sql.DB) *AlertRepo {
	return &AlertRepo{db: db}
}

func (r *AlertRepo) InsertAlert(ctx context.Context, alert *domain.GeofenceAlert) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO geofence_alerts (vehicle_id, geofence_id, kind, message, location, timestamp) VALUES ($1, $2, $3, $4, $5, $6)`,
		alert.VehicleID, alert.GeofenceID, string(alert.Kind), alert.Message, alert.Location, alert.Timestamp,
	)
	return err
}

func (r *AlertRepo) RecentAlerts(ctx context.Context, limit int) ([]domain.GeofenceAlert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT vehicle_id, geofence_id, kind, message, location, timestamp FROM geofence_alerts ORDER BY timestamp DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.GeofenceAlert
	for rows.Next() {
		var a domain.GeofenceAlert
		var kind string
		if err := rows.Scan(&a.VehicleID, &a.GeofenceID, &kind, &a.Message, &a.Location, &a.Timestamp); err != nil {
			return nil, err
		}
		a.Kind = domain.AlertKind(kind)
		results = append(results, a)
	}
	return results, rows.Err()
}
