package postgres

import (
	"context"
	"database/sql"

	"github.com/fleetwatch/tracker/module/core/domain"
	"github.com/fleetwatch/tracker/module/core/internal/repository/database"
)

var _ database.TelemetryRepository = (*TelemetryRepo)(nil)

type TelemetryRepo struct {
	db *sql.DB
}

func NewTelemetryRepo(db *sql.DB) *TelemetryRepo {
	return &TelemetryRepo{db: db}
}

func (r *TelemetryRepo) InsertTrackPoint(ctx context.Context, p *domain.TrackPoint) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO track_points (vehicle_id, latitude, longitude, speed_kmh, timestamp) VALUES ($1, $2, $3, $4, $5)`,
		p.VehicleID, p.Latitude, p.Longitude, p.SpeedKmh, p.Timestamp,
	)
	return err
}

func (r *TelemetryRepo) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.TrackPoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT vehicle_id, latitude, longitude, speed_kmh, timestamp FROM track_points WHERE vehicle_id = $1 AND timestamp >= $2 AND timestamp <= $3 ORDER BY timestamp ASC`,
		query.VehicleID, query.Start, query.End,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.TrackPoint
	for rows.Next() {
		var p domain.TrackPoint
		if err := rows.Scan(&p.VehicleID, &p.Latitude, &p.Longitude, &p.SpeedKmh, &p.Timestamp); err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}
