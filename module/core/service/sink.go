package service

import (
	"context"
	"log"

	"github.com/fleetwatch/tracker/module/core/domain"
	"github.com/fleetwatch/tracker/module/core/internal/repository/cache"
	"github.com/fleetwatch/tracker/module/core/internal/repository/database"
	"github.com/fleetwatch/tracker/module/core/internal/repository/publisher"
)

// AlertSink persists emitted alerts and fans them out to the notification
// channels. Delivery is at-most-once and best-effort: a failed write is
// logged and dropped, never retried against already-advanced detector state.
type AlertSink struct {
	store    database.AlertRepository
	pub      publisher.AlertPublisher
	notifier cache.AlertNotifier
}

func NewAlertSink(store database.AlertRepository, pub publisher.AlertPublisher, notifier cache.AlertNotifier) *AlertSink {
	return &AlertSink{store: store, pub: pub, notifier: notifier}
}

func (s *AlertSink) Deliver(ctx context.Context, alert *domain.GeofenceAlert) {
	if s.store != nil {
		if err := s.store.InsertAlert(ctx, alert); err != nil {
			log.Printf("alert persist failed for %s/%s: %v", alert.VehicleID, alert.Kind, err)
		}
	}
	if s.pub != nil {
		if err := s.pub.PublishAlert(ctx, alert); err != nil {
			log.Printf("alert publish failed for %s/%s: %v", alert.VehicleID, alert.Kind, err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyAlert(ctx, alert); err != nil {
			log.Printf("alert notify failed for %s/%s: %v", alert.VehicleID, alert.Kind, err)
		}
	}
}
