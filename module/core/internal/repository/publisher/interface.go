package publisher

import (
	"context"

	"github.com/fleetwatch/tracker/module/core/domain"
)

type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *domain.GeofenceAlert) error
}
