package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fleetwatch/tracker/module/core/domain"
	"github.com/fleetwatch/tracker/module/core/internal/repository/publisher"
)

var _ publisher.AlertPublisher = (*AlertPublisher)(nil)

const (
	exchangeName = "fleet.events"
	queueName    = "geofence_alerts"
)

type AlertPublisher struct {
	ch *amqp.Channel
}

func NewAlertPublisher(conn *amqp.Connection) (*AlertPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queueName, "", exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &AlertPublisher{ch: ch}, nil
}

type alertMessage struct {
	VehicleID  string           `json:"vehicle_id"`
	GeofenceID string           `json:"geofence_id"`
	Kind       domain.AlertKind `json:"kind"`
	Message    string           `json:"message"`
	Location   string           `json:"location"`
	Timestamp  int64            `json:"timestamp"`
}

func (p *AlertPublisher) PublishAlert(ctx context.Context, alert *domain.GeofenceAlert) error {
	msg := alertMessage{
		VehicleID:  alert.VehicleID,
		GeofenceID: alert.GeofenceID,
		Kind:       alert.Kind,
		Message:    alert.Message,
		Location:   alert.Location,
		Timestamp:  alert.Timestamp.Unix(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	return p.ch.PublishWithContext(ctx, exchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
