package subscriber

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/fleetwatch/tracker/module/core/domain"
)

const topicPattern = "/fleet/device/+/telemetry"

// TelemetrySubscriber ingests telemetry published directly by trackers over
// MQTT. Samples are normalized into change events and pushed onto the same
// intake the stream connector feeds, so per-vehicle ordering is preserved by
// the engine loop, not here.
type TelemetrySubscriber struct {
	client mqtt.Client
	sink   func(domain.ChangeEvent)
}

func NewTelemetrySubscriber(client mqtt.Client, sink func(domain.ChangeEvent)) *TelemetrySubscriber {
	return &TelemetrySubscriber{client: client, sink: sink}
}

func (s *TelemetrySubscriber) Start() error {
	token := s.client.Subscribe(topicPattern, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

func (s *TelemetrySubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw domain.WireSample
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.Printf("invalid telemetry message on %s: %v", msg.Topic(), err)
		return
	}

	sample, err := raw.Sample(time.Now())
	if err != nil {
		log.Printf("telemetry message on %s dropped: %v", msg.Topic(), err)
		return
	}

	s.sink(domain.ChangeEvent{
		Collection: domain.CollectionTelemetry,
		Kind:       domain.EventUpdate,
		Sample:     sample,
	})
}
