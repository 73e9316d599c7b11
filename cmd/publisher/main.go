// Mock device publisher: emits telemetry for a small pool of trackers over
// MQTT so the engine can be exercised without real hardware. A share of the
// samples lands inside the default test geofence around Jakarta city center.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type telemetryMessage struct {
	DeviceID   string  `json:"device_id"`
	Timestamp  int64   `json:"timestamp"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	SpeedKmh   float64 `json:"speed_kmh"`
	FuelPct    float64 `json:"fuel_pct"`
	BatteryPct float64 `json:"battery_pct"`
	Ignition   bool    `json:"ignition"`
	Satellites int     `json:"satellites"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds>\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	broker := "tcp://localhost:1883"
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		broker = v
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("fleet-mock-publisher")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	devicePool := make([]string, 5)
	for i := range devicePool {
		devicePool[i] = fmt.Sprintf("DEV-%04d", rand.Intn(10000))
	}

	log.Printf("connected to %s, publishing every %ds...", broker, intervalSec)
	log.Printf("device pool: %v", devicePool)

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		dev := devicePool[rand.Intn(len(devicePool))]

		var lat, lon float64
		// 30% chance to land near the geofence anchor (-6.2088, 106.8456)
		if rand.Float64() < 0.3 {
			lat = -6.2088 + (rand.Float64()-0.5)*0.0005 // ~50m drift
			lon = 106.8456 + (rand.Float64()-0.5)*0.0005
		} else {
			lat = -6.2088 + (rand.Float64()-0.5)*0.2
			lon = 106.8456 + (rand.Float64()-0.5)*0.2
		}

		msg := telemetryMessage{
			DeviceID:   dev,
			Timestamp:  time.Now().Unix(),
			Latitude:   lat,
			Longitude:  lon,
			SpeedKmh:   rand.Float64() * 80,
			FuelPct:    20 + rand.Float64()*80,
			BatteryPct: 50 + rand.Float64()*50,
			Ignition:   rand.Float64() < 0.8,
			Satellites: 4 + rand.Intn(10),
		}

		payload, _ := json.Marshal(msg)
		topic := fmt.Sprintf("/fleet/device/%s/telemetry", dev)

		token := client.Publish(topic, 1, false, payload)
		token.Wait()

		log.Printf("published to %s: %s", topic, payload)
	}
}
