package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"

	handler "github.com/fleetwatch/tracker/module/core/internal/handler/http"
	"github.com/fleetwatch/tracker/module/core/internal/handler/subscriber"
	redisrepo "github.com/fleetwatch/tracker/module/core/internal/repository/cache/redis"
	"github.com/fleetwatch/tracker/module/core/internal/repository/database/postgres"
	"github.com/fleetwatch/tracker/module/core/internal/repository/publisher/rabbitmq"
	"github.com/fleetwatch/tracker/module/core/internal/stream"
	"github.com/fleetwatch/tracker/module/core/service"
)

// Options carries the engine tunables; zero values fall back to the
// documented defaults.
type Options struct {
	StreamWSURL      string
	StreamAPIBaseURL string

	Staleness     time.Duration
	SpeedDeadBand float64
	Cooldown      time.Duration
	Heartbeat     time.Duration
	BackoffBase   time.Duration
	BackoffCap    time.Duration
	StateTick     time.Duration
}

type Module struct {
	Engine    *Engine
	Connector *stream.Connector

	vehicleHandler  *handler.VehicleHandler
	geofenceHandler *handler.GeofenceHandler
	statusHandler   *handler.StatusHandler
	subscriber      *subscriber.TelemetrySubscriber
}

func Build(db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, redisClient *goredis.Client, opts Options) (*Module, error) {
	telemetryRepo := postgres.NewTelemetryRepo(db)
	alertRepo := postgres.NewAlertRepo(db)

	alertPub, err := rabbitmq.NewAlertPublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("alert publisher: %w", err)
	}

	mirror := redisrepo.NewStateMirror(redisClient)

	roster := service.NewVehicleRoster()
	coalescer := service.NewTelemetryCoalescer()
	deriver := service.NewStateDeriver(opts.Staleness, opts.SpeedDeadBand)
	registry := service.NewGeofenceRegistry()
	detector := service.NewViolationDetector(opts.Cooldown)
	runtime := service.NewRuntimeService(roster, coalescer, deriver)
	sink := service.NewAlertSink(alertRepo, alertPub, mirror)

	engine := newEngine(roster, coalescer, registry, detector, runtime, sink, telemetryRepo, mirror, opts.StateTick)

	connector := stream.NewConnector(stream.Config{
		WSURL:       opts.StreamWSURL,
		APIBaseURL:  opts.StreamAPIBaseURL,
		Heartbeat:   opts.Heartbeat,
		BackoffBase: opts.BackoffBase,
		BackoffCap:  opts.BackoffCap,
	}, engine.Events())

	sub := subscriber.NewTelemetrySubscriber(mqttClient, engine.Submit)

	return &Module{
		Engine:          engine,
		Connector:       connector,
		vehicleHandler:  handler.NewVehicleHandler(runtime, telemetryRepo),
		geofenceHandler: handler.NewGeofenceHandler(registry, detector),
		statusHandler:   handler.NewStatusHandler(diagnostics{connector: connector, detector: detector}, alertRepo),
		subscriber:      sub,
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.vehicleHandler.Register(r)
	m.geofenceHandler.Register(r)
	m.statusHandler.Register(r)
}

func (m *Module) StartSubscribers() error {
	return m.subscriber.Start()
}

// Run starts the event loop and the stream connector and blocks until ctx is
// cancelled.
func (m *Module) Run(ctx context.Context) {
	go m.Connector.Run(ctx)
	m.Engine.Run(ctx)
}

// Close shuts the transport down without triggering reconnect.
func (m *Module) Close() {
	m.Connector.Close()
}

type diagnostics struct {
	connector *stream.Connector
	detector  *service.ViolationDetector
}

func (d diagnostics) StreamStatus() string {
	return d.connector.Status().String()
}

func (d diagnostics) ActiveCooldowns(now time.Time) int {
	return d.detector.ActiveCooldowns(now)
}
