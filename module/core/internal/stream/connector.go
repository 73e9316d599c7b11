// Package stream implements the change-feed client: a websocket subscription
// to the backend's push channel, normalized into domain.ChangeEvent values,
// with heartbeat, reconnect-with-backoff and a full REST snapshot resync
// after every (re)connect. Push delivery cannot be trusted to replay events
// missed while disconnected, so the snapshot is not optional.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fleetwatch/tracker/module/core/domain"
)

// Status is the connectivity flag exposed to diagnostics consumers.
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnected
	StatusReconnecting
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

const (
	DefaultHeartbeat   = 30 * time.Second
	DefaultBackoffBase = 1 * time.Second
	DefaultBackoffCap  = 30 * time.Second
)

type Config struct {
	// WSURL is the websocket endpoint of the backend's push channel.
	WSURL string
	// APIBaseURL is the REST base used for snapshot loads.
	APIBaseURL string

	Heartbeat   time.Duration
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// HTTPClient is used for snapshot fetches; http.DefaultClient when nil.
	HTTPClient *http.Client
	// Dialer is used for the websocket; websocket.DefaultDialer when nil.
	Dialer *websocket.Dialer
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Heartbeat <= 0 {
		out.Heartbeat = DefaultHeartbeat
	}
	if out.BackoffBase <= 0 {
		out.BackoffBase = DefaultBackoffBase
	}
	if out.BackoffCap <= 0 {
		out.BackoffCap = DefaultBackoffCap
	}
	if out.HTTPClient == nil {
		out.HTTPClient = http.DefaultClient
	}
	if out.Dialer == nil {
		out.Dialer = websocket.DefaultDialer
	}
	return out
}

// Connector owns the transport lifecycle. Events come out normalized on the
// channel handed to NewConnector; the engine loop drains them in order.
type Connector struct {
	cfg    Config
	events chan<- domain.ChangeEvent

	status atomic.Int32
	closed atomic.Bool

	mu   sync.Mutex // guards writes to conn
	conn *websocket.Conn
}

func NewConnector(cfg Config, events chan<- domain.ChangeEvent) *Connector {
	return &Connector{cfg: cfg.withDefaults(), events: events}
}

func (c *Connector) Status() Status {
	return Status(c.status.Load())
}

// Close marks the shutdown as caller-initiated, so the read loop does not
// reconnect, and closes the transport.
func (c *Connector) Close() {
	c.closed.Store(true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = c.conn.Close()
	}
	c.status.Store(int32(StatusDisconnected))
}

// Run connects and serves the feed until ctx is cancelled or Close is
// called. Unexpected disconnects reconnect with linear backoff
// (base * attempt, capped), the attempt counter resetting on success.
func (c *Connector) Run(ctx context.Context) {
	attempt := 0
	for {
		if c.closed.Load() || ctx.Err() != nil {
			c.status.Store(int32(StatusDisconnected))
			return
		}

		conn, err := c.connect(ctx)
		if err != nil {
			attempt++
			c.status.Store(int32(StatusReconnecting))
			wait := c.backoff(attempt)
			log.Printf("stream: connect failed (attempt %d, retrying in %s): %v", attempt, wait, err)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				c.status.Store(int32(StatusDisconnected))
				return
			}
			continue
		}

		attempt = 0
		c.status.Store(int32(StatusConnected))

		if err := c.resync(ctx); err != nil {
			log.Printf("stream: snapshot resync failed: %v", err)
		}

		c.serve(ctx, conn)

		if c.closed.Load() || ctx.Err() != nil {
			c.status.Store(int32(StatusDisconnected))
			return
		}
		c.status.Store(int32(StatusReconnecting))
	}
}

func (c *Connector) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.cfg.Dialer.DialContext(ctx, c.cfg.WSURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.WSURL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	sub := subscribeFrame{
		Type: "subscribe",
		Collections: []string{
			string(domain.CollectionVehicles),
			string(domain.CollectionTelemetry),
			string(domain.CollectionGeofences),
		},
	}
	if err := c.writeJSON(sub); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return conn, nil
}

// serve reads frames until the connection dies, with the heartbeat running
// on its own ticker so it is never blocked by a slow consumer downstream.
func (c *Connector) serve(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		ticker := time.NewTicker(c.cfg.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.writeJSON(heartbeatFrame{Type: "ping"}); err != nil {
					return
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() && ctx.Err() == nil {
				log.Printf("stream: connection lost: %v", err)
			}
			_ = conn.Close()
			return
		}
		c.handleFrame(data)
	}
}

func (c *Connector) handleFrame(data []byte) {
	var frame wireFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("stream: malformed frame dropped: %v", err)
		return
	}
	if frame.Type == "pong" || frame.Type == "ping" {
		return
	}

	ev, err := normalize(frame, time.Now())
	if err != nil {
		log.Printf("stream: %v", err)
		return
	}
	c.emit(ev)
}

func (c *Connector) emit(ev domain.ChangeEvent) {
	c.events <- ev
}

func (c *Connector) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(v)
}

func (c *Connector) backoff(attempt int) time.Duration {
	wait := time.Duration(attempt) * c.cfg.BackoffBase
	if wait > c.cfg.BackoffCap {
		wait = c.cfg.BackoffCap
	}
	return wait
}

// resync loads the full vehicle and geofence rosters over REST and emits
// them as snapshot events, replacing whatever the in-memory collections held
// while the feed was down.
func (c *Connector) resync(ctx context.Context) error {
	var vehicles []domain.Vehicle
	if err := c.fetch(ctx, "/vehicles", &vehicles); err != nil {
		return fmt.Errorf("vehicles snapshot: %w", err)
	}
	c.emit(domain.ChangeEvent{
		Collection: domain.CollectionVehicles,
		Kind:       domain.EventSnapshot,
		Vehicles:   vehicles,
	})

	var geofences []domain.Geofence
	if err := c.fetch(ctx, "/geofences", &geofences); err != nil {
		return fmt.Errorf("geofences snapshot: %w", err)
	}
	c.emit(domain.ChangeEvent{
		Collection: domain.CollectionGeofences,
		Kind:       domain.EventSnapshot,
		Geofences:  geofences,
	})
	return nil
}

func (c *Connector) fetch(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIBaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type subscribeFrame struct {
	Type        string   `json:"type"`
	Collections []string `json:"collections"`
}

type heartbeatFrame struct {
	Type string `json:"type"`
}
