package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"licensegate/internal/config"
	"licensegate/internal/infrastructure"
	"licensegate/pkg/contracts/events"
)

// ErrHubStopped is returned when a message is offered to a stopped hub.
var ErrHubStopped = errors.New("websocket hub stopped")

// SnapshotFunc produces the messages a newly connected client receives
// after the greeting, typically the current license and clock status.
type SnapshotFunc func(ctx context.Context) []events.Message

type outbound struct {
	msgType string
	data    []byte
}

type direct struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and broadcasts guard events and
// status messages to them.
type Hub struct {
	// Registered clients. Written only by Run.
	clients map[*Client]struct{}

	broadcast  chan outbound
	direct     chan direct
	register   chan *Client
	unregister chan *Client

	// Mutex for thread-safe reads of clients and counters
	mu sync.RWMutex

	logger   *slog.Logger
	metrics  *OTelMetrics
	cfg      config.WebSocketConfig
	snapshot SnapshotFunc

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64

	// Control
	quit     chan struct{}
	done     chan struct{}
	running  bool
	stopOnce sync.Once
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithConfig sets buffer sizes, keepalive timings and allowed origins
func WithConfig(cfg config.WebSocketConfig) HubOption {
	return func(h *Hub) { h.cfg = cfg }
}

// WithMeter records hub metrics on meter
func WithMeter(meter metric.Meter) HubOption {
	return func(h *Hub) {
		if m, err := NewOTelMetrics(meter); err == nil {
			h.metrics = m
		}
	}
}

// WithSnapshot sets the producer of the messages sent on connect
func WithSnapshot(fn SnapshotFunc) HubOption {
	return func(h *Hub) { h.snapshot = fn }
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	hub := &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan outbound, 64),
		direct:     make(chan direct, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		cfg:        config.Default().WebSocket,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(hub)
	}
	if hub.metrics == nil {
		hub.metrics, _ = NewOTelMetrics(nil)
	}
	return hub
}

// Start starts the hub loop. It is a no-op when already running.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run is the hub's main loop. It returns after Stop, having closed every
// client's send channel.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			ctx := client.context()
			h.metrics.RecordConnection(ctx)
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			greeting := events.NewMessage(events.TypeConnection, events.ConnectionData{
				Status:   "connected",
				ClientID: client.id,
				Message:  "Connected to " + config.AppName,
			}).WithTrace(client.traceID)
			if data, err := json.Marshal(greeting); err == nil {
				h.deliver(ctx, client, events.TypeConnection, data)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				ctx := client.context()
				h.metrics.RecordDisconnection(ctx, time.Since(client.connectedAt), "normal")
				h.logger.InfoContext(ctx, "Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case msg := <-h.direct:
			h.mu.RLock()
			_, ok := h.clients[msg.client]
			h.mu.RUnlock()
			if ok {
				h.deliver(msg.client.context(), msg.client, "direct", msg.data)
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			delivered, failed := 0, 0
			for _, client := range clients {
				if h.deliver(context.Background(), client, msg.msgType, msg.data) {
					delivered++
				} else {
					failed++
				}
			}

			h.logger.Debug("Broadcast message",
				slog.String("message_type", msg.msgType),
				slog.Int("delivered", delivered),
				slog.Int("failed", failed))
			h.metrics.RecordBroadcast(context.Background(), msg.msgType, delivered, failed)
		}
	}
}

// deliver queues data on the client. A client whose buffer is full is
// disconnected. Must only be called from Run.
func (h *Hub) deliver(ctx context.Context, client *Client, msgType string, data []byte) bool {
	select {
	case client.send <- data:
		h.mu.Lock()
		h.messagesSent++
		h.mu.Unlock()
		return true
	default:
	}

	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.messagesDropped++
	h.mu.Unlock()

	h.metrics.RecordDroppedMessage(ctx, msgType, "buffer_full")
	h.logger.WarnContext(ctx, "Client send buffer full, disconnecting",
		slog.String("client_id", client.id))
	return false
}

// Broadcast sends a message of msgType carrying data to every connected
// client. The trace id of ctx, if any, is attached.
func (h *Hub) Broadcast(ctx context.Context, msgType string, data interface{}) error {
	msg := events.NewMessage(msgType, data)
	if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
		msg = msg.WithTrace(traceID)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", msgType))
		return err
	}

	select {
	case h.broadcast <- outbound{msgType: msgType, data: payload}:
		return nil
	case <-h.quit:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sendTo queues msg for a single client.
func (h *Hub) sendTo(ctx context.Context, client *Client, msg events.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case h.direct <- direct{client: client, data: payload}:
		return nil
	case <-h.quit:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register adds a client to the hub. It reports false when the hub has
// stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop gracefully stops the hub and waits for Run to return
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})

	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if running {
		<-h.done
	}
}

// GetHubMetrics returns current hub metrics
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_dropped":  h.messagesDropped,
	}
}
