package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"husholdning/internal/infrastructure"
	"husholdning/pkg/contracts/events"
)

const broadcastBuffer = 256

// outbound is a marshaled message and the result it belongs to
type outbound struct {
	resultID string
	data     []byte
}

// Hub maintains the set of active clients and broadcasts workflow events to
// them. Clients that subscribed to result IDs only receive events for those
// results.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	pingPeriod time.Duration
	pongWait   time.Duration

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithMetrics records the connected client count on metrics
func WithMetrics(metrics *infrastructure.BusinessMetrics) HubOption {
	return func(h *Hub) { h.metrics = metrics }
}

// WithKeepalive sets the ping period and pong wait of client connections
func WithKeepalive(pingPeriod, pongWait time.Duration) HubOption {
	return func(h *Hub) {
		if pongWait > 0 {
			h.pongWait = pongWait
		}
		if pingPeriod > 0 && pingPeriod < h.pongWait {
			h.pingPeriod = pingPeriod
		} else {
			h.pingPeriod = (h.pongWait * 9) / 10
		}
	}
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		pongWait:   60 * time.Second,
		pingPeriod: 54 * time.Second,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start runs the hub loop in the background. Calling it twice is a no-op.
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

// Run is the hub loop
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("hub_stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.totalConnections.Add(1)
			h.recordClients(1)

			h.logger.InfoContext(client.context(), "client_registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			h.sendTo(client, events.MessageTypeConnect, map[string]any{
				"status":    "connected",
				"client_id": client.id,
			}, client.traceID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; !ok {
				h.mu.Unlock()
				continue
			}
			delete(h.clients, client)
			close(client.send)
			count := len(h.clients)
			h.mu.Unlock()
			h.recordClients(-1)

			h.logger.InfoContext(client.context(), "client_unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.wants(msg.resultID) {
			continue
		}
		select {
		case client.send <- msg.data:
			h.messagesSent.Add(1)
		default:
			// A client that cannot keep up is dropped
			close(client.send)
			delete(h.clients, client)
			h.recordClients(-1)
			h.logger.WarnContext(client.context(), "client_send_buffer_full",
				slog.String("client_id", client.id))
		}
	}
}

func (h *Hub) recordClients(delta int64) {
	if h.metrics == nil {
		return
	}
	h.metrics.WebSocketClients.Add(context.Background(), delta)
}

// Publish broadcasts a message of msgType. resultID scopes the message to
// clients subscribed to that result; empty reaches every client.
func (h *Hub) Publish(msgType events.MessageType, resultID string, data any, traceID string) {
	payload, err := marshal(msgType, data, traceID)
	if err != nil {
		h.logger.Error("message_marshal_failed",
			slog.String("type", string(msgType)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- outbound{resultID: resultID, data: payload}:
	default:
		h.messagesDropped.Add(1)
		h.logger.Warn("broadcast_queue_full", slog.String("type", string(msgType)))
	}
}

// PublishStep broadcasts a step status change
func (h *Hub) PublishStep(event events.StepEvent, traceID string) {
	h.Publish(events.MessageTypeWorkflowStep, event.ResultID, event, traceID)
}

// PublishResult broadcasts the end of a run
func (h *Hub) PublishResult(event events.ResultEvent, traceID string) {
	msgType := events.MessageTypeWorkflowCompleted
	if event.Status == "failed" {
		msgType = events.MessageTypeWorkflowFailed
	}
	h.Publish(msgType, event.ResultID, event, traceID)
}

// sendTo queues a message for a single client
func (h *Hub) sendTo(client *Client, msgType events.MessageType, data any, traceID string) {
	payload, err := marshal(msgType, data, traceID)
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
		h.logger.Warn("client_send_buffer_full", slog.String("client_id", client.id))
	}
}

func marshal(msgType events.MessageType, data any, traceID string) ([]byte, error) {
	return json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			Type:      msgType,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	})
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
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

// Stats returns hub counters for the health endpoint
func (h *Hub) Stats() map[string]any {
	return map[string]any{
		"active_clients":    h.ClientCount(),
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
		"messages_dropped":  h.messagesDropped.Load(),
	}
}

// Stop closes every client connection and ends the hub loop
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
		h.recordClients(-1)
	}
}
