package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"husholdning/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBuffer = 256
)

// clientMessage is what browsers may send: heartbeats and result
// subscriptions
type clientMessage struct {
	Type     string `json:"type"`
	ResultID string `json:"result_id,omitempty"`
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time
	logger      *slog.Logger

	subMu         sync.RWMutex
	subscriptions map[string]bool

	messagesSent     int64
	messagesReceived int64
}

// NewClient creates a client for conn
func NewClient(hub *Hub, conn Connection, traceID string, logger *slog.Logger) *Client {
	id := uuid.New().String()
	logger = infrastructure.WithComponent(logger, "websocket.client").With(slog.String("client_id", id))
	if traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}
	return &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, sendBuffer),
		id:            id,
		traceID:       traceID,
		remoteAddr:    conn.RemoteAddr(),
		connectedAt:   time.Now(),
		logger:        logger,
		subscriptions: make(map[string]bool),
	}
}

// ID returns the client ID
func (c *Client) ID() string { return c.id }

func (c *Client) context() context.Context {
	if c.traceID == "" {
		return context.Background()
	}
	return infrastructure.WithTraceID(context.Background(), c.traceID)
}

// wants reports whether a message for resultID should reach the client.
// Without subscriptions the client receives everything.
func (c *Client) wants(resultID string) bool {
	if resultID == "" {
		return true
	}
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions) == 0 || c.subscriptions[resultID]
}

// Subscribe limits delivery to resultID plus any earlier subscriptions
func (c *Client) Subscribe(resultID string) {
	c.subMu.Lock()
	c.subscriptions[resultID] = true
	c.subMu.Unlock()
}

// Unsubscribe drops a subscription
func (c *Client) Unsubscribe(resultID string) {
	c.subMu.Lock()
	delete(c.subscriptions, resultID)
	c.subMu.Unlock()
}

// ReadPump pumps messages from the websocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.logger.InfoContext(c.context(), "client_disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.messagesReceived))
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	pongWait := c.hub.pongWait
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WarnContext(c.context(), "unexpected_close", slog.String("error", err.Error()))
			}
			return
		}
		c.messagesReceived++
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.DebugContext(c.context(), "client_message_ignored", slog.String("error", err.Error()))
		return
	}
	switch msg.Type {
	case "heartbeat":
	case "subscribe":
		if msg.ResultID != "" {
			c.Subscribe(msg.ResultID)
			c.logger.DebugContext(c.context(), "client_subscribed", slog.String("result_id", msg.ResultID))
		}
	case "unsubscribe":
		c.Unsubscribe(msg.ResultID)
	default:
		c.logger.DebugContext(c.context(), "client_message_ignored", slog.String("type", msg.Type))
	}
}

// WritePump pumps messages from the hub to the websocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.DebugContext(c.context(), "write_pump_stopped", slog.Int64("messages_sent", c.messagesSent))
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.WarnContext(c.context(), "write_failed", slog.String("error", err.Error()))
				return
			}
			c.messagesSent++

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "ping_failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}
