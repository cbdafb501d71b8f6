package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"husholdning/internal/config"
	"husholdning/internal/shared/testutil"
	"husholdning/pkg/contracts/events"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger, WithKeepalive(time.Second, 2*time.Second))
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func newTestClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	client := NewClient(hub, newMockConnection(), "trace-1", logger)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() > 0 }, time.Second, 5*time.Millisecond)
	return client
}

func receive(t *testing.T, c *Client) events.WebSocketMessage {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg events.WebSocketMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return events.WebSocketMessage{}
}

func TestHub_RegisterSendsConnect(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(t, hub)

	msg := receive(t, client)
	assert.Equal(t, events.MessageTypeConnect, msg.Type)
	assert.Equal(t, "trace-1", msg.TraceID)
	data, _ := msg.Data.(map[string]any)
	assert.Equal(t, client.ID(), data["client_id"])
}

func TestHub_PublishStep(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(t, hub)
	receive(t, client)

	hub.PublishStep(events.StepEvent{ResultID: "r1", Kind: "sifo", Key: "utgifter", Status: "completed"}, "")

	msg := receive(t, client)
	assert.Equal(t, events.MessageTypeWorkflowStep, msg.Type)
	data, _ := msg.Data.(map[string]any)
	assert.Equal(t, "utgifter", data["key"])
	assert.Equal(t, "r1", data["result_id"])
}

func TestHub_PublishResultType(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(t, hub)
	receive(t, client)

	hub.PublishResult(events.ResultEvent{ResultID: "r1", Status: "failed", ErrorType: "upstream_timeout"}, "")
	assert.Equal(t, events.MessageTypeWorkflowFailed, receive(t, client).Type)

	hub.PublishResult(events.ResultEvent{ResultID: "r1", Status: "completed"}, "")
	assert.Equal(t, events.MessageTypeWorkflowCompleted, receive(t, client).Type)
}

func TestHub_Subscriptions(t *testing.T) {
	hub := startHub(t)
	watcher := newTestClient(t, hub)
	receive(t, watcher)
	watcher.Subscribe("r2")

	hub.PublishStep(events.StepEvent{ResultID: "r1", Key: "a"}, "")
	hub.PublishStep(events.StepEvent{ResultID: "r2", Key: "b"}, "")

	msg := receive(t, watcher)
	data, _ := msg.Data.(map[string]any)
	assert.Equal(t, "b", data["key"], "events for other results are filtered")

	watcher.Unsubscribe("r2")
	hub.PublishStep(events.StepEvent{ResultID: "r3", Key: "c"}, "")
	msg = receive(t, watcher)
	data, _ = msg.Data.(map[string]any)
	assert.Equal(t, "c", data["key"])
}

func TestClient_HandleMessages(t *testing.T) {
	hub := NewHub(nil)
	logger, _ := testutil.NewTestLogger(t)
	c := NewClient(hub, newMockConnection(), "", logger)

	c.handle([]byte(`{"type":"subscribe","result_id":"abc"}`))
	assert.True(t, c.wants("abc"))
	assert.False(t, c.wants("other"))
	assert.True(t, c.wants(""), "unscoped messages always pass")

	c.handle([]byte(`{"type":"heartbeat"}`))
	c.handle([]byte(`not json`))
	c.handle([]byte(`{"type":"unsubscribe","result_id":"abc"}`))
	assert.True(t, c.wants("other"))
}

func TestClient_ReadPumpUnregisters(t *testing.T) {
	hub := startHub(t)
	logger, _ := testutil.NewTestLogger(t)
	conn := newMockConnection(`{"type":"subscribe","result_id":"r9"}`)
	client := NewClient(hub, conn, "", logger)
	hub.Register(client)

	client.ReadPump()

	assert.True(t, client.wants("r9"))
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(maxMessageSize), conn.limit)
}

func TestHub_StopClosesClients(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	client := newTestClient(t, hub)
	receive(t, client)

	hub.Stop()
	hub.Stop()

	_, ok := <-client.send
	assert.False(t, ok)
	assert.Zero(t, hub.ClientCount())
}

func TestHandler_EndToEnd(t *testing.T) {
	hub := startHub(t)
	// client pumps log after the connection drops
	logger, _ := testutil.NewDetachedLogger()
	srv := httptest.NewServer(NewHandler(hub, config.Default().WebSocket, nil, logger))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?result_id=r1"
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg events.WebSocketMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeConnect, msg.Type)

	hub.PublishStep(events.StepEvent{ResultID: "other", Key: "x"}, "")
	hub.PublishStep(events.StepEvent{ResultID: "r1", Key: "rente"}, "")

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeWorkflowStep, msg.Type)
	data, _ := msg.Data.(map[string]any)
	assert.Equal(t, "rente", data["key"])

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestCheckOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://localhost:8080/ws", nil)
	assert.True(t, checkOrigin(req, nil), "non-browser clients send no origin")

	req.Header.Set("Origin", "http://localhost:8080")
	assert.True(t, checkOrigin(req, nil), "same host")

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, checkOrigin(req, []string{"http://localhost:3000"}))
	assert.True(t, checkOrigin(req, []string{"https://evil.example"}))
}
