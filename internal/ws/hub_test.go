package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(ctx)
	go hub.Run()
	t.Cleanup(cancel)
	return hub, cancel
}

func dialUser(t *testing.T, hub *Hub, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(conn, hub, userID).Run(r.Context())
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.ConnectedClients(userID) == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_BroadcastToUser(t *testing.T) {
	hub, _ := startHub(t)
	user := uuid.New()
	conn := dialUser(t, hub, user)

	require.NoError(t, hub.BroadcastToUser(user, "report_false", map[string]any{"warning_count": 1}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "report_false", msg.Type)
	assert.EqualValues(t, 1, msg.Data["warning_count"])
}

func TestHub_NoClientsIsNotAnError(t *testing.T) {
	hub, _ := startHub(t)

	assert.NoError(t, hub.BroadcastToUser(uuid.New(), "report_false", nil))
	assert.Zero(t, hub.ConnectedClients(uuid.New()))
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	hub, _ := startHub(t)
	user := uuid.New()
	conn := dialUser(t, hub, user)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.ConnectedClients(user) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_StoppedHubRejectsBroadcast(t *testing.T) {
	hub, cancel := startHub(t)
	cancel()

	assert.Eventually(t, func() bool {
		return hub.BroadcastToUser(uuid.New(), "report_false", nil) != nil
	}, time.Second, 10*time.Millisecond)
}
