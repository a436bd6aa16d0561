package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/messagely/internal/models"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// newTestServer upgrades every request and registers the connection for the
// user named in the "user" query parameter.
func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, r.URL.Query().Get("user"))
		if err := hub.Register(client); err != nil {
			_ = conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn, want EventType) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var ev Event
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == want {
			return ev
		}
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func TestHub_NotifyMessageReachesOnlyRecipient(t *testing.T) {
	hub := startHub(t)
	srv := newTestServer(t, hub)

	bob := dial(t, srv, "bob")
	carol := dial(t, srv, "carol")
	require.Eventually(t, func() bool { return hub.IsOnline("bob") && hub.IsOnline("carol") }, time.Second, 5*time.Millisecond)

	hub.NotifyMessage("bob", models.ReceivedMessage{
		ID:       5,
		Body:     "hi bob",
		FromUser: models.Counterpart{Username: "alice"},
	})

	ev := readEvent(t, bob, TypeMessage)
	var msg models.ReceivedMessage
	require.NoError(t, json.Unmarshal(ev.Data, &msg))
	assert.Equal(t, int64(5), msg.ID)
	assert.Equal(t, "alice", msg.FromUser.Username)

	// carol must not see it; a read receipt aimed at carol arrives first.
	hub.NotifyRead("carol", models.ReadReceipt{ID: 9, ReadAt: time.Now()})
	require.NoError(t, carol.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var got Event
		require.NoError(t, carol.ReadJSON(&got))
		require.NotEqual(t, TypeMessage, got.Type)
		if got.Type == TypeMessageRead {
			var receipt models.ReadReceipt
			require.NoError(t, json.Unmarshal(got.Data, &receipt))
			assert.Equal(t, int64(9), receipt.ID)
			break
		}
	}
}

func TestHub_MultipleConnectionsPerUser(t *testing.T) {
	hub := startHub(t)
	srv := newTestServer(t, hub)

	a := dial(t, srv, "bob")
	b := dial(t, srv, "bob")
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.userClients["bob"]) == 2
	}, time.Second, 5*time.Millisecond)

	hub.NotifyMessage("bob", models.ReceivedMessage{ID: 1, Body: "x"})
	readEvent(t, a, TypeMessage)
	readEvent(t, b, TypeMessage)
}

func TestHub_OnlineAndOffline(t *testing.T) {
	hub := startHub(t)
	srv := newTestServer(t, hub)

	watcher := dial(t, srv, "alice")
	require.Eventually(t, func() bool { return hub.IsOnline("alice") }, time.Second, 5*time.Millisecond)

	bob := dial(t, srv, "bob")
	online := readEvent(t, watcher, TypeUserOnline)
	assert.Equal(t, "bob", online.Username)
	assert.Equal(t, []string{"alice", "bob"}, hub.OnlineUsers())

	require.NoError(t, bob.Close())
	offline := readEvent(t, watcher, TypeUserOffline)
	assert.Equal(t, "bob", offline.Username)
	require.Eventually(t, func() bool { return !hub.IsOnline("bob") }, time.Second, 5*time.Millisecond)
}

func TestClient_PingGetsPong(t *testing.T) {
	hub := startHub(t)
	srv := newTestServer(t, hub)

	conn := dial(t, srv, "alice")
	require.Eventually(t, func() bool { return hub.IsOnline("alice") }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Event{Type: TypePing}))
	readEvent(t, conn, TypePong)

	require.NoError(t, conn.WriteJSON(Event{Type: "message"}))
	ev := readEvent(t, conn, TypeError)
	assert.Contains(t, string(ev.Data), ErrInvalidMessage.Error())
}

func TestHub_StopClosesConnectionsAndRejectsNewClients(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	srv := newTestServer(t, hub)

	conn := dial(t, srv, "alice")
	require.Eventually(t, func() bool { return hub.IsOnline("alice") }, time.Second, 5*time.Millisecond)

	hub.Stop()
	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.False(t, hub.IsOnline("alice"))
	assert.Empty(t, hub.OnlineUsers())

	client := &Client{Username: "late", Send: make(chan []byte, 1), Hub: hub}
	assert.ErrorIs(t, hub.Register(client), ErrHubStopped)
	hub.Unregister(client)
}

func TestHub_SendToUnknownUserIsNoop(t *testing.T) {
	hub := startHub(t)
	hub.SendToUser("nobody", []byte("x"))
	hub.NotifyMessage("nobody", models.ReceivedMessage{})
	assert.False(t, hub.IsOnline("nobody"))
}
