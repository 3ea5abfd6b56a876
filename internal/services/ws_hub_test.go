package services_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"social-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type wsEnvelope struct {
	Type    string          `json:"type"`
	Count   *int            `json:"count"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// connectUser opens a websocket registered in hub under userID and returns the client end
func connectUser(t *testing.T, hub *services.WSHub, userID string) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(userID, conn)
		defer hub.Unregister(userID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.Eventually(t, func() bool { return hub.IsOnline(userID) }, 2*time.Second, 10*time.Millisecond)
	return client
}

func readMessage(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsEnvelope
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWSHubSendToUser(t *testing.T) {
	hub := services.NewWSHub()
	client := connectUser(t, hub, "user-1")

	count := 3
	require.NoError(t, hub.SendToUser("user-1", services.WSMessage{Type: services.WSTypeUnreadCount, Count: &count}))

	msg := readMessage(t, client)
	require.Equal(t, services.WSTypeUnreadCount, msg.Type)
	require.NotNil(t, msg.Count)
	require.Equal(t, 3, *msg.Count)

	require.Error(t, hub.SendToUser("user-2", services.WSMessage{Type: services.WSTypePing}))
	require.False(t, hub.IsOnline("user-2"))
}

func TestWSHubReplacesConnection(t *testing.T) {
	hub := services.NewWSHub()
	first := connectUser(t, hub, "user-1")
	second := connectUser(t, hub, "user-1")

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := first.ReadMessage()
	require.Error(t, err)

	// the replaced connection's handler exiting must not drop the new one
	require.True(t, hub.IsOnline("user-1"))
	require.NoError(t, hub.SendToUser("user-1", services.WSMessage{Type: services.WSTypePong}))
	require.Equal(t, services.WSTypePong, readMessage(t, second).Type)
}

func TestWSHubUnregisterOnDisconnect(t *testing.T) {
	hub := services.NewWSHub()
	client := connectUser(t, hub, "user-1")

	require.NoError(t, client.Close())
	require.Eventually(t, func() bool { return !hub.IsOnline("user-1") }, 2*time.Second, 10*time.Millisecond)
}

func TestWSHubClose(t *testing.T) {
	hub := services.NewWSHub()
	client := connectUser(t, hub, "user-1")

	hub.Close()
	require.False(t, hub.IsOnline("user-1"))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := client.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}
