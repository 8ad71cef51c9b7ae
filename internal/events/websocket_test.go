package events

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"infraops/internal/api"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestBus(t *testing.T, bus *Bus) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(Handler(bus))
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn, server
}

func waitForSubscribers(t *testing.T, bus *Bus, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber count stuck at %d, want %d", bus.SubscriberCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebsocketStreamsEvents(t *testing.T) {
	bus := NewBus()
	conn, server := dialTestBus(t, bus)
	defer server.Close()
	defer conn.Close()

	waitForSubscribers(t, bus, 1)
	bus.Publish(api.Event{
		Type: api.EventServiceStatus,
		Data: map[string]interface{}{"serviceId": "auth", "to": "running"},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event api.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, api.EventServiceStatus, event.Type)
	assert.Equal(t, "auth", event.Data["serviceId"])
	assert.NotEmpty(t, event.ID)
}

func TestWebsocketDisconnectPrunesSubscriber(t *testing.T) {
	bus := NewBus()
	conn, server := dialTestBus(t, bus)
	defer server.Close()

	waitForSubscribers(t, bus, 1)
	conn.Close()
	waitForSubscribers(t, bus, 0)
}

func TestWebsocketMultipleClients(t *testing.T) {
	bus := NewBus()
	server := httptest.NewServer(Handler(bus))
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer conn.Close()
		conns = append(conns, conn)
	}
	waitForSubscribers(t, bus, 3)

	bus.Publish(api.Event{Type: api.EventHealthSweep})
	for _, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var event api.Event
		require.NoError(t, conn.ReadJSON(&event))
		assert.Equal(t, api.EventHealthSweep, event.Type)
	}
}
