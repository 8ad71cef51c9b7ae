package events

import (
	"net/http"
	"sync"
	"time"

	"infraops/internal/api"
	"infraops/pkg/logging"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const websocketWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The event stream is read-only and carries no credentials, so any
	// origin may attach.
	CheckOrigin: func(*http.Request) bool { return true },
}

// websocketSubscriber bridges the bus to one websocket connection. Events
// are forwarded through a ChannelSubscriber so a slow connection is pruned
// instead of blocking publishers.
type websocketSubscriber struct {
	id       string
	conn     *websocket.Conn
	inner    *ChannelSubscriber
	closed   chan struct{}
	detachOn sync.Once
}

// Handler returns an http.Handler that upgrades requests to websocket
// connections and streams every published event to them as JSON envelopes.
func Handler(bus *Bus) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn("Events", "Websocket upgrade failed: %v", err)
			return
		}

		subscriber := &websocketSubscriber{
			id:     uuid.NewString(),
			conn:   conn,
			inner:  NewChannelSubscriber(64),
			closed: make(chan struct{}),
		}
		bus.Subscribe(subscriber)
		logging.Info("Events", "Websocket subscriber %s connected from %s", subscriber.id, r.RemoteAddr)

		go subscriber.writeLoop(bus)
		subscriber.readLoop(bus)
	})
}

func (s *websocketSubscriber) ID() string {
	return s.id
}

func (s *websocketSubscriber) Send(event api.Event) error {
	return s.inner.Send(event)
}

// writeLoop drains the delivery channel onto the connection.
func (s *websocketSubscriber) writeLoop(bus *Bus) {
	defer s.conn.Close()
	for {
		select {
		case event, ok := <-s.inner.Events():
			if !ok {
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(websocketWriteTimeout))
			if err := s.conn.WriteJSON(event); err != nil {
				logging.Debug("Events", "Websocket subscriber %s write failed: %v", s.id, err)
				s.detach(bus)
				return
			}
		case <-s.closed:
			return
		}
	}
}

// readLoop exists to notice the peer going away; inbound payloads are
// discarded.
func (s *websocketSubscriber) readLoop(bus *Bus) {
	defer s.detach(bus)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			logging.Info("Events", "Websocket subscriber %s disconnected", s.id)
			return
		}
	}
}

func (s *websocketSubscriber) detach(bus *Bus) {
	s.detachOn.Do(func() {
		bus.Unsubscribe(s.id)
		s.inner.Close()
		close(s.closed)
		s.conn.Close()
	})
}
