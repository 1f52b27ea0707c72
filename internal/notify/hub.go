// Package notify pushes order and payment events to currently
// connected subscribers. Delivery is best-effort and at most once per
// subscriber: events are dropped when nobody is connected or a
// subscriber cannot keep up. There is no queue and no replay.
package notify

import (
	"sync"
	"time"

	"shopfront/internal/model"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	sendBufferSize = 16
	writeTimeout   = 10 * time.Second
)

// subscriber is one connected websocket with its own buffered queue.
type subscriber struct {
	conn   *websocket.Conn
	send   chan model.NotificationEvent
	userID string
	admin  bool
}

// Hub fans events out to subscribers, keyed by user id or the admin
// audience. The identity a subscriber is keyed by is bound server-side
// at connection time from the verified request identity; nothing a
// client sends over the socket is trusted.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	logger      zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		logger:      logger.With().Str("component", "notify-hub").Logger(),
	}
}

// Publish delivers the event to every matching connected subscriber:
// the target user's connections, and, for the admin audience, every
// admin connection. Subscribers with full buffers miss the event.
func (h *Hub) Publish(event model.NotificationEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subscribers {
		if !sub.matches(event.Target) {
			continue
		}
		select {
		case sub.send <- event:
			delivered++
		default:
			h.logger.Warn().
				Str("user_id", sub.userID).
				Str("type", event.Type).
				Msg("subscriber buffer full, event dropped")
		}
	}

	h.logger.Debug().
		Str("target", event.Target).
		Str("type", event.Type).
		Int("delivered", delivered).
		Msg("event published")
}

func (s *subscriber) matches(target string) bool {
	if target == model.AudienceAdmin {
		return s.admin
	}
	return s.userID == target
}

// Serve binds the connection to the given verified identity and
// blocks until the peer disconnects.
func (h *Hub) Serve(conn *websocket.Conn, userID string, admin bool) {
	sub := &subscriber{
		conn:   conn,
		send:   make(chan model.NotificationEvent, sendBufferSize),
		userID: userID,
		admin:  admin,
	}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Info().
		Str("user_id", userID).
		Bool("admin", admin).
		Int("subscribers", count).
		Msg("subscriber connected")

	done := make(chan struct{})
	go h.writePump(sub, done)
	h.readPump(sub)
	close(done)

	h.mu.Lock()
	delete(h.subscribers, sub)
	h.mu.Unlock()

	conn.Close()
	h.logger.Info().Str("user_id", userID).Msg("subscriber disconnected")
}

// writePump drains the subscriber's queue onto the wire.
func (h *Hub) writePump(sub *subscriber, done <-chan struct{}) {
	for {
		select {
		case event := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := sub.conn.WriteJSON(event); err != nil {
				h.logger.Debug().Err(err).Str("user_id", sub.userID).Msg("write failed")
				sub.conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}

// readPump consumes inbound frames only to detect disconnects.
// Client messages carry no authority here: the subscription identity
// was fixed at connect time.
func (h *Hub) readPump(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// SubscriberCount reports the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
