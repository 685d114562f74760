package api

import (
	"encoding/json"
	"sync"
	"time"

	"yatravoice/internal/domain/chat"
	"yatravoice/internal/domain/speech"
	"yatravoice/internal/metrics"
	"yatravoice/internal/speech/playback"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	EventState        = "state"
	EventNotification = "notification"
	EventMessage      = "message"

	clientBuffer = 32
	writeTimeout = 5 * time.Second
)

// Event is one message on the /events stream.
type Event struct {
	Type         string                `json:"type"`
	State        *playback.StateChange `json:"state,omitempty"`
	Notification *speech.Notification  `json:"notification,omitempty"`
	Index        *int                  `json:"index,omitempty"`
	Message      *chat.Message         `json:"message,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to connected websocket clients. Slow clients are
// dropped instead of blocking playback.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

func NewHub(m *metrics.Metrics, log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		metrics: m,
		log:     log.WithField("component", "event-hub"),
	}
}

// OnState is a playback.Listener.
func (h *Hub) OnState(change playback.StateChange) {
	h.Broadcast(Event{Type: EventState, State: &change})
}

// Notify implements the playback notifier.
func (h *Hub) Notify(n speech.Notification) {
	h.Broadcast(Event{Type: EventNotification, Notification: &n})
}

// OnAppend is a chat.AppendFunc.
func (h *Hub) OnAppend(msg chat.Message, index int) {
	h.Broadcast(Event{Type: EventMessage, Index: &index, Message: &msg})
}

func (h *Hub) Broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Error("Failed to encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
			h.metrics.EventSent(ev.Type)
		default:
			h.log.Warn("Dropping slow event client")
			h.removeLocked(c)
		}
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// serve registers conn, queues the event built by initial and pumps events
// to it until it disconnects. initial runs under the hub lock once the
// client is registered, so no broadcast can slip in between the two and
// the client never starts from a stale snapshot.
func (h *Hub) serve(conn *websocket.Conn, initial func() Event) {
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.metrics.EventClientConnected()
	ev := initial()
	if payload, err := json.Marshal(ev); err == nil {
		c.send <- payload
		h.metrics.EventSent(ev.Type)
	}
	h.mu.Unlock()

	go h.readLoop(c)
	h.writeLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.WithError(err).Debug("Event client write failed")
			h.remove(c)
			return
		}
	}
}

// readLoop discards client messages and notices disconnects.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.EventClientDisconnected()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
