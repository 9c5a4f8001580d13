package sink

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/live-transcriber/internal/observability"
	"github.com/lexiqai/live-transcriber/internal/transcript"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
}

// Message is the JSON envelope pushed to transcript viewers
type Message struct {
	Type     string               `json:"type"` // "snapshot" or "event"
	Event    *transcript.Event    `json:"event,omitempty"`
	Snapshot *transcript.Snapshot `json:"snapshot,omitempty"`
}

type outbound struct {
	kind int
	data []byte
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan outbound
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans transcript events and synthesized speech out to WebSocket viewers.
// A viewer that cannot keep up loses messages instead of slowing the pipeline.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	snapshot func() transcript.Snapshot
	logger   zerolog.Logger
}

// NewHub creates a hub. snapshot, if set, is sent to each viewer on connect.
func NewHub(snapshot func() transcript.Snapshot, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*client),
		snapshot: snapshot,
		logger:   logger,
	}
}

// HandleEvent implements transcript.Sink
func (h *Hub) HandleEvent(e transcript.Event) {
	data, err := json.Marshal(Message{Type: "event", Event: &e})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode transcript event")
		return
	}
	h.broadcast(outbound{kind: websocket.TextMessage, data: data})
}

// BroadcastAudio sends a WAV payload to every viewer as a binary message
func (h *Hub) BroadcastAudio(wav []byte) {
	if len(wav) == 0 {
		return
	}
	h.broadcast(outbound{kind: websocket.BinaryMessage, data: wav})
}

func (h *Hub) broadcast(msg outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			observability.RecordError("slow_client", "sink")
			h.logger.Warn().Str("client_id", c.id).Msg("Viewer send buffer full, dropping message")
		}
	}
}

// Clients returns the number of connected viewers
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every viewer
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
	}
}

// Handler upgrades viewers and keeps them registered until they disconnect
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}

		c := &client{
			id:   observability.NewSessionID(),
			conn: conn,
			send: make(chan outbound, clientSendSize),
		}

		// Broadcasts wait on mu, so no event falls between the snapshot and
		// registration. A line changed just before the snapshot may arrive
		// again as an event; viewers apply events by line index.
		h.mu.Lock()
		if h.snapshot != nil {
			snap := h.snapshot()
			if data, err := json.Marshal(Message{Type: "snapshot", Snapshot: &snap}); err == nil {
				c.send <- outbound{kind: websocket.TextMessage, data: data}
			}
		}
		h.clients[c.id] = c
		h.mu.Unlock()
		h.logger.Info().Str("client_id", c.id).Str("remote", r.RemoteAddr).Msg("Viewer connected")

		go h.writePump(c)
		h.readPump(c)
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		c.close()
	}
	h.mu.Unlock()
}

// readPump discards viewer input and notices disconnects
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
		h.logger.Info().Str("client_id", c.id).Msg("Viewer disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(msg.kind, msg.data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
