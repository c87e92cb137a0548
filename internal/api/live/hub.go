package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/elmarb/edurate/pkg/logger"
)

// Hub fans batch progress events out to websocket subscribers. Slow or
// dead subscribers are dropped, never waited on; progress delivery is
// best-effort and must not slow down the batch itself.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	upgrader websocket.Upgrader
	logger   *logger.Logger
}

type client struct {
	conn *websocket.Conn
	send chan ProgressEvent
}

// ProgressEvent is one progress update of a running batch.
type ProgressEvent struct {
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	SentAt    time.Time `json:"sent_at"`
}

// NewHub creates a new progress hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// HandleWS upgrades the request and subscribes the connection to batch
// progress events until it closes.
// GET /ws/batches
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan ProgressEvent, 16),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.WithField("remote", r.RemoteAddr).Debug("Progress subscriber connected")

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Broadcast queues the event for every subscriber. Subscribers whose
// queue is full miss the event; the next one catches them up.
func (h *Hub) Broadcast(event ProgressEvent) {
	event.SentAt = time.Now()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
		}
	}
}

// Progress adapts the hub to the batch progress callback.
func (h *Hub) Progress(processed, total int) {
	h.Broadcast(ProgressEvent{Processed: processed, Total: total})
}

func (h *Hub) writeLoop(c *client) {
	for event := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteJSON(event); err != nil {
			h.drop(c)
			return
		}
	}
}

// readLoop drains client frames so pings and close handshakes are
// processed; subscribers never send meaningful data.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, open := h.clients[c]
	if open {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if open {
		c.conn.Close()
		h.logger.Debug("Progress subscriber disconnected")
	}
}
