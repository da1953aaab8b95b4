// Package dashboard implements the thin process-control, log-tail, and
// symbol-mapping CRUD surface for the copier's companion operator UI:
// an http.ServeMux with mapping CRUD, log-tail endpoints, and a
// WebSocket hub/client broadcaster for live tailing.
package dashboard

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// replayBufferSize caps how many recently appended audit-log lines the hub
// keeps around to hand a newly connected client as its opening snapshot, so
// the client doesn't have to re-read the audit file itself.
const replayBufferSize = defaultLogTailLines

// logEvent is the one wire shape pushed over the WebSocket: "snapshot" once
// on connect with whatever is in the replay buffer, then "append" for every
// batch the follower picks up afterwards.
type logEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Lines     []string  `json:"lines"`
}

// Hub fans appended audit-log lines out to every connected WebSocket
// client and replays a bounded backlog to clients as they join, so a
// dashboard opened mid-session isn't staring at an empty tail.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []string
	mu         sync.RWMutex
	recent     []string
	logger     *slog.Logger
}

// Client is one connected WebSocket subscriber.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub. Seed loads an initial replay backlog before
// Run starts accepting new connections.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []string, 256),
		logger:     logger.With("component", "ws-hub"),
	}
}

// Seed populates the replay buffer handed to clients that connect before
// the first BroadcastLines call, e.g. the audit lines already on disk at
// dashboard start-up.
func (h *Hub) Seed(lines []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recent = appendBounded(nil, lines, replayBufferSize)
}

// Run drives the hub's client registry and fan-out loop. Call it in its own
// goroutine; it never returns.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			backlog := h.recent
			h.mu.Unlock()
			h.logger.Info("client connected", "count", len(h.clients))
			if len(backlog) > 0 {
				h.deliver(client, logEvent{Type: "snapshot", Timestamp: time.Now(), Lines: backlog})
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected", "count", len(h.clients))

		case lines := <-h.broadcast:
			h.mu.Lock()
			h.recent = appendBounded(h.recent, lines, replayBufferSize)
			h.mu.Unlock()
			h.fanOut(logEvent{Type: "append", Timestamp: time.Now(), Lines: lines})
		}
	}
}

// BroadcastLines queues a batch of newly appended audit-log lines for
// fan-out. It never blocks the caller (the follower's poll loop): a full
// queue drops the batch rather than stall log tailing on a slow client.
func (h *Hub) BroadcastLines(lines []string) {
	select {
	case h.broadcast <- lines:
	default:
		h.logger.Warn("broadcast channel full, dropping log batch", "lines", len(lines))
	}
}

func (h *Hub) fanOut(evt logEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal log event", "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) deliver(client *Client, evt logEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal log event", "error", err)
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.Warn("failed to deliver snapshot to newly connected client")
	}
}

func appendBounded(recent, lines []string, max int) []string {
	recent = append(recent, lines...)
	if len(recent) > max {
		recent = recent[len(recent)-max:]
	}
	return recent
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("websocket error", "error", err)
			}
			break
		}
		// the dashboard is read-only; inbound frames are only pings/closes
	}
}

// NewClient registers conn with hub and starts its read/write pumps. The
// caller has already completed the WebSocket handshake.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	hub.register <- client
	go client.writePump()
	go client.readPump()
	return client
}
