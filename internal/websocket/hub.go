// Package websocket implements the web interface's browser transport: a
// Hub of live connections grouped by channelID (one browser tab per
// conversation), and a Transport adapting that Hub to progress.Sender so
// a web-based interface plugin can drive internal/progress.Router the
// same way a chat-platform interface would.
//
// Adapted from the teacher's internal/websocket: the channel-driven
// Hub.Run() register/unregister/broadcast loop and per-client buffered
// send queue are kept almost verbatim. Org/Kubernetes-namespace scoping
// is replaced with channelID scoping (spec.md has no multi-tenant
// concept — "channel" here is the conversation/surface a message
// arrived on, e.g. a browser tab), and message framing is rebuilt around
// jobs.ProgressEvent instead of session lifecycle events.
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rizom-ai/brains-sub000/internal/logger"
)

// Hub maintains active WebSocket connections and broadcasts messages to
// the clients subscribed to a given channelID.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan hubMessage
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

type hubMessage struct {
	channelID string
	payload   []byte
}

// Client represents one browser connection, scoped to a single
// channelID (conversation/surface).
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	id        string
	channelID string
	onInbound func(text string)
}

// NewHub creates an empty, unstarted Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan hubMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run processes register/unregister/broadcast events in an endless loop;
// it takes no context and has no stop signal. Intended to run in its own
// goroutine for the life of the process.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Manager().Debug().Str("client", client.id).Str("channel", client.channelID).Msg("websocket client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			var toClose []*Client
			for client := range h.clients {
				if client.channelID != msg.channelID {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					toClose = append(toClose, client)
				}
			}
			h.mu.RUnlock()

			if len(toClose) > 0 {
				h.mu.Lock()
				for _, client := range toClose {
					close(client.send)
					delete(h.clients, client)
				}
				h.mu.Unlock()
			}
		}
	}
}

// BroadcastToChannel sends payload to every client subscribed to
// channelID.
func (h *Hub) BroadcastToChannel(channelID string, payload []byte) {
	h.broadcast <- hubMessage{channelID: channelID, payload: payload}
}

// ClientCount returns the number of connected clients across all
// channels.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeClient registers conn as a new client scoped to channelID and
// starts its read/write pumps. onInbound, if non-nil, is invoked with
// the text of every message the browser sends up the socket.
func (h *Hub) ServeClient(conn *websocket.Conn, clientID, channelID string, onInbound func(text string)) {
	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		id:        clientID,
		channelID: channelID,
		onInbound: onInbound,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
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

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Manager().Warn().Str("client", c.id).Err(err).Msg("websocket read error")
			}
			break
		}
		// Browser-originated replies (confirmation answers, free-form
		// text) are decoded by the owning interface plugin, not the hub.
		var inbound inboundFrame
		if err := json.Unmarshal(message, &inbound); err == nil && c.onInbound != nil {
			c.onInbound(inbound.Text)
		}
	}
}

type inboundFrame struct {
	Text string `json:"text"`
}
