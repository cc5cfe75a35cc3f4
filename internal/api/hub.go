package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/talgya/solsim/internal/event"
)

// streamMessage is the JSON envelope for every frame on /api/v1/stream.
type streamMessage struct {
	Kind    event.Kind  `json:"kind"`
	Tick    uint64      `json:"tick"`
	Payload event.Event `json:"payload"`
}

// Hub fans bus events out to every connected websocket client. Slow clients
// are dropped rather than allowed to back-pressure the simulation.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
}

// NewHub creates a hub. Run it in a goroutine and attach it to the bus with
// AttachBus before stepping begins.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// AttachBus subscribes the hub to every simulation event.
func (h *Hub) AttachBus(bus *event.Bus) {
	bus.SubscribeAll(func(e event.Event) {
		raw, err := json.Marshal(streamMessage{
			Kind:    e.EventKind(),
			Tick:    e.Tick(),
			Payload: e,
		})
		if err != nil {
			return
		}
		select {
		case h.broadcast <- raw:
		default:
			// The hub is saturated; the tick loop never blocks on observers.
		}
	})
}

// Run is the hub event loop. Blocks.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			slog.Info("stream client connected", "clients", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades an HTTP request to a streaming websocket connection.
func ServeWs(h *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- c
	go c.writePump()
	go c.readPump()
}

// readPump discards client frames; the stream is one-way. It exists to
// detect disconnects.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
