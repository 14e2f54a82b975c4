// Package ws provides the event hub every BFRB daemon exposes at /ws.
// Components publish JSON events through the hub and every subscribed
// client (bfrbctl watch, a dashboard) receives them live. Slow or dead
// subscribers are dropped; publishers never block.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 20 * time.Second
	readTimeout  = 60 * time.Second
)

// Hub fans events out to subscribers. Registration, removal, and delivery
// all happen on the Run goroutine.
type Hub struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	upgrader   websocket.Upgrader

	count     atomic.Int64
	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewHub allocates a hub. Call Run in a goroutine to start delivering.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn, 16),
		unregister: make(chan *websocket.Conn, 16),
		broadcast:  make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run delivers events and keepalive pings until ctx is cancelled, then
// closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			h.writeAll(websocket.TextMessage, msg, 3*time.Second)

		case <-ping.C:
			h.writeAll(websocket.PingMessage, nil, 2*time.Second)
		}
	}
}

func (h *Hub) writeAll(typ int, msg []byte, deadline time.Duration) {
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(deadline))
		if err := c.WriteMessage(typ, msg); err != nil {
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *websocket.Conn) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.count.Store(int64(len(h.clients)))
	}
	_ = c.Close()
}

// Handler upgrades subscribers. Anything a subscriber sends is discarded;
// reading only keeps pongs and closes flowing.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.register <- conn

		go func() {
			defer func() { h.unregister <- conn }()
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			conn.SetPongHandler(func(string) error {
				_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
				return nil
			})

			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})
}

// BroadcastJSON queues v for every subscriber. When the queue is full the
// event is dropped.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- b:
		h.published.Add(1)
	default:
		h.dropped.Add(1)
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Counters returns how many events were queued and how many were dropped.
func (h *Hub) Counters() (published, dropped uint64) {
	return h.published.Load(), h.dropped.Load()
}
