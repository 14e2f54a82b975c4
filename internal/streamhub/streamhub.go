// Package streamhub is the optional two-port relay that sits between the
// companion and a mobile client on another host. The device side accepts
// the companion's frames on loopback; the client side accepts the mobile
// client on the LAN. Each message is forwarded to the other side's most
// recent connection if it is open, and dropped otherwise.
package streamhub

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/large-farva/bfrb-sense/internal/eventlog"
)

// SideStats counts traffic originating on one side.
type SideStats struct {
	Connected   bool   `json:"connected"`
	Connections uint64 `json:"connections"`
	Received    uint64 `json:"received"`
	Forwarded   uint64 `json:"forwarded"`
	Dropped     uint64 `json:"dropped"`
}

type side struct {
	name string

	mu    sync.Mutex // guards conn, stats, and writes to conn
	conn  *websocket.Conn
	stats SideStats
}

func (s *side) attach(c *websocket.Conn) {
	s.mu.Lock()
	s.conn = c
	s.stats.Connections++
	s.mu.Unlock()
}

func (s *side) detach(c *websocket.Conn) {
	s.mu.Lock()
	if s.conn == c {
		s.conn = nil
	}
	s.mu.Unlock()
}

// write sends msg on the side's latest connection. It reports false when
// there is none or the write fails.
func (s *side) write(typ int, msg []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return false
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	if err := s.conn.WriteMessage(typ, msg); err != nil {
		_ = s.conn.Close()
		s.conn = nil
		return false
	}
	return true
}

func (s *side) snapshot() SideStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Connected = s.conn != nil
	return st
}

// Hub pairs a device side with a client side.
type Hub struct {
	// OnForward, if set, is called for every message received.
	OnForward func(from, to string, size int, forwarded bool)

	device   *side
	client   *side
	upgrader websocket.Upgrader
	log      *eventlog.Logger
}

// New returns a hub with both sides empty.
func New(logger *eventlog.Logger) *Hub {
	return &Hub{
		device: &side{name: "device"},
		client: &side{name: "client"},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: logger,
	}
}

// DeviceHandler accepts the companion side.
func (h *Hub) DeviceHandler() http.Handler { return h.handler(h.device, h.client) }

// ClientHandler accepts the mobile side.
func (h *Hub) ClientHandler() http.Handler { return h.handler(h.client, h.device) }

func (h *Hub) handler(from, to *side) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warnf("%s upgrade failed: %v", from.name, err)
			return
		}
		h.log.Infof("%s handler starting (%s)", from.name, r.RemoteAddr)
		from.attach(conn)
		defer func() {
			from.detach(conn)
			_ = conn.Close()
		}()

		for {
			typ, msg, err := conn.ReadMessage()
			if err != nil {
				h.log.Infof("%s disconnected: %v", from.name, err)
				return
			}
			ok := to.write(typ, msg)

			from.mu.Lock()
			from.stats.Received++
			if ok {
				from.stats.Forwarded++
			} else {
				from.stats.Dropped++
			}
			from.mu.Unlock()

			if !ok {
				h.log.Debugf("%s not connected; dropped %d bytes from %s", to.name, len(msg), from.name)
			}
			if h.OnForward != nil {
				h.OnForward(from.name, to.name, len(msg), ok)
			}
		}
	})
}

// Stats returns per-side counters keyed by side name.
func (h *Hub) Stats() map[string]SideStats {
	return map[string]SideStats{
		h.device.name: h.device.snapshot(),
		h.client.name: h.client.snapshot(),
	}
}

// ListenAndServe serves both sides until ctx is cancelled. It fails fast
// if either port cannot be bound.
func (h *Hub) ListenAndServe(ctx context.Context, deviceBind, clientBind string) error {
	devLn, err := net.Listen("tcp", deviceBind)
	if err != nil {
		return fmt.Errorf("device listener: %w", err)
	}
	cliLn, err := net.Listen("tcp", clientBind)
	if err != nil {
		_ = devLn.Close()
		return fmt.Errorf("client listener: %w", err)
	}
	h.log.Infof("device side on ws://%s, client side on ws://%s", devLn.Addr(), cliLn.Addr())

	servers := []*http.Server{
		{Handler: h.DeviceHandler(), ReadHeaderTimeout: 5 * time.Second},
		{Handler: h.ClientHandler(), ReadHeaderTimeout: 5 * time.Second},
	}
	listeners := []net.Listener{devLn, cliLn}

	errc := make(chan error, len(servers))
	for i, srv := range servers {
		go func(srv *http.Server, ln net.Listener) {
			errc <- srv.Serve(ln)
		}(srv, listeners[i])
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for _, srv := range servers {
		_ = srv.Shutdown(shutdownCtx)
	}
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return nil
}
