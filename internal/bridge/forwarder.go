// Package bridge is the companion host's relay: it accepts acknowledgment
// timestamps from the wearable, encodes them as 8-byte frames, and forwards
// them over a single outbound connection to the mobile client.
package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/large-farva/bfrb-sense/internal/eventlog"
	"github.com/large-farva/bfrb-sense/internal/link"
)

// ForwarderStats counts outcomes of forward attempts.
type ForwarderStats struct {
	Forwarded  uint64 `json:"forwarded"`
	Dropped    uint64 `json:"dropped"`
	Reconnects uint64 `json:"reconnects"`
}

// handle is one connection attempt. Once detached, none of its callbacks
// touch the forwarder again.
type handle struct {
	conn     *websocket.Conn
	detached atomic.Bool
}

// Forwarder owns exactly one outbound connection. Frames are written only
// while it is Open. A forward attempt against a Closed connection tears the
// old handle down and dials a new one, but the frame that prompted the
// reconnect is dropped; only later frames use the new connection.
type Forwarder struct {
	URL string

	// OnState, if set, is called after every state change with the
	// forwarder's lock released.
	OnState func(link.State)

	dialer *websocket.Dialer
	log    *eventlog.Logger
	ctx    context.Context

	mu    sync.Mutex
	cur   *handle
	state link.State
	stats ForwarderStats
}

// NewForwarder returns a Closed forwarder targeting url.
func NewForwarder(url string, logger *eventlog.Logger) *Forwarder {
	return &Forwarder{
		URL:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		log:    logger,
		ctx:    context.Background(),
		state:  link.Closed,
	}
}

// Start opens the first connection. Dials started later by Forward are
// bound to ctx as well.
func (f *Forwarder) Start(ctx context.Context) {
	f.mu.Lock()
	f.ctx = ctx
	f.connectLocked()
	f.mu.Unlock()
	f.notify(link.Connecting)

	go func() {
		<-ctx.Done()
		f.Close()
	}()
}

// Forward sends one frame if the connection is open. It reports whether
// the frame was written.
func (f *Forwarder) Forward(b []byte) bool {
	f.mu.Lock()
	if f.state != link.Open {
		state := f.state
		f.stats.Dropped++
		reconnect := state == link.Closed
		if reconnect {
			f.stats.Reconnects++
			f.connectLocked()
		}
		f.mu.Unlock()

		f.log.Warnf("couldn't send to mobile: state=%s", state)
		if reconnect {
			f.log.Infof("reconnecting to %s", f.URL)
			f.notify(link.Connecting)
		}
		return false
	}

	h := f.cur
	_ = h.conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	if err := h.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		f.stats.Dropped++
		f.teardownLocked()
		f.state = link.Closed
		f.mu.Unlock()
		f.log.Errorf("websocket error: %v", err)
		f.notify(link.Closed)
		return false
	}
	f.stats.Forwarded++
	f.mu.Unlock()
	return true
}

// Close tears down the current connection without reconnecting.
func (f *Forwarder) Close() {
	f.mu.Lock()
	if f.cur == nil {
		f.mu.Unlock()
		return
	}
	f.state = link.Closing
	f.teardownLocked()
	f.state = link.Closed
	f.mu.Unlock()
	f.notify(link.Closed)
}

// State returns the current connection state.
func (f *Forwarder) State() link.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Stats returns a snapshot of the counters.
func (f *Forwarder) Stats() ForwarderStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// connectLocked replaces the current handle with a fresh dial. f.mu must
// be held.
func (f *Forwarder) connectLocked() {
	f.teardownLocked()
	h := &handle{}
	f.cur = h
	f.state = link.Connecting
	go f.dial(f.ctx, h)
}

// teardownLocked detaches the current handle's callbacks before closing
// its socket, so its read loop cannot report a stale close. f.mu must be
// held.
func (f *Forwarder) teardownLocked() {
	h := f.cur
	if h == nil {
		return
	}
	f.cur = nil
	h.detached.Store(true)
	if h.conn != nil {
		_ = h.conn.Close()
	}
}

func (f *Forwarder) dial(ctx context.Context, h *handle) {
	conn, _, err := f.dialer.DialContext(ctx, f.URL, nil)

	f.mu.Lock()
	if h.detached.Load() {
		f.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		f.state = link.Closed
		f.mu.Unlock()
		f.log.Errorf("websocket error: %v", err)
		f.notify(link.Closed)
		return
	}
	h.conn = conn
	f.state = link.Open
	f.mu.Unlock()

	f.log.Infof("websocket opened (%s)", f.URL)
	f.notify(link.Open)
	go f.readLoop(h)
}

// readLoop watches for the remote end going away. The mobile client never
// sends anything meaningful on this connection.
func (f *Forwarder) readLoop(h *handle) {
	for {
		if _, _, err := h.conn.ReadMessage(); err != nil {
			break
		}
	}
	if h.detached.Load() {
		return
	}

	f.mu.Lock()
	if h.detached.Load() || f.cur != h {
		f.mu.Unlock()
		return
	}
	f.state = link.Closed
	f.mu.Unlock()
	f.log.Warnf("websocket closed")
	f.notify(link.Closed)
}

func (f *Forwarder) notify(s link.State) {
	if f.OnState != nil {
		f.OnState(s)
	}
}
