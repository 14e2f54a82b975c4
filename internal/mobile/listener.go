package mobile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/large-farva/bfrb-sense/internal/eventlog"
	"github.com/large-farva/bfrb-sense/internal/frame"
	"github.com/large-farva/bfrb-sense/internal/link"
)

// ErrAlreadyConnected is returned by Connect while a dialed connection is
// still open.
var ErrAlreadyConnected = errors.New("already connected")

// Detection is one frame arriving from the companion. Any frame counts;
// Millis is filled in only when the payload is a well-formed 8-byte frame.
type Detection struct {
	At      time.Time `json:"at"`
	Bytes   int       `json:"bytes"`
	Millis  int64     `json:"millis,omitempty"`
	Decoded bool      `json:"decoded"`
	Source  string    `json:"source"`
}

// ListenerStats counts what the listener has seen.
type ListenerStats struct {
	Frames      uint64 `json:"frames"`
	Connections uint64 `json:"connections"`
	Active      int    `json:"active"`
	LastFrame   string `json:"last_frame,omitempty"`
}

// Listener accepts frame connections from the companion, or dials a stream
// hub on request. It never reconnects on its own.
type Listener struct {
	// OnDetection is called for every frame, in arrival order per
	// connection.
	OnDetection func(Detection)

	// OnState is called after every state change with the lock released.
	OnState func(link.State)

	upgrader websocket.Upgrader
	dialer   *websocket.Dialer
	log      *eventlog.Logger
	now      func() time.Time

	mu         sync.Mutex
	state      link.State
	dialed     *websocket.Conn
	connecting bool
	stats      ListenerStats
}

// NewListener returns a Closed listener.
func NewListener(logger *eventlog.Logger) *Listener {
	return &Listener{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		log:    logger,
		now:    time.Now,
		state:  link.Closed,
	}
}

// Handler accepts companion connections. Plain HTTP requests get a 404 so
// the listener can share the root path with nothing else.
func (l *Listener) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !websocket.IsWebSocketUpgrade(r) {
			http.NotFound(w, r)
			return
		}
		conn, err := l.upgrader.Upgrade(w, r, nil)
		if err != nil {
			l.log.Warnf("upgrade from %s failed: %v", r.RemoteAddr, err)
			return
		}
		l.log.Infof("companion connected from %s", r.RemoteAddr)
		l.attach()
		l.serve(conn, r.RemoteAddr, false)
	})
}

// Connect dials a stream hub and reads frames from it in the background.
// It is the only way a dropped dialed connection comes back.
func (l *Listener) Connect(ctx context.Context, url string) error {
	l.mu.Lock()
	if l.dialed != nil || l.connecting {
		l.mu.Unlock()
		return ErrAlreadyConnected
	}
	l.connecting = true
	idle := l.stats.Active == 0
	l.mu.Unlock()

	// A live accepted connection keeps the listener Open whatever the dial does.
	if idle {
		l.setState(link.Connecting)
	}
	conn, _, err := l.dialer.DialContext(ctx, url, nil)
	if err != nil {
		l.log.Errorf("connect %s: %v", url, err)
		l.mu.Lock()
		l.connecting = false
		idle = l.stats.Active == 0
		l.mu.Unlock()
		if idle {
			l.setState(link.Error)
		}
		return fmt.Errorf("connect %s: %w", url, err)
	}

	l.mu.Lock()
	l.dialed = conn
	l.connecting = false
	l.mu.Unlock()
	l.log.Infof("connected to %s", url)
	l.attach()

	go l.serve(conn, url, true)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	return nil
}

// State returns the connection state.
func (l *Listener) State() link.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Stats returns a snapshot of the counters.
func (l *Listener) Stats() ListenerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Listener) attach() {
	l.mu.Lock()
	l.stats.Connections++
	l.stats.Active++
	l.mu.Unlock()
	l.setState(link.Open)
}

func (l *Listener) serve(conn *websocket.Conn, source string, dialed bool) {
	var readErr error
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}
		l.handleFrame(msg, source)
	}
	_ = conn.Close()

	l.mu.Lock()
	l.stats.Active--
	if dialed && l.dialed == conn {
		l.dialed = nil
	}
	remaining := l.stats.Active
	l.mu.Unlock()

	if websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		l.log.Infof("connection from %s closed", source)
		if remaining == 0 {
			l.setState(link.Closed)
		}
		return
	}
	l.log.Errorf("connection from %s failed: %v", source, readErr)
	if remaining == 0 {
		l.setState(link.Error)
	}
}

func (l *Listener) handleFrame(msg []byte, source string) {
	d := Detection{At: l.now(), Bytes: len(msg), Source: source}
	if ms, err := frame.Decode(msg); err == nil {
		d.Millis = ms
		d.Decoded = true
	}

	l.mu.Lock()
	l.stats.Frames++
	if d.Decoded {
		l.stats.LastFrame = frame.FormatTimestamp(time.UnixMilli(d.Millis))
	}
	l.mu.Unlock()

	l.log.Infof("received %d-byte frame", len(msg))
	if l.OnDetection != nil {
		l.OnDetection(d)
	}
}

func (l *Listener) setState(s link.State) {
	l.mu.Lock()
	changed := l.state != s
	l.state = s
	l.mu.Unlock()
	if changed && l.OnState != nil {
		l.OnState(s)
	}
}
