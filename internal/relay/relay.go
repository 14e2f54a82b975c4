// Package relay is the wearable end of the message channel to the
// companion. Delivery is best effort and at most once: a message is sent
// only while the channel is open, otherwise it is dropped. The channel is
// dialed once and never re-established from this side.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/large-farva/bfrb-sense/internal/eventlog"
	"github.com/large-farva/bfrb-sense/internal/link"
)

// Stats counts what happened on the link.
type Stats struct {
	Sent     uint64 `json:"sent"`
	Dropped  uint64 `json:"dropped"`
	Inbound  uint64 `json:"inbound"`
	LastSent string `json:"last_sent,omitempty"`
}

// Link is safe for concurrent use.
type Link struct {
	URL string

	// OnState, if set, is called after every state change. It runs with
	// the link's lock released.
	OnState func(link.State)

	// OnOpen, if set, is called once when the channel opens.
	OnOpen func()

	dialer *websocket.Dialer
	log    *eventlog.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	state link.State
	stats Stats
}

// New returns a closed link to the companion peer endpoint at url.
func New(url string, logger *eventlog.Logger) *Link {
	return &Link{
		URL:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		log:    logger,
		state:  link.Closed,
	}
}

// Open dials the companion once. A failed dial leaves the link Closed and
// is only logged.
func (l *Link) Open(ctx context.Context) {
	l.setState(link.Connecting)

	conn, _, err := l.dialer.DialContext(ctx, l.URL, nil)
	if err != nil {
		l.log.Warnf("peer socket error: %v", err)
		l.setState(link.Closed)
		return
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	l.log.Infof("peer socket OPEN (%s)", l.URL)
	l.setState(link.Open)
	if l.OnOpen != nil {
		l.OnOpen()
	}

	go l.readLoop(conn)
	go func() {
		<-ctx.Done()
		l.Close()
	}()
}

func (l *Link) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			l.mu.Lock()
			current := l.conn == conn
			if current {
				l.conn = nil
			}
			l.mu.Unlock()
			if current {
				l.log.Warnf("peer socket closed: %v", err)
				l.setState(link.Closed)
			}
			return
		}
		l.mu.Lock()
		l.stats.Inbound++
		l.mu.Unlock()
		l.log.Debugf("peer socket message: %q", msg)
	}
}

// Send writes text to the companion if the channel is open. It returns
// false, without buffering, when the message could not be sent.
func (l *Link) Send(text string) bool {
	l.mu.Lock()
	if l.state != link.Open || l.conn == nil {
		l.stats.Dropped++
		l.mu.Unlock()
		return false
	}
	conn := l.conn
	_ = conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	err := conn.WriteMessage(websocket.TextMessage, []byte(text))
	if err != nil {
		l.stats.Dropped++
		l.conn = nil
		l.mu.Unlock()
		_ = conn.Close()
		l.log.Warnf("peer socket error: %v", err)
		l.setState(link.Closed)
		return false
	}
	l.stats.Sent++
	l.stats.LastSent = text
	l.mu.Unlock()
	return true
}

// Close shuts the channel down. It is safe to call more than once.
func (l *Link) Close() {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()
	if conn == nil {
		return
	}
	l.setState(link.Closing)
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second),
	)
	_ = conn.Close()
	l.setState(link.Closed)
}

// State returns the current ready state.
func (l *Link) State() link.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Stats returns a snapshot of the counters.
func (l *Link) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Link) setState(s link.State) {
	l.mu.Lock()
	changed := l.state != s
	l.state = s
	l.mu.Unlock()
	if changed && l.OnState != nil {
		l.OnState(s)
	}
}
