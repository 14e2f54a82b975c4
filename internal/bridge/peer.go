package bridge

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/large-farva/bfrb-sense/internal/eventlog"
	"github.com/large-farva/bfrb-sense/internal/frame"
)

// Result describes what happened to one relay message.
type Result struct {
	Text      string `json:"text"`
	Millis    int64  `json:"millis,omitempty"`
	Forwarded bool   `json:"forwarded"`
	Error     string `json:"error,omitempty"`
}

// Sender is the outbound half of the bridge.
type Sender interface {
	Forward(b []byte) bool
}

// Bridge turns relay text into frames and hands them to the sender.
type Bridge struct {
	// OnResult, if set, is called for every inbound message.
	OnResult func(Result)

	out      Sender
	log      *eventlog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	peers int
}

// New returns a bridge forwarding through out.
func New(out Sender, logger *eventlog.Logger) *Bridge {
	return &Bridge{
		out: out,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleMessage processes one relay message from the wearable.
func (b *Bridge) HandleMessage(text string) Result {
	res := Result{Text: text}
	buf, ms, err := frame.FromText(text)
	switch {
	case errors.Is(err, frame.ErrEmptyTimestamp):
		b.log.Warnf("no timestamp received")
		res.Error = err.Error()
	case err != nil:
		b.log.Warnf("bad timestamp from wearable: %v", err)
		res.Error = err.Error()
	default:
		b.log.Infof("received data: %q (%d ms)", text, ms)
		res.Millis = ms
		res.Forwarded = b.out.Forward(buf)
	}
	if b.OnResult != nil {
		b.OnResult(res)
	}
	return res
}

// Peers returns the number of connected wearables.
func (b *Bridge) Peers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peers
}

// PeerHandler upgrades wearable connections and feeds each text message
// to HandleMessage in arrival order.
func (b *Bridge) PeerHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// The upgrader has already written an HTTP error.
			b.log.Warnf("peer upgrade failed: %v", err)
			return
		}
		b.mu.Lock()
		b.peers++
		b.mu.Unlock()
		b.log.Infof("wearable connected from %s", r.RemoteAddr)

		defer func() {
			_ = conn.Close()
			b.mu.Lock()
			b.peers--
			b.mu.Unlock()
		}()

		for {
			typ, msg, err := conn.ReadMessage()
			if err != nil {
				b.log.Warnf("wearable disconnected: %v", err)
				return
			}
			if typ != websocket.TextMessage {
				b.log.Warnf("ignoring %d-byte non-text message from wearable", len(msg))
				continue
			}
			b.HandleMessage(string(msg))
		}
	})
}
