package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/bfrb-sense/internal/eventlog"
	"github.com/large-farva/bfrb-sense/internal/frame"
	"github.com/large-farva/bfrb-sense/internal/link"
)

// fakeMobile accepts frame connections and records every binary message.
type fakeMobile struct {
	srv    *httptest.Server
	frames chan []byte

	mu      sync.Mutex
	conns   []*websocket.Conn
	accepts int
}

func newFakeMobile(t *testing.T) *fakeMobile {
	t.Helper()
	m := &fakeMobile{frames: make(chan []byte, 16)}
	up := websocket.Upgrader{}
	m.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		m.mu.Lock()
		m.conns = append(m.conns, conn)
		m.accepts++
		m.mu.Unlock()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			m.frames <- msg
		}
	}))
	t.Cleanup(m.srv.Close)
	return m
}

func (m *fakeMobile) url() string { return "ws" + strings.TrimPrefix(m.srv.URL, "http") + "/" }

func (m *fakeMobile) dropAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conns {
		_ = c.Close()
	}
}

func (m *fakeMobile) acceptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepts
}

func waitState(t *testing.T, f *Forwarder, want link.State) {
	t.Helper()
	require.Eventually(t, func() bool { return f.State() == want }, 3*time.Second, 10*time.Millisecond,
		"forwarder never reached %s (at %s)", want, f.State())
}

func TestForwardWhileOpen(t *testing.T) {
	m := newFakeMobile(t)
	f := NewForwarder(m.url(), eventlog.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.Start(ctx)
	waitState(t, f, link.Open)

	want := frame.Encode(1704067200000)
	require.True(t, f.Forward(want))

	select {
	case got := <-m.frames:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatal("mobile never received frame")
	}
	assert.Equal(t, uint64(1), f.Stats().Forwarded)
}

func TestForwardOnClosedReconnectsAndDropsTrigger(t *testing.T) {
	m := newFakeMobile(t)
	f := NewForwarder(m.url(), eventlog.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.Start(ctx)
	waitState(t, f, link.Open)

	m.dropAll()
	waitState(t, f, link.Closed)

	trigger := frame.Encode(111)
	assert.False(t, f.Forward(trigger))
	st := f.State()
	assert.True(t, st == link.Connecting || st == link.Open, "unexpected state %s", st)

	waitState(t, f, link.Open)
	require.Eventually(t, func() bool { return m.acceptCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	next := frame.Encode(222)
	require.True(t, f.Forward(next))

	select {
	case got := <-m.frames:
		assert.Equal(t, next, got, "the frame that triggered the reconnect must not be resent")
	case <-time.After(2 * time.Second):
		t.Fatal("mobile never received follow-up frame")
	}
	select {
	case extra := <-m.frames:
		t.Fatalf("unexpected extra frame %v", extra)
	case <-time.After(100 * time.Millisecond):
	}

	stats := f.Stats()
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, uint64(1), stats.Reconnects)
	assert.Equal(t, uint64(1), stats.Forwarded)
}

func TestForwardWhileConnectingDropsWithoutRedial(t *testing.T) {
	f := NewForwarder("ws://127.0.0.1:1/", eventlog.Discard())
	f.mu.Lock()
	f.state = link.Connecting
	f.mu.Unlock()

	assert.False(t, f.Forward(frame.Encode(1)))
	assert.Equal(t, link.Connecting, f.State())
	assert.Zero(t, f.Stats().Reconnects)
}

func TestStaleHandleDoesNotReportClose(t *testing.T) {
	m := newFakeMobile(t)
	f := NewForwarder(m.url(), eventlog.Discard())

	var mu sync.Mutex
	var closes int
	f.OnState = func(s link.State) {
		if s == link.Closed {
			mu.Lock()
			closes++
			mu.Unlock()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.Start(ctx)
	waitState(t, f, link.Open)

	// Replace the open handle directly; the old read loop must stay quiet.
	f.mu.Lock()
	f.connectLocked()
	f.mu.Unlock()
	waitState(t, f, link.Open)
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	assert.Zero(t, closes)
	mu.Unlock()
	assert.Equal(t, link.Open, f.State())
}

type recordingSender struct{ frames [][]byte }

func (r *recordingSender) Forward(b []byte) bool {
	r.frames = append(r.frames, b)
	return true
}

func TestHandleMessageEncodes(t *testing.T) {
	out := &recordingSender{}
	b := New(out, eventlog.Discard())

	res := b.HandleMessage("2024-01-01T00:00:00.000Z")
	assert.True(t, res.Forwarded)
	assert.Equal(t, int64(1704067200000), res.Millis)
	require.Len(t, out.frames, 1)
	assert.Equal(t, frame.Encode(1704067200000), out.frames[0])
}

func TestHandleMessageRejectsBadInput(t *testing.T) {
	out := &recordingSender{}
	b := New(out, eventlog.Discard())

	assert.False(t, b.HandleMessage("").Forwarded)
	assert.NotEmpty(t, b.HandleMessage("not a time").Error)
	assert.Empty(t, out.frames)
}

func TestPeerHandlerEndToEnd(t *testing.T) {
	m := newFakeMobile(t)
	f := NewForwarder(m.url(), eventlog.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.Start(ctx)
	waitState(t, f, link.Open)

	b := New(f, eventlog.Discard())
	results := make(chan Result, 4)
	b.OnResult = func(r Result) { results <- r }

	peerSrv := httptest.NewServer(b.PeerHandler())
	defer peerSrv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(peerSrv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("2024-01-01T00:00:00.000Z")))

	select {
	case r := <-results:
		assert.True(t, r.Forwarded)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge never handled message")
	}
	select {
	case got := <-m.frames:
		assert.Equal(t, []byte{0x00, 0xF4, 0x51, 0xC2, 0x8C, 0x01, 0x00, 0x00}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("mobile never received frame")
	}
	assert.Equal(t, 1, b.Peers())
}
