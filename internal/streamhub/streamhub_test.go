package streamhub

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/bfrb-sense/internal/eventlog"
	"github.com/large-farva/bfrb-sense/internal/frame"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newHub(t *testing.T) (*Hub, *httptest.Server, *httptest.Server) {
	t.Helper()
	h := New(eventlog.Discard())
	dev := httptest.NewServer(h.DeviceHandler())
	cli := httptest.NewServer(h.ClientHandler())
	t.Cleanup(dev.Close)
	t.Cleanup(cli.Close)
	return h, dev, cli
}

func TestDeviceFrameReachesClient(t *testing.T) {
	h, dev, cli := newHub(t)

	client := dial(t, cli)
	device := dial(t, dev)
	require.Eventually(t, func() bool {
		st := h.Stats()
		return st["device"].Connected && st["client"].Connected
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, device.WriteMessage(websocket.BinaryMessage, frame.Encode(1704067200000)))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, typ)
	ms, err := frame.Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, int64(1704067200000), ms)

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("hi")))
	_ = device.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err = device.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hi", string(msg))
}

func TestMessageDroppedWithoutPeer(t *testing.T) {
	h, dev, _ := newHub(t)
	device := dial(t, dev)
	require.NoError(t, device.WriteMessage(websocket.BinaryMessage, frame.Encode(1)))

	require.Eventually(t, func() bool { return h.Stats()["device"].Dropped == 1 }, 2*time.Second, 10*time.Millisecond)
	st := h.Stats()["device"]
	assert.Equal(t, uint64(1), st.Received)
	assert.Zero(t, st.Forwarded)
}

func TestLatestClientWins(t *testing.T) {
	h, dev, cli := newHub(t)

	first := dial(t, cli)
	require.Eventually(t, func() bool { return h.Stats()["client"].Connections == 1 }, 2*time.Second, 10*time.Millisecond)
	second := dial(t, cli)
	require.Eventually(t, func() bool { return h.Stats()["client"].Connections == 2 }, 2*time.Second, 10*time.Millisecond)

	device := dial(t, dev)
	require.Eventually(t, func() bool { return h.Stats()["device"].Connected }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, device.WriteMessage(websocket.BinaryMessage, frame.Encode(7)))

	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := second.ReadMessage()
	require.NoError(t, err)
	assert.Len(t, msg, frame.Size)

	_ = first.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = first.ReadMessage()
	assert.Error(t, err)
}

func TestDisconnectClearsSide(t *testing.T) {
	h, _, cli := newHub(t)
	client := dial(t, cli)
	require.Eventually(t, func() bool { return h.Stats()["client"].Connected }, 2*time.Second, 10*time.Millisecond)

	_ = client.Close()
	require.Eventually(t, func() bool { return !h.Stats()["client"].Connected }, 2*time.Second, 10*time.Millisecond)
}
