package wearable

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/bfrb-sense/internal/alert"
	"github.com/large-farva/bfrb-sense/internal/classify"
	"github.com/large-farva/bfrb-sense/internal/config"
	"github.com/large-farva/bfrb-sense/internal/eventlog"
	"github.com/large-farva/bfrb-sense/internal/frame"
	"github.com/large-farva/bfrb-sense/internal/link"
	"github.com/large-farva/bfrb-sense/internal/sampler"
	"github.com/large-farva/bfrb-sense/internal/sensor"
)

type chanSource struct{ ch chan sensor.Reading }

func newChanSource() chanSource { return chanSource{ch: make(chan sensor.Reading, 64)} }

func (c chanSource) Open(context.Context, int) (<-chan sensor.Reading, error) { return c.ch, nil }
func (chanSource) Name() string                                               { return "test" }

type fakeRelay struct{ sent []string }

func (f *fakeRelay) Send(text string) bool {
	f.sent = append(f.sent, text)
	return false
}

var (
	inPose  = sensor.Reading{X: 9.3, Y: 0.5, Z: 1.2}
	outPose = sensor.Reading{X: 0.1, Y: 0.2, Z: 9.8}
)

func newSession(t *testing.T, src sensor.Source) (*Session, *Face, *fakeRelay) {
	t.Helper()
	cfg := config.Default()
	logger := eventlog.Discard()
	face := NewFace(nil, logger)
	rel := &fakeRelay{}
	cls := classify.New(classify.BoundsFromConfig(cfg.Calibration), cfg.Wearable.ThresholdPercent)
	smp := sampler.New(src, 5, cfg.Wearable.WindowSize(), cls, logger)
	ctrl := alert.New("alert", face, face, rel, logger)
	return NewSession(smp, ctrl, nil, logger), face, rel
}

func TestFaceEmitsOnlyOnChange(t *testing.T) {
	var events []any
	f := NewFace(func(v any) { events = append(events, v) }, eventlog.Discard())

	f.SetReminder(alert.ReminderDetecting)
	f.SetReminder(alert.ReminderDetecting)
	f.ShowAck(false)
	assert.Len(t, events, 1)

	require.NoError(t, f.Start("alert"))
	assert.Equal(t, "alert", f.State().Haptics)
	f.Stop()
	assert.Empty(t, f.State().Haptics)
	assert.Len(t, events, 3)
}

func TestFaceRejectsUnknownPattern(t *testing.T) {
	f := NewFace(nil, eventlog.Discard())
	assert.Error(t, f.Start("buzz"))
	assert.Empty(t, f.State().Haptics)
}

func TestSessionAlertsAndAcknowledges(t *testing.T) {
	src := newChanSource()
	sess, face, rel := newSession(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	for i := 0; i < 10; i++ {
		src.ch <- inPose
	}
	require.Eventually(t, func() bool {
		return sess.Snapshot().AlertState == "ALERTING"
	}, 2*time.Second, 10*time.Millisecond)

	fs := face.State()
	assert.True(t, fs.AckShown)
	assert.Equal(t, alert.ReminderDetected, fs.Reminder)
	assert.Equal(t, "alert", fs.Haptics)

	res, err := sess.Do(ctx, "ack")
	require.NoError(t, err)
	assert.True(t, res.OK)
	require.NotNil(t, res.Ack)
	assert.False(t, res.Ack.Relayed)
	require.Len(t, rel.sent, 1)
	_, err = frame.ParseTimestamp(rel.sent[0])
	assert.NoError(t, err)

	snap := sess.Snapshot()
	assert.Equal(t, "IDLE", snap.AlertState)
	assert.Equal(t, uint64(1), snap.Alerts)
	assert.Equal(t, uint64(1), snap.Acks)

	fs = face.State()
	assert.False(t, fs.AckShown)
	assert.Equal(t, alert.ReminderDetecting, fs.Reminder)
	assert.Empty(t, fs.Haptics)
}

func TestSessionAckWithoutAlertIsRejected(t *testing.T) {
	src := newChanSource()
	sess, _, rel := newSession(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	res, err := sess.Do(ctx, "ack")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, alert.ErrNotAlerting.Error(), res.Error)
	assert.Empty(t, rel.sent)

	res, err = sess.Do(ctx, "reboot")
	require.NoError(t, err)
	assert.Contains(t, res.Error, "unknown command")
}

func TestSessionStaysAlertingWhenPoseClears(t *testing.T) {
	src := newChanSource()
	sess, _, _ := newSession(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	for i := 0; i < 10; i++ {
		src.ch <- inPose
	}
	for i := 0; i < 10; i++ {
		src.ch <- outPose
	}
	require.Eventually(t, func() bool {
		return sess.Snapshot().Samples == 20
	}, 2*time.Second, 10*time.Millisecond)

	snap := sess.Snapshot()
	assert.Equal(t, "ALERTING", snap.AlertState)
	assert.Equal(t, uint64(1), snap.Alerts)
	assert.False(t, snap.Last.Triggered)
}

func TestSessionWithUnavailableSensor(t *testing.T) {
	sess, _, _ := newSession(t, sensor.Unavailable{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	require.Eventually(t, func() bool {
		return !sess.Snapshot().SensorEnabled
	}, 2*time.Second, 10*time.Millisecond)

	res, err := sess.Do(ctx, "ack")
	require.NoError(t, err)
	assert.False(t, res.OK)
}

func TestDaemonRelaysAckToCompanion(t *testing.T) {
	received := make(chan string, 4)
	up := websocket.Upgrader{}
	companion := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- string(msg)
		}
	}))
	defer companion.Close()

	cfg := config.Default()
	cfg.Wearable.PeerURL = "ws" + strings.TrimPrefix(companion.URL, "http")
	src := newChanSource()

	d, err := New(Options{Logger: log.New(io.Discard, "", 0), Cfg: cfg, Source: src})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.session.Run(ctx)
	d.link.Open(ctx)
	require.Equal(t, link.Open, d.link.State())

	for i := 0; i < 10; i++ {
		src.ch <- inPose
	}
	require.Eventually(t, func() bool {
		return d.session.Snapshot().AlertState == "ALERTING"
	}, 2*time.Second, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	d.handleAck(rec, httptest.NewRequest(http.MethodPost, "/api/ack", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var res CommandResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.Ack)
	assert.True(t, res.Ack.Relayed)

	select {
	case text := <-received:
		assert.Equal(t, res.Ack.Payload, text)
	case <-time.After(2 * time.Second):
		t.Fatal("companion never received the acknowledgment")
	}

	rec = httptest.NewRecorder()
	d.handleAck(rec, httptest.NewRequest(http.MethodPost, "/api/ack", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	d.handleAck(rec, httptest.NewRequest(http.MethodGet, "/api/ack", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
