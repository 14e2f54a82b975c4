package alert

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/bfrb-sense/internal/classify"
	"github.com/large-farva/bfrb-sense/internal/eventlog"
)

type fakeHaptics struct {
	starts   []string
	stops    int
	startErr error
}

func (f *fakeHaptics) Start(p string) error { f.starts = append(f.starts, p); return f.startErr }
func (f *fakeHaptics) Stop()                { f.stops++ }

type fakeDisplay struct {
	reminder string
	ack      bool
	updates  int
}

func (f *fakeDisplay) SetReminder(s string) { f.reminder = s; f.updates++ }
func (f *fakeDisplay) ShowAck(v bool)       { f.ack = v; f.updates++ }

type fakeRelay struct {
	open bool
	sent []string
}

func (f *fakeRelay) Send(s string) bool {
	if !f.open {
		return false
	}
	f.sent = append(f.sent, s)
	return true
}

type rig struct {
	h *fakeHaptics
	d *fakeDisplay
	r *fakeRelay
	c *Controller
}

func newRig(open bool) rig {
	h, d, r := &fakeHaptics{}, &fakeDisplay{}, &fakeRelay{open: open}
	c := New("alert", h, d, r, eventlog.Discard())
	c.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return rig{h: h, d: d, r: r, c: c}
}

var (
	hit  = classify.Result{PercentIn: 80, Triggered: true}
	miss = classify.Result{PercentIn: 70, Triggered: false}
)

func TestStartsIdle(t *testing.T) {
	rg := newRig(true)
	assert.Equal(t, Idle, rg.c.State())
	assert.Equal(t, ReminderDetecting, rg.d.reminder)
	assert.False(t, rg.d.ack)
}

func TestTriggerRaisesAlert(t *testing.T) {
	rg := newRig(true)
	assert.True(t, rg.c.OnDecision(hit))
	assert.Equal(t, Alerting, rg.c.State())
	assert.Equal(t, []string{"alert"}, rg.h.starts)
	assert.True(t, rg.d.ack)
	assert.Equal(t, ReminderDetected, rg.d.reminder)
}

func TestBelowThresholdStaysIdle(t *testing.T) {
	rg := newRig(true)
	assert.False(t, rg.c.OnDecision(miss))
	assert.Equal(t, Idle, rg.c.State())
	assert.Empty(t, rg.h.starts)
}

func TestRepeatedTriggersAreIdempotent(t *testing.T) {
	rg := newRig(true)
	rg.c.OnDecision(hit)
	updates := rg.d.updates

	for i := 0; i < 5; i++ {
		assert.False(t, rg.c.OnDecision(hit))
	}
	assert.Len(t, rg.h.starts, 1)
	assert.Equal(t, updates, rg.d.updates)
	alerts, _ := rg.c.Counts()
	assert.Equal(t, uint64(1), alerts)
}

func TestLapseDoesNotClearAlert(t *testing.T) {
	rg := newRig(true)
	rg.c.OnDecision(hit)
	for i := 0; i < 20; i++ {
		rg.c.OnDecision(miss)
	}
	assert.Equal(t, Alerting, rg.c.State())
	assert.Zero(t, rg.h.stops)
	assert.Empty(t, rg.r.sent)
}

func TestAcknowledgeWithOpenLinkRelaysOnce(t *testing.T) {
	rg := newRig(true)
	rg.c.OnDecision(hit)

	ack, err := rg.c.Acknowledge()
	require.NoError(t, err)
	assert.True(t, ack.Relayed)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", ack.Payload)
	assert.Equal(t, []string{"2024-01-01T00:00:00.000Z"}, rg.r.sent)

	assert.Equal(t, Idle, rg.c.State())
	assert.Equal(t, 1, rg.h.stops)
	assert.False(t, rg.d.ack)
	assert.Equal(t, ReminderDetecting, rg.d.reminder)
}

func TestAcknowledgeWithClosedLinkRelaysNothing(t *testing.T) {
	rg := newRig(false)
	rg.c.OnDecision(hit)

	ack, err := rg.c.Acknowledge()
	require.NoError(t, err)
	assert.False(t, ack.Relayed)
	assert.Empty(t, rg.r.sent)
	assert.Equal(t, Idle, rg.c.State())
}

func TestAcknowledgeWhileIdle(t *testing.T) {
	rg := newRig(true)
	_, err := rg.c.Acknowledge()
	assert.ErrorIs(t, err, ErrNotAlerting)
	assert.Empty(t, rg.r.sent)
	assert.Zero(t, rg.h.stops)
}

func TestRealertAfterAcknowledge(t *testing.T) {
	rg := newRig(true)
	rg.c.OnDecision(hit)
	_, _ = rg.c.Acknowledge()
	assert.True(t, rg.c.OnDecision(hit))
	assert.Len(t, rg.h.starts, 2)
}

func TestHapticsFailureStillAlerts(t *testing.T) {
	rg := newRig(true)
	rg.h.startErr = errors.New("motor busy")
	assert.True(t, rg.c.OnDecision(hit))
	assert.Equal(t, Alerting, rg.c.State())
}
