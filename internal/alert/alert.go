// Package alert implements the wearable's Idle/Alerting state machine.
//
//	Idle     --triggered-->   Alerting   start haptics, show ack control
//	Alerting --triggered-->   Alerting   no-op
//	Alerting --acknowledge--> Idle       stop haptics, hide control, relay timestamp
//
// A window that stops matching never clears an alert on its own; only the
// user's acknowledgment does, and that is the only thing that produces a
// relay message.
package alert

import (
	"errors"
	"time"

	"github.com/large-farva/bfrb-sense/internal/classify"
	"github.com/large-farva/bfrb-sense/internal/eventlog"
	"github.com/large-farva/bfrb-sense/internal/frame"
)

// ErrNotAlerting is returned by Acknowledge when no alert is active.
var ErrNotAlerting = errors.New("no active alert")

// Reminder texts shown on the watch face.
const (
	ReminderDetecting = "Detecting Behaviours"
	ReminderDetected  = "Behaviours Detected"
)

// State is the alert controller state.
type State int

const (
	Idle State = iota
	Alerting
)

func (s State) String() string {
	if s == Alerting {
		return "ALERTING"
	}
	return "IDLE"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Haptics drives the vibration motor.
type Haptics interface {
	Start(pattern string) error
	Stop()
}

// Display owns the watch-face elements touched by the controller.
type Display interface {
	SetReminder(text string)
	ShowAck(visible bool)
}

// Relay delivers an acknowledgment timestamp to the companion. It reports
// whether the message left the device.
type Relay interface {
	Send(text string) bool
}

// Ack describes the outcome of one acknowledgment.
type Ack struct {
	At      time.Time `json:"at"`
	Payload string    `json:"payload"`
	Relayed bool      `json:"relayed"`
}

// Controller is not safe for concurrent use; the wearable session drives
// it from its event loop.
type Controller struct {
	Pattern string

	state   State
	haptics Haptics
	display Display
	relay   Relay
	log     *eventlog.Logger
	now     func() time.Time

	alerts uint64
	acks   uint64
}

// New returns a controller in the Idle state and resets the display to
// match.
func New(pattern string, h Haptics, d Display, r Relay, logger *eventlog.Logger) *Controller {
	c := &Controller{
		Pattern: pattern,
		haptics: h,
		display: d,
		relay:   r,
		log:     logger,
		now:     time.Now,
	}
	d.ShowAck(false)
	d.SetReminder(ReminderDetecting)
	return c
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Counts returns the number of alerts raised and acknowledgments handled.
func (c *Controller) Counts() (alerts, acks uint64) { return c.alerts, c.acks }

// OnDecision applies a classifier result. It returns true when the result
// raised a new alert.
func (c *Controller) OnDecision(res classify.Result) bool {
	if !res.Triggered || c.state == Alerting {
		return false
	}
	c.state = Alerting
	c.alerts++
	c.log.Infof("behaviour detected: %.0f%% of window in range", res.PercentIn)
	c.display.ShowAck(true)
	c.display.SetReminder(ReminderDetected)
	if err := c.haptics.Start(c.Pattern); err != nil {
		c.log.Warnf("haptics start %q: %v", c.Pattern, err)
	}
	return true
}

// Acknowledge clears an active alert and relays the acknowledgment time.
func (c *Controller) Acknowledge() (Ack, error) {
	if c.state != Alerting {
		return Ack{}, ErrNotAlerting
	}
	c.state = Idle
	c.acks++
	c.haptics.Stop()

	at := c.now()
	payload := frame.FormatTimestamp(at)
	sent := c.relay.Send(payload)

	c.display.SetReminder(ReminderDetecting)
	c.display.ShowAck(false)

	if sent {
		c.log.Infof("acknowledged at %s, relayed to companion", payload)
	} else {
		c.log.Infof("acknowledged at %s, companion link not open; not relayed", payload)
	}
	return Ack{At: at, Payload: payload, Relayed: sent}, nil
}
