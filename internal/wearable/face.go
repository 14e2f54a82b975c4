package wearable

import (
	"fmt"
	"sync"

	"github.com/large-farva/bfrb-sense/internal/eventlog"
	"github.com/large-farva/bfrb-sense/internal/telemetry"
)

// Patterns lists the vibration patterns the watch motor understands.
var Patterns = map[string]bool{
	"alert":            true,
	"bump":             true,
	"confirmation":     true,
	"confirmation-max": true,
	"nudge":            true,
	"nudge-max":        true,
	"ping":             true,
	"ring":             true,
	"special":          true,
}

// FaceState is a snapshot of the watch face.
type FaceState struct {
	Reminder string `json:"reminder"`
	AckShown bool   `json:"ack_shown"`
	Haptics  string `json:"haptics,omitempty"`
}

// Face is the headless watch face. It implements alert.Display and
// alert.Haptics and mirrors every change to the event hub.
type Face struct {
	emit func(any)
	log  *eventlog.Logger

	mu    sync.Mutex
	state FaceState
}

// NewFace returns a blank face. emit may be nil.
func NewFace(emit func(any), logger *eventlog.Logger) *Face {
	return &Face{emit: emit, log: logger}
}

func (f *Face) SetReminder(text string) {
	f.update(func(s *FaceState) { s.Reminder = text })
}

func (f *Face) ShowAck(visible bool) {
	f.update(func(s *FaceState) { s.AckShown = visible })
}

// Start begins a repeating vibration.
func (f *Face) Start(pattern string) error {
	if !Patterns[pattern] {
		return fmt.Errorf("unknown vibration pattern %q", pattern)
	}
	f.log.Debugf("vibration %s started", pattern)
	f.update(func(s *FaceState) { s.Haptics = pattern })
	return nil
}

// Stop silences the motor.
func (f *Face) Stop() {
	f.update(func(s *FaceState) { s.Haptics = "" })
}

// State returns the current face.
func (f *Face) State() FaceState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Face) update(fn func(*FaceState)) {
	f.mu.Lock()
	before := f.state
	fn(&f.state)
	after := f.state
	f.mu.Unlock()

	if before == after || f.emit == nil {
		return
	}
	f.emit(telemetry.Display{
		Event:    telemetry.New(telemetry.EventDisplay, "face"),
		Reminder: after.Reminder,
		AckShown: after.AckShown,
		Haptics:  after.Haptics,
	})
}
