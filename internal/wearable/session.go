package wearable

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/large-farva/bfrb-sense/internal/alert"
	"github.com/large-farva/bfrb-sense/internal/classify"
	"github.com/large-farva/bfrb-sense/internal/eventlog"
	"github.com/large-farva/bfrb-sense/internal/sampler"
	"github.com/large-farva/bfrb-sense/internal/sensor"
	"github.com/large-farva/bfrb-sense/internal/telemetry"
)

// Command is a request from an HTTP handler to the session loop. Reply
// receives exactly one result.
type Command struct {
	Type  string
	Reply chan<- CommandResult
}

// CommandResult is the response sent back through a Command's Reply.
type CommandResult struct {
	OK      bool       `json:"ok"`
	Message string     `json:"message,omitempty"`
	Error   string     `json:"error,omitempty"`
	Ack     *alert.Ack `json:"ack,omitempty"`
}

// Snapshot is the session state published for status queries.
type Snapshot struct {
	AlertState    string          `json:"alert_state"`
	Alerts        uint64          `json:"alerts"`
	Acks          uint64          `json:"acks"`
	Samples       uint64          `json:"samples"`
	WindowLen     int             `json:"window_len"`
	WindowCap     int             `json:"window_cap"`
	SensorEnabled bool            `json:"sensor_enabled"`
	Last          classify.Result `json:"last_decision"`
}

// Session runs the wearable's single event loop: sensor readings and user
// commands are handled one at a time, in arrival order.
type Session struct {
	Commands chan Command

	sampler *sampler.Sampler
	ctrl    *alert.Controller
	emit    func(any)
	log     *eventlog.Logger

	lastTriggered bool

	mu   sync.Mutex
	snap Snapshot
}

// NewSession wires a sampler to an alert controller.
func NewSession(s *sampler.Sampler, ctrl *alert.Controller, emit func(any), logger *eventlog.Logger) *Session {
	sess := &Session{
		Commands: make(chan Command, 4),
		sampler:  s,
		ctrl:     ctrl,
		emit:     emit,
		log:      logger,
	}
	sess.publish(classify.Result{})
	return sess
}

// Run starts the sensor and processes events until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	readings := s.sampler.Open(ctx)
	s.publish(classify.Result{})

	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-readings:
			if !ok {
				if ctx.Err() == nil {
					s.log.Warnf("accelerometer stream ended")
				}
				readings = nil
				continue
			}
			s.handleReading(r)
		case cmd := <-s.Commands:
			s.handleCommand(cmd)
		}
	}
}

// Do sends a command to the loop and waits for its reply.
func (s *Session) Do(ctx context.Context, typ string) (CommandResult, error) {
	reply := make(chan CommandResult, 1)
	select {
	case s.Commands <- Command{Type: typ, Reply: reply}:
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
}

// Snapshot returns the most recently published session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *Session) handleReading(r sensor.Reading) {
	res, ok := s.sampler.Handle(r)
	if !ok {
		return
	}
	if res.Triggered != s.lastTriggered {
		s.lastTriggered = res.Triggered
		s.emitEvent(telemetry.Decision{
			Event:     telemetry.New(telemetry.EventDecision, "classifier"),
			PercentIn: res.PercentIn,
			Triggered: res.Triggered,
			Count:     res.Count,
			Len:       res.Len,
		})
	}
	s.ctrl.OnDecision(res)
	s.publish(res)
}

func (s *Session) handleCommand(cmd Command) {
	switch cmd.Type {
	case "ack":
		ack, err := s.ctrl.Acknowledge()
		if errors.Is(err, alert.ErrNotAlerting) {
			cmd.Reply <- CommandResult{OK: false, Error: err.Error()}
			return
		}
		s.emitEvent(telemetry.Ack{
			Event:   telemetry.Event{Type: telemetry.EventAck, TS: ack.At.UTC().Format(time.RFC3339Nano), Component: "alert"},
			Payload: ack.Payload,
			Relayed: ack.Relayed,
		})
		s.publish(s.Snapshot().Last)
		msg := "acknowledged"
		if !ack.Relayed {
			msg = "acknowledged; companion link not open, timestamp dropped"
		}
		cmd.Reply <- CommandResult{OK: true, Message: msg, Ack: &ack}
	default:
		cmd.Reply <- CommandResult{OK: false, Error: "unknown command: " + cmd.Type}
	}
}

func (s *Session) publish(last classify.Result) {
	alerts, acks := s.ctrl.Counts()
	win := s.sampler.Window()
	snap := Snapshot{
		AlertState:    s.ctrl.State().String(),
		Alerts:        alerts,
		Acks:          acks,
		Samples:       s.sampler.Handled(),
		WindowLen:     win.Len(),
		WindowCap:     win.Cap(),
		SensorEnabled: !s.sampler.Disabled(),
		Last:          last,
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func (s *Session) emitEvent(v any) {
	if s.emit != nil {
		s.emit(v)
	}
}
