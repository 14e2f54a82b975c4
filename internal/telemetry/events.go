// Package telemetry defines the typed events each daemon publishes on its
// /ws hub. bfrbctl watch renders them; anything it does not recognise is
// printed as JSON.
package telemetry

import "time"

// EventType identifies the kind of hub event.
type EventType string

const (
	EventHeartbeat    EventType = "heartbeat"
	EventState        EventType = "state"
	EventLog          EventType = "log"
	EventDecision     EventType = "decision"
	EventDisplay      EventType = "display"
	EventAck          EventType = "ack"
	EventLink         EventType = "link"
	EventRelay        EventType = "relay"
	EventDetection    EventType = "detection"
	EventNotification EventType = "notification"
	EventEntry        EventType = "entry"
)

// Event is the envelope shared by every event type.
type Event struct {
	Type      EventType `json:"type"`
	TS        string    `json:"ts"`
	Component string    `json:"component,omitempty"`
}

// NowTS returns the current UTC time in RFC 3339 nano form.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// New stamps an envelope for the given type and component.
func New(t EventType, component string) Event {
	return Event{Type: t, TS: NowTS(), Component: component}
}

// Heartbeat is sent every 10 seconds.
type Heartbeat struct {
	Event
	State         string `json:"state"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// StateTransition is emitted when a daemon's top-level state changes.
type StateTransition struct {
	Event
	From string `json:"from"`
	To   string `json:"to"`
}

// LogLine mirrors a daemon log line.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Decision reports a classifier evaluation on the wearable.
type Decision struct {
	Event
	PercentIn float64 `json:"percent_in"`
	Triggered bool    `json:"triggered"`
	Count     int     `json:"count"`
	Len       int     `json:"len"`
}

// Display mirrors the wearable's watch face.
type Display struct {
	Event
	Reminder string `json:"reminder"`
	AckShown bool   `json:"ack_shown"`
	Haptics  string `json:"haptics,omitempty"`
}

// Ack reports a user acknowledgment on the wearable.
type Ack struct {
	Event
	Payload string `json:"payload"`
	Relayed bool   `json:"relayed"`
}

// Link reports a socket hop changing state.
type Link struct {
	Event
	Hop   string `json:"hop"`
	State string `json:"state"`
}

// Relay reports one message handled by the companion bridge.
type Relay struct {
	Event
	Text      string `json:"text"`
	Millis    int64  `json:"millis,omitempty"`
	Forwarded bool   `json:"forwarded"`
	Error     string `json:"error,omitempty"`
}

// Detection reports a frame arriving on the mobile listener.
type Detection struct {
	Event
	EntryID string `json:"entry_id"`
	Bytes   int    `json:"bytes"`
	Millis  int64  `json:"millis,omitempty"`
}

// Notification reports a local notification being dispatched.
type Notification struct {
	Event
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Entry reports a behaviour record being saved.
type Entry struct {
	Event
	Key       string `json:"key"`
	Behaviour string `json:"behaviour"`
	Date      string `json:"date"`
}
