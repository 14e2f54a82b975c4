// Package link defines the ready state shared by every socket hop in the
// relay pipeline. The names match the WebSocket readyState values so the
// state reads the same in logs on each tier.
package link

// State is the lifecycle of a single socket or message channel.
type State int

const (
	Connecting State = iota
	Open
	Closing
	Closed
	// Error is only reported by the mobile side, where recovery is manual.
	Error
)

var stateNames = [...]string{"CONNECTING", "OPEN", "CLOSING", "CLOSED", "ERROR"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// MarshalText lets states appear by name in JSON status payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
