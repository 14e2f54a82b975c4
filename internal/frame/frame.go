// Package frame defines the relay wire formats: the ISO-8601 text sent
// from the wearable to the companion, and the fixed 8-byte binary frame
// sent from the companion to the mobile client. A frame is a little-endian
// signed 64-bit count of milliseconds since the Unix epoch, with no other
// framing.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
)

// Size is the exact length of a binary frame.
const Size = 8

// TimestampLayout renders UTC times with millisecond precision and a Z
// suffix, e.g. 2024-01-01T00:00:00.000Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrEmptyTimestamp = errors.New("empty timestamp")
	ErrShortFrame     = errors.New("frame is not 8 bytes")
)

// FormatTimestamp renders t as the relay message text.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses relay message text into epoch milliseconds.
func ParseTimestamp(text string) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrEmptyTimestamp
	}
	t, err := iso8601.ParseString(text)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", text, err)
	}
	return t.UnixMilli(), nil
}

// Encode packs epoch milliseconds into a frame.
func Encode(ms int64) []byte {
	b := make([]byte, Size)
	binary.LittleEndian.PutUint64(b, uint64(ms))
	return b
}

// Decode unpacks a frame. Anything other than exactly 8 bytes is rejected.
func Decode(b []byte) (int64, error) {
	if len(b) != Size {
		return 0, fmt.Errorf("%w: got %d", ErrShortFrame, len(b))
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// FromText parses relay text and encodes it in one step.
func FromText(text string) ([]byte, int64, error) {
	ms, err := ParseTimestamp(text)
	if err != nil {
		return nil, 0, err
	}
	return Encode(ms), ms, nil
}
