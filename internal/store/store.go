// Package store is the keyed record store that logged behaviours end up
// in. The relay pipeline only ever produces one entry per confirmed
// detection; the entry shape below is what the mobile logging flow writes.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/large-farva/bfrb-sense/internal/config"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("record not found")

// Entry is one logged behaviour.
type Entry struct {
	Behaviour string `json:"behaviour"`
	Location  string `json:"location"`
	Mood      string `json:"mood"`
	Timestamp string `json:"timestamp"`
	Duration  string `json:"duration"`
	Date      string `json:"date"`
}

// Record pairs an entry with its key.
type Record struct {
	Key   string `json:"key"`
	Entry Entry  `json:"entry"`
}

// Store persists entries under string keys.
type Store interface {
	Put(ctx context.Context, key string, e Entry) error
	Get(ctx context.Context, key string) (Entry, error)
	// List returns records whose key starts with prefix and, when date is
	// non-empty, whose Date equals it. Results are ordered by timestamp.
	List(ctx context.Context, prefix, date string) ([]Record, error)
	Close() error
}

// New opens the backend selected by the store config section.
func New(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "file":
		return OpenFile(cfg.Root)
	case "nats":
		return DialNATS(cfg.NATSURL, cfg.Subject)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// UserPrefix is the key prefix for one user's behaviours.
func UserPrefix(user string) string {
	return "users/" + user + "/behaviors/"
}

// NewKey allocates a fresh record id and its key under the user's prefix.
func NewKey(user string) (id, key string) {
	id = uuid.NewString()
	return id, UserPrefix(user) + id
}

// DateOf formats the calendar day of t in its own location.
func DateOf(t time.Time) string {
	return t.Format(time.DateOnly)
}

// DurationSeconds parses an entry duration: either "HH:MM:SS" or a whole
// number of minutes.
func DurationSeconds(d string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(d), ":")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		nums[i] = n
	}
	switch len(nums) {
	case 1:
		return nums[0] * 60, true
	case 3:
		return nums[0]*3600 + nums[1]*60 + nums[2], true
	}
	return 0, false
}

// FormatSeconds renders a second count as HH:MM:SS.
func FormatSeconds(total int) string {
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func filter(all []Record, prefix, date string) []Record {
	var out []Record
	for _, r := range all {
		if !strings.HasPrefix(r.Key, prefix) {
			continue
		}
		if date != "" && r.Entry.Date != date {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Entry.Timestamp < out[j].Entry.Timestamp
	})
	return out
}
