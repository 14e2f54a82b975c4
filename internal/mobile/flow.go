package mobile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/large-farva/bfrb-sense/internal/eventlog"
	"github.com/large-farva/bfrb-sense/internal/frame"
	"github.com/large-farva/bfrb-sense/internal/store"
	"github.com/large-farva/bfrb-sense/internal/telemetry"
)

// Defaults prefilled into a new entry.
const (
	DefaultBehaviour = "Nail Biting"
	DefaultLocation  = "Home"
	DefaultMood      = "Anxious"
)

var (
	ErrUnknownPending = errors.New("no pending entry with that id")
	ErrBadDuration    = errors.New("duration must be HH:MM:SS or whole minutes")
	ErrBadTimestamp   = errors.New("bad timestamp")
)

// Settings are the user-adjustable options of the mobile client.
type Settings struct {
	Notifications   bool   `json:"notifications"`
	DefaultDuration string `json:"default_duration"`
}

// Pending is an entry opened by a detection and not yet saved.
type Pending struct {
	ID       string      `json:"id"`
	Key      string      `json:"key"`
	Entry    store.Entry `json:"entry"`
	Detected Detection   `json:"detection"`
}

// Completion carries the user's choices for an entry. Empty fields keep
// the prefilled value. An empty ID logs a behaviour that no detection
// preceded.
type Completion struct {
	ID        string `json:"id,omitempty"`
	Behaviour string `json:"behaviour,omitempty"`
	Location  string `json:"location,omitempty"`
	Mood      string `json:"mood,omitempty"`
	Duration  string `json:"duration,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Day summarises the entries logged on one date.
type Day struct {
	Date          string         `json:"date"`
	Entries       []store.Record `json:"entries"`
	Count         int            `json:"count"`
	TotalSeconds  int            `json:"total_seconds"`
	TotalDuration string         `json:"total_duration"`
}

// Flow turns detections into pending entries and saves completed ones.
type Flow struct {
	User string

	store    store.Store
	notifier Notifier
	emit     func(any)
	log      *eventlog.Logger
	now      func() time.Time

	mu       sync.Mutex
	settings Settings
	pending  map[string]Pending
	notified uint64
}

// NewFlow returns a flow with no pending entries.
func NewFlow(user string, st store.Store, n Notifier, s Settings, emit func(any), logger *eventlog.Logger) *Flow {
	return &Flow{
		User:     user,
		store:    st,
		notifier: n,
		emit:     emit,
		log:      logger,
		now:      time.Now,
		settings: s,
		pending:  make(map[string]Pending),
	}
}

// OnDetection opens a pending entry for d and, when enabled, posts one
// notification.
func (f *Flow) OnDetection(d Detection) Pending {
	at := d.At
	if d.Decoded {
		at = time.UnixMilli(d.Millis)
	}
	id, key := store.NewKey(f.User)

	f.mu.Lock()
	s := f.settings
	p := Pending{
		ID:       id,
		Key:      key,
		Entry:    f.prefill(at, s.DefaultDuration),
		Detected: d,
	}
	f.pending[id] = p
	f.mu.Unlock()

	if f.emit != nil {
		f.emit(telemetry.Detection{
			Event:   telemetry.New(telemetry.EventDetection, "flow"),
			EntryID: id,
			Bytes:   d.Bytes,
			Millis:  d.Millis,
		})
	}

	if s.Notifications {
		if err := f.notifier.Notify(NotifyTitle, NotifyBody); err != nil {
			f.log.Warnf("notification failed: %v", err)
		} else {
			f.mu.Lock()
			f.notified++
			f.mu.Unlock()
		}
	}
	return p
}

// Pending lists open entries, oldest first.
func (f *Flow) Pending() []Pending {
	f.mu.Lock()
	out := make([]Pending, 0, len(f.pending))
	for _, p := range f.pending {
		out = append(out, p)
	}
	f.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Entry.Timestamp < out[j].Entry.Timestamp })
	return out
}

// Complete applies c and writes the entry to the store.
func (f *Flow) Complete(ctx context.Context, c Completion) (store.Record, error) {
	f.mu.Lock()
	var rec store.Record
	if c.ID == "" {
		_, key := store.NewKey(f.User)
		rec = store.Record{Key: key, Entry: f.prefill(f.now(), f.settings.DefaultDuration)}
	} else {
		p, ok := f.pending[c.ID]
		if !ok {
			f.mu.Unlock()
			return store.Record{}, ErrUnknownPending
		}
		rec = store.Record{Key: p.Key, Entry: p.Entry}
	}
	f.mu.Unlock()

	if err := apply(&rec.Entry, c); err != nil {
		return store.Record{}, err
	}
	if err := f.store.Put(ctx, rec.Key, rec.Entry); err != nil {
		return store.Record{}, fmt.Errorf("save entry: %w", err)
	}

	if c.ID != "" {
		f.mu.Lock()
		delete(f.pending, c.ID)
		f.mu.Unlock()
	}

	f.log.Infof("behaviour added: %s at %s (%s)", rec.Entry.Behaviour, rec.Entry.Location, rec.Entry.Duration)
	if f.emit != nil {
		f.emit(telemetry.Entry{
			Event:     telemetry.New(telemetry.EventEntry, "flow"),
			Key:       rec.Key,
			Behaviour: rec.Entry.Behaviour,
			Date:      rec.Entry.Date,
		})
	}
	return rec, nil
}

// Discard drops a pending entry without saving it.
func (f *Flow) Discard(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pending[id]; !ok {
		return ErrUnknownPending
	}
	delete(f.pending, id)
	return nil
}

// Day lists the user's entries on date with their total duration.
// Entries whose duration cannot be parsed count toward Count only.
func (f *Flow) Day(ctx context.Context, date string) (Day, error) {
	recs, err := f.store.List(ctx, store.UserPrefix(f.User), date)
	if err != nil {
		return Day{}, fmt.Errorf("list %s: %w", date, err)
	}
	if recs == nil {
		recs = []store.Record{}
	}
	total := 0
	for _, r := range recs {
		if secs, ok := store.DurationSeconds(r.Entry.Duration); ok {
			total += secs
		}
	}
	return Day{
		Date:          date,
		Entries:       recs,
		Count:         len(recs),
		TotalSeconds:  total,
		TotalDuration: store.FormatSeconds(total),
	}, nil
}

// Settings returns the current settings.
func (f *Flow) Settings() Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings
}

// SetSettings replaces the settings after validating the duration.
func (f *Flow) SetSettings(s Settings) error {
	if _, ok := store.DurationSeconds(s.DefaultDuration); !ok {
		return ErrBadDuration
	}
	f.mu.Lock()
	f.settings = s
	f.mu.Unlock()
	f.log.Infof("settings updated: notifications=%t default_duration=%s", s.Notifications, s.DefaultDuration)
	return nil
}

// Notified returns how many notifications were posted.
func (f *Flow) Notified() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notified
}

func (f *Flow) prefill(at time.Time, duration string) store.Entry {
	return store.Entry{
		Behaviour: DefaultBehaviour,
		Location:  DefaultLocation,
		Mood:      DefaultMood,
		Timestamp: frame.FormatTimestamp(at),
		Duration:  duration,
		Date:      store.DateOf(at),
	}
}

func apply(e *store.Entry, c Completion) error {
	if c.Behaviour != "" {
		e.Behaviour = c.Behaviour
	}
	if c.Location != "" {
		e.Location = c.Location
	}
	if c.Mood != "" {
		e.Mood = c.Mood
	}
	if c.Duration != "" {
		e.Duration = c.Duration
	}
	if _, ok := store.DurationSeconds(e.Duration); !ok {
		return ErrBadDuration
	}
	if c.Timestamp != "" {
		ms, err := frame.ParseTimestamp(c.Timestamp)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadTimestamp, err)
		}
		at := time.UnixMilli(ms)
		e.Timestamp = frame.FormatTimestamp(at)
		e.Date = store.DateOf(at)
	}
	return nil
}
