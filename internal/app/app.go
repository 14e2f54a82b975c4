// Package app is the daemon shell shared by every BFRB tier: the HTTP
// server, the /ws event hub, the log ring, the heartbeat, and the daemon's
// top-level state. Tier packages register their own routes on top.
package app

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/large-farva/bfrb-sense/internal/eventlog"
	"github.com/large-farva/bfrb-sense/internal/telemetry"
	"github.com/large-farva/bfrb-sense/internal/ws"
)

const logRingSize = 200

// Options holds everything the Base needs from the caller.
type Options struct {
	Name   string // daemon name, e.g. "wearabled"
	Logger *log.Logger
	Level  string
}

// Base is embedded by each tier's daemon.
type Base struct {
	Name string
	Hub  *ws.Hub
	Log  *eventlog.Logger

	startedAt time.Time
	state     atomic.Value // current state string
	server    *http.Server

	logBufMu sync.Mutex
	logBuf   []eventlog.Entry
}

// NewBase creates a Base in the BOOTING state.
func NewBase(opts Options) *Base {
	b := &Base{
		Name:      opts.Name,
		Hub:       ws.NewHub(),
		startedAt: time.Now(),
	}
	b.Log = eventlog.New(opts.Logger, opts.Level, b)
	b.state.Store("BOOTING")
	return b
}

// Record implements eventlog.Sink: it keeps the entry in the ring and
// mirrors it to hub subscribers.
func (b *Base) Record(e eventlog.Entry) {
	b.logBufMu.Lock()
	b.logBuf = append(b.logBuf, e)
	if len(b.logBuf) > logRingSize {
		b.logBuf = b.logBuf[len(b.logBuf)-logRingSize:]
	}
	b.logBufMu.Unlock()

	b.Hub.BroadcastJSON(telemetry.LogLine{
		Event:   telemetry.Event{Type: telemetry.EventLog, TS: e.TS, Component: e.Component},
		Level:   e.Level,
		Message: e.Message,
	})
}

// State returns the daemon state string.
func (b *Base) State() string { return b.state.Load().(string) }

// Uptime returns how long the daemon has been running.
func (b *Base) Uptime() time.Duration { return time.Since(b.startedAt) }

// Transition updates the daemon state and broadcasts the change.
func (b *Base) Transition(newState string) {
	old := b.state.Swap(newState).(string)
	if old == newState {
		return
	}
	b.Hub.BroadcastJSON(telemetry.StateTransition{
		Event: telemetry.New(telemetry.EventState, b.Name),
		From:  old,
		To:    newState,
	})
}

// Emit pushes an event to every hub subscriber.
func (b *Base) Emit(v any) {
	b.Hub.BroadcastJSON(v)
}

// Serve registers the shared routes on mux, starts the hub and heartbeat,
// and serves HTTP on bind until ctx is cancelled. status supplies the
// tier-specific fields of /api/status.
func (b *Base) Serve(ctx context.Context, bind string, mux *http.ServeMux, status func() map[string]any) error {
	mux.HandleFunc("/healthz", b.handleHealthz)
	mux.HandleFunc("/api/status", b.statusHandler(status))
	mux.HandleFunc("/api/version", b.handleVersion)
	mux.HandleFunc("/api/logs", b.handleLogs)
	mux.Handle("/ws", b.Hub.Handler())

	b.server = &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	b.Log.Infof("listening on http://%s", ln.Addr())

	go b.Hub.Run(ctx)
	go b.heartbeatLoop(ctx)

	go func() {
		<-ctx.Done()
		b.Log.Infof("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = b.server.Shutdown(shutdownCtx)
	}()

	if err := b.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// heartbeatLoop lets clients detect connectivity without polling.
func (b *Base) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.Hub.BroadcastJSON(telemetry.Heartbeat{
				Event:         telemetry.New(telemetry.EventHeartbeat, b.Name),
				State:         b.State(),
				UptimeSeconds: int64(b.Uptime().Seconds()),
			})
		}
	}
}
