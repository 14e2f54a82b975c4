// Package mobile is the client tier. It listens for 8-byte detection
// frames from the companion, notifies the user, and walks each detection
// through a logging entry that ends up in the record store.
package mobile

import (
	"context"
	"log"
	"net/http"

	"github.com/large-farva/bfrb-sense/internal/app"
	"github.com/large-farva/bfrb-sense/internal/config"
	"github.com/large-farva/bfrb-sense/internal/link"
	"github.com/large-farva/bfrb-sense/internal/store"
	"github.com/large-farva/bfrb-sense/internal/telemetry"
)

// Options holds everything the daemon needs from the caller.
type Options struct {
	Logger *log.Logger
	Cfg    config.Config
	Bind   string

	// Store overrides the configured backend.
	Store store.Store
}

// Daemon is the mobiled process.
type Daemon struct {
	*app.Base

	cfg      config.Config
	bind     string
	store    store.Store
	listener *Listener
	flow     *Flow

	ctx context.Context
}

// New opens the record store and wires the listener to the entry flow.
func New(opts Options) (*Daemon, error) {
	base := app.NewBase(app.Options{Name: "mobiled", Logger: opts.Logger, Level: opts.Cfg.Logging.Level})

	st := opts.Store
	if st == nil {
		var err error
		if st, err = store.New(opts.Cfg.Store); err != nil {
			return nil, err
		}
	}

	m := opts.Cfg.Mobile
	d := &Daemon{
		Base:  base,
		cfg:   opts.Cfg,
		bind:  opts.Bind,
		store: st,
		ctx:   context.Background(),
	}

	notifier := NewHubNotifier(base.Emit, base.Log.With("notify"))
	d.flow = NewFlow(m.User, st, notifier, Settings{
		Notifications:   m.Notifications,
		DefaultDuration: m.DefaultDuration,
	}, base.Emit, base.Log.With("flow"))

	d.listener = NewListener(base.Log.With("socket"))
	d.listener.OnDetection = func(det Detection) { d.flow.OnDetection(det) }
	d.listener.OnState = func(s link.State) {
		base.Emit(telemetry.Link{
			Event: telemetry.New(telemetry.EventLink, "socket"),
			Hop:   "companion->mobile",
			State: s.String(),
		})
	}
	return d, nil
}

// Handler returns the mobile-specific routes.
func (d *Daemon) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/", d.listener.Handler())
	mux.HandleFunc("/api/connect", d.handleConnect)
	mux.HandleFunc("/api/entries", d.handleEntries)
	mux.HandleFunc("/api/pending", d.handlePending)
	mux.HandleFunc("/api/settings", d.handleSettings)
	return mux
}

// Run serves until ctx is cancelled, then closes the store.
func (d *Daemon) Run(ctx context.Context) error {
	d.ctx = ctx
	defer func() {
		if err := d.store.Close(); err != nil {
			d.Log.Warnf("store close: %v", err)
		}
	}()

	d.Transition("RUNNING")
	return d.Serve(ctx, d.bind, d.Handler(), d.status)
}

func (d *Daemon) status() map[string]any {
	st := map[string]any{
		"socket_state":  d.listener.State(),
		"socket_stats":  d.listener.Stats(),
		"pending":       len(d.flow.Pending()),
		"notifications": d.flow.Notified(),
		"settings":      d.flow.Settings(),
		"user":          d.flow.User,
		"store":         d.cfg.Store.Driver,
	}
	if f, ok := d.store.(*store.File); ok {
		st["store_path"] = f.Path
		if du := app.DiskUsage(f.Root()); du != nil {
			st["disk"] = du
		}
	}
	return st
}
