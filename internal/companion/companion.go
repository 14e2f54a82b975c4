// Package companion is the phone-side relay host. The wearable connects
// to /peer; every acknowledgment it sends is encoded as an 8-byte frame
// and forwarded to the mobile client.
package companion

import (
	"context"
	"log"
	"net/http"

	"github.com/large-farva/bfrb-sense/internal/app"
	"github.com/large-farva/bfrb-sense/internal/bridge"
	"github.com/large-farva/bfrb-sense/internal/config"
	"github.com/large-farva/bfrb-sense/internal/link"
	"github.com/large-farva/bfrb-sense/internal/telemetry"
)

// Options holds everything the daemon needs from the caller.
type Options struct {
	Logger *log.Logger
	Cfg    config.Config
	Bind   string
}

// Daemon is the companiond process.
type Daemon struct {
	*app.Base

	cfg    config.Config
	bind   string
	fwd    *bridge.Forwarder
	bridge *bridge.Bridge
}

// New wires the bridge to a forwarder targeting the configured mobile URL.
func New(opts Options) *Daemon {
	base := app.NewBase(app.Options{Name: "companiond", Logger: opts.Logger, Level: opts.Cfg.Logging.Level})

	d := &Daemon{
		Base: base,
		cfg:  opts.Cfg,
		bind: opts.Bind,
	}

	d.fwd = bridge.NewForwarder(opts.Cfg.Companion.MobileURL, base.Log.With("mobile"))
	d.fwd.OnState = func(s link.State) {
		base.Emit(telemetry.Link{
			Event: telemetry.New(telemetry.EventLink, "mobile"),
			Hop:   "companion->mobile",
			State: s.String(),
		})
	}

	d.bridge = bridge.New(d.fwd, base.Log.With("peer"))
	d.bridge.OnResult = func(r bridge.Result) {
		base.Emit(telemetry.Relay{
			Event:     telemetry.New(telemetry.EventRelay, "peer"),
			Text:      r.Text,
			Millis:    r.Millis,
			Forwarded: r.Forwarded,
			Error:     r.Error,
		})
	}
	return d
}

// Handler returns the companion-specific routes.
func (d *Daemon) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/peer", d.bridge.PeerHandler())
	return mux
}

// Run opens the mobile connection and serves until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.Transition("STARTING")
	d.fwd.Start(ctx)
	defer d.fwd.Close()

	d.Transition("RUNNING")
	return d.Serve(ctx, d.bind, d.Handler(), d.status)
}

func (d *Daemon) status() map[string]any {
	return map[string]any{
		"mobile_url":   d.fwd.URL,
		"mobile_state": d.fwd.State(),
		"mobile_stats": d.fwd.Stats(),
		"peers":        d.bridge.Peers(),
	}
}
