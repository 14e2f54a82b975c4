package streamhub

import (
	"context"
	"log"
	"net/http"

	"github.com/large-farva/bfrb-sense/internal/app"
	"github.com/large-farva/bfrb-sense/internal/config"
	"github.com/large-farva/bfrb-sense/internal/telemetry"
)

// Options holds everything the daemon needs from the caller.
type Options struct {
	Logger *log.Logger
	Cfg    config.Config
}

// Daemon is the streamd process: the hub plus a status server.
type Daemon struct {
	*app.Base

	cfg config.StreamConfig
	hub *Hub
}

func NewDaemon(opts Options) *Daemon {
	base := app.NewBase(app.Options{Name: "streamd", Logger: opts.Logger, Level: opts.Cfg.Logging.Level})
	d := &Daemon{
		Base: base,
		cfg:  opts.Cfg.Stream,
		hub:  New(base.Log.With("hub")),
	}
	d.hub.OnForward = func(from, to string, size int, forwarded bool) {
		ev := telemetry.Relay{
			Event:     telemetry.New(telemetry.EventRelay, from),
			Text:      from + "->" + to,
			Forwarded: forwarded,
		}
		if !forwarded {
			ev.Error = to + " not connected"
		}
		base.Emit(ev)
	}
	return d
}

// Run serves the hub and the status API until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hubErr := make(chan error, 1)
	go func() {
		hubErr <- d.hub.ListenAndServe(ctx, d.cfg.DeviceBind, d.cfg.ClientBind)
		cancel()
	}()

	d.Transition("RUNNING")
	if err := d.Serve(ctx, d.cfg.StatusBind, http.NewServeMux(), d.status); err != nil {
		return err
	}
	return <-hubErr
}

func (d *Daemon) status() map[string]any {
	return map[string]any{
		"device_bind": d.cfg.DeviceBind,
		"client_bind": d.cfg.ClientBind,
		"sides":       d.hub.Stats(),
	}
}
