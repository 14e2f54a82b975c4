// Package wearable is the watch tier: it samples the accelerometer,
// classifies each window, raises haptic alerts, and relays the user's
// acknowledgment to the companion.
//
// Sampling starts with the daemon, not when the companion link opens, so
// alerts still fire while the companion is unreachable; only the relay of
// the acknowledgment is lost.
package wearable

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/large-farva/bfrb-sense/internal/alert"
	"github.com/large-farva/bfrb-sense/internal/app"
	"github.com/large-farva/bfrb-sense/internal/classify"
	"github.com/large-farva/bfrb-sense/internal/config"
	"github.com/large-farva/bfrb-sense/internal/link"
	"github.com/large-farva/bfrb-sense/internal/relay"
	"github.com/large-farva/bfrb-sense/internal/sampler"
	"github.com/large-farva/bfrb-sense/internal/sensor"
	"github.com/large-farva/bfrb-sense/internal/telemetry"
)

// Options holds everything the daemon needs from the caller.
type Options struct {
	Logger *log.Logger
	Cfg    config.Config
	Bind   string

	// Source overrides the configured sensor driver.
	Source sensor.Source
}

// Daemon is the wearabled process.
type Daemon struct {
	*app.Base

	cfg     config.Config
	bind    string
	face    *Face
	link    *relay.Link
	session *Session
}

// New builds the daemon. It fails only on an unknown sensor driver.
func New(opts Options) (*Daemon, error) {
	base := app.NewBase(app.Options{Name: "wearabled", Logger: opts.Logger, Level: opts.Cfg.Logging.Level})

	src := opts.Source
	if src == nil {
		var err error
		if src, err = sensor.New(opts.Cfg.Sensor); err != nil {
			return nil, err
		}
	}

	w := opts.Cfg.Wearable
	d := &Daemon{
		Base: base,
		cfg:  opts.Cfg,
		bind: opts.Bind,
	}

	d.face = NewFace(base.Emit, base.Log.With("face"))

	d.link = relay.New(w.PeerURL, base.Log.With("peer"))
	d.link.OnState = func(s link.State) {
		base.Emit(telemetry.Link{
			Event: telemetry.New(telemetry.EventLink, "peer"),
			Hop:   "wearable->companion",
			State: s.String(),
		})
	}
	d.link.OnOpen = func() {
		base.Log.With("peer").Infof("ready to relay acknowledgments")
	}

	cls := classify.New(classify.BoundsFromConfig(opts.Cfg.Calibration), w.ThresholdPercent)
	smp := sampler.New(src, w.SampleRateHz, w.WindowSize(), cls, base.Log.With("sampler"))
	ctrl := alert.New(w.HapticPattern, d.face, d.face, d.link, base.Log.With("alert"))
	d.session = NewSession(smp, ctrl, base.Emit, base.Log.With("session"))

	return d, nil
}

// Run starts the session and peer link, then serves HTTP until ctx is
// cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.Transition("STARTING")

	go d.session.Run(ctx)
	go d.link.Open(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/ack", d.handleAck)

	d.Transition("RUNNING")
	return d.Serve(ctx, d.bind, mux, d.status)
}

// Session exposes the event loop, mainly for tests.
func (d *Daemon) Session() *Session { return d.session }

func (d *Daemon) handleAck(w http.ResponseWriter, r *http.Request) {
	if !app.RequirePost(w, r) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := d.session.Do(ctx, "ack")
	if err != nil {
		app.JSONError(w, "session busy: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	code := http.StatusOK
	if !res.OK {
		code = http.StatusConflict
	}
	app.WriteJSON(w, code, res)
}

func (d *Daemon) status() map[string]any {
	return map[string]any{
		"session":     d.session.Snapshot(),
		"display":     d.face.State(),
		"peer_url":    d.link.URL,
		"peer_state":  d.link.State(),
		"peer_stats":  d.link.Stats(),
		"sensor":      d.cfg.Sensor.Driver,
		"sample_hz":   d.cfg.Wearable.SampleRateHz,
		"threshold":   d.cfg.Wearable.ThresholdPercent,
		"calibration": d.cfg.Calibration,
	}
}
