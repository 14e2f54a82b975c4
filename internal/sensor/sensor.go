// Package sensor provides accelerometer sources for the wearable tier.
// A source delivers raw {x,y,z} readings at a requested frequency; the
// sampler stamps each one with its arrival time.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/large-farva/bfrb-sense/internal/config"
)

// ErrUnavailable reports that the device has no usable accelerometer.
var ErrUnavailable = errors.New("accelerometer not available")

// Reading is one raw accelerometer value in m/s².
type Reading struct {
	X, Y, Z float32
}

// Sample is a reading stamped at arrival. It is never modified once built.
type Sample struct {
	X         float32   `json:"x"`
	Y         float32   `json:"y"`
	Z         float32   `json:"z"`
	Timestamp time.Time `json:"timestamp"`
}

// Stamp turns a reading into a sample taken at t.
func (r Reading) Stamp(t time.Time) Sample {
	return Sample{X: r.X, Y: r.Y, Z: r.Z, Timestamp: t}
}

// Source starts delivering readings until ctx is cancelled, at which point
// the returned channel is closed. Readings the consumer is not ready for are
// dropped rather than queued.
type Source interface {
	Open(ctx context.Context, hz int) (<-chan Reading, error)
	Name() string
}

// New builds the source selected by the sensor config section.
func New(cfg config.SensorConfig) (Source, error) {
	switch cfg.Driver {
	case "sim", "":
		return NewSim(time.Duration(cfg.EpisodeEverySeconds)*time.Second, time.Duration(cfg.EpisodeSeconds)*time.Second), nil
	case "serial":
		return &Serial{Port: cfg.SerialPort, BaudRate: cfg.BaudRate}, nil
	case "none":
		return Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unknown sensor driver %q", cfg.Driver)
	}
}

// Unavailable models a device without an accelerometer.
type Unavailable struct{}

func (Unavailable) Open(context.Context, int) (<-chan Reading, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Name() string { return "none" }

func offer(ch chan<- Reading, r Reading) {
	select {
	case ch <- r:
	default:
	}
}
