// Package sampler feeds accelerometer readings into the sliding window and
// runs the classifier on every arrival.
package sampler

import (
	"context"
	"time"

	"github.com/large-farva/bfrb-sense/internal/classify"
	"github.com/large-farva/bfrb-sense/internal/eventlog"
	"github.com/large-farva/bfrb-sense/internal/sensor"
	"github.com/large-farva/bfrb-sense/internal/window"
)

// Sampler owns the window for one session. Handle must be called from a
// single goroutine; readings are processed strictly in arrival order.
type Sampler struct {
	Source sensor.Source
	RateHz int

	win *window.Buffer
	cls *classify.Classifier
	log *eventlog.Logger
	now func() time.Time

	disabled bool
	handled  uint64
}

// New creates a sampler with an empty window of the given capacity.
func New(src sensor.Source, rateHz, capacity int, cls *classify.Classifier, logger *eventlog.Logger) *Sampler {
	return &Sampler{
		Source: src,
		RateHz: rateHz,
		win:    window.New(capacity),
		cls:    cls,
		log:    logger,
		now:    time.Now,
	}
}

// Open starts the sensor. If the sensor cannot be started the sampler is
// disabled for the rest of the process: the failure is logged once and a
// nil channel is returned, which never delivers in a select.
func (s *Sampler) Open(ctx context.Context) <-chan sensor.Reading {
	ch, err := s.Source.Open(ctx, s.RateHz)
	if err != nil {
		s.disabled = true
		s.log.Warnf("accelerometer unavailable (%s): %v; detection disabled", s.Source.Name(), err)
		return nil
	}
	s.log.Infof("accelerometer %s started at %d Hz, window %d samples", s.Source.Name(), s.RateHz, s.win.Cap())
	return ch
}

// Handle stamps r with its arrival time, pushes it, and classifies the
// updated window.
func (s *Sampler) Handle(r sensor.Reading) (classify.Result, bool) {
	s.win.Push(r.Stamp(s.now()))
	s.handled++
	return s.cls.Evaluate(s.win)
}

// Disabled reports whether the sensor failed to start.
func (s *Sampler) Disabled() bool { return s.disabled }

// Handled returns the number of readings processed so far.
func (s *Sampler) Handled() uint64 { return s.handled }

// Window exposes the buffer for status reporting.
func (s *Sampler) Window() *window.Buffer { return s.win }
