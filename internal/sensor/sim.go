package sensor

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Sim generates wrist-at-rest readings with a hand-to-face episode on a
// fixed interval, so the whole relay chain can run without hardware.
type Sim struct {
	EpisodeEvery  time.Duration // time between simulated episodes; 0 disables them
	EpisodeLength time.Duration

	now func() time.Time
}

// NewSim creates a simulated source. Zero durations fall back to an
// episode of 4s every 30s.
func NewSim(every, length time.Duration) *Sim {
	if every < 0 {
		every = 0
	}
	if length <= 0 {
		length = 4 * time.Second
	}
	return &Sim{EpisodeEvery: every, EpisodeLength: length, now: time.Now}
}

func (s *Sim) Name() string { return "sim" }

func (s *Sim) Open(ctx context.Context, hz int) (<-chan Reading, error) {
	if hz <= 0 {
		return nil, errors.New("sample rate must be > 0")
	}
	out := make(chan Reading)
	start := s.now()

	go func() {
		defer close(out)
		t := time.NewTicker(time.Second / time.Duration(hz))
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				offer(out, s.reading(s.now().Sub(start)))
			}
		}
	}()
	return out, nil
}

// reading returns a noisy sample for the given offset into the session.
func (s *Sim) reading(elapsed time.Duration) Reading {
	if s.inEpisode(elapsed) {
		// Forearm raised toward the face: gravity mostly along X.
		return Reading{
			X: 9.3 + jitter(0.4),
			Y: 0.5 + jitter(2.0),
			Z: 1.2 + jitter(0.8),
		}
	}
	// Wrist flat on a desk: gravity along Z.
	return Reading{
		X: 0.2 + jitter(0.5),
		Y: 0.1 + jitter(0.5),
		Z: 9.7 + jitter(0.3),
	}
}

func (s *Sim) inEpisode(elapsed time.Duration) bool {
	if s.EpisodeEvery <= 0 {
		return false
	}
	phase := elapsed % s.EpisodeEvery
	return phase >= s.EpisodeEvery-s.EpisodeLength
}

// jitter returns a uniform value in [-amp, amp).
func jitter(amp float64) float32 {
	return float32((rand.Float64()*2 - 1) * amp)
}
