// Package classify evaluates a window of accelerometer samples against the
// calibrated hand-to-face pose. The rule is stateless: each evaluation
// looks only at the current window.
package classify

import (
	"github.com/large-farva/bfrb-sense/internal/config"
	"github.com/large-farva/bfrb-sense/internal/sensor"
	"github.com/large-farva/bfrb-sense/internal/window"
)

// AxisBounds is an open interval on one axis.
type AxisBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies strictly inside the interval.
func (b AxisBounds) Contains(v float32) bool {
	f := float64(v)
	return f > b.Min && f < b.Max
}

// Bounds holds the calibration for all three axes.
type Bounds struct {
	X AxisBounds `json:"x"`
	Y AxisBounds `json:"y"`
	Z AxisBounds `json:"z"`
}

// BoundsFromConfig converts the calibration section.
func BoundsFromConfig(c config.CalibrationConfig) Bounds {
	return Bounds{
		X: AxisBounds{Min: c.X.Min, Max: c.X.Max},
		Y: AxisBounds{Min: c.Y.Min, Max: c.Y.Max},
		Z: AxisBounds{Min: c.Z.Min, Max: c.Z.Max},
	}
}

// InRange reports whether every axis of s falls inside its bounds.
func (b Bounds) InRange(s sensor.Sample) bool {
	return b.X.Contains(s.X) && b.Y.Contains(s.Y) && b.Z.Contains(s.Z)
}

// Result is the outcome of one evaluation. It is never stored.
type Result struct {
	PercentIn float64 `json:"percent_in"`
	Triggered bool    `json:"triggered"`
	Count     int     `json:"count"`
	Len       int     `json:"len"`
}

// Classifier applies the percentage-in-range rule.
type Classifier struct {
	Bounds    Bounds
	Threshold float64 // percent, inclusive
}

// New returns a classifier with the given calibration and threshold.
func New(b Bounds, threshold float64) *Classifier {
	return &Classifier{Bounds: b, Threshold: threshold}
}

// Evaluate classifies the current window. ok is false for an empty
// window, in which case no decision is made.
func (c *Classifier) Evaluate(w *window.Buffer) (Result, bool) {
	n := w.Len()
	if n == 0 {
		return Result{}, false
	}
	count := 0
	w.Each(func(s sensor.Sample) {
		if c.Bounds.InRange(s) {
			count++
		}
	})
	pct := 100 * float64(count) / float64(n)
	return Result{
		PercentIn: pct,
		Triggered: pct >= c.Threshold,
		Count:     count,
		Len:       n,
	}, true
}
