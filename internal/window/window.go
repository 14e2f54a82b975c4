// Package window implements the bounded sliding buffer of recent sensor
// samples. Insertion at capacity evicts the oldest sample.
package window

import "github.com/large-farva/bfrb-sense/internal/sensor"

// Buffer is a fixed-capacity FIFO ring. It is not safe for concurrent use;
// the wearable session mutates it from a single goroutine.
type Buffer struct {
	buf  []sensor.Sample
	head int // index of the oldest sample
	n    int
}

// New allocates a buffer holding at most capacity samples.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{buf: make([]sensor.Sample, capacity)}
}

// Push appends s, evicting the oldest sample when the buffer is full.
func (b *Buffer) Push(s sensor.Sample) {
	if b.n < len(b.buf) {
		b.buf[(b.head+b.n)%len(b.buf)] = s
		b.n++
		return
	}
	b.buf[b.head] = s
	b.head = (b.head + 1) % len(b.buf)
}

// Len returns the number of samples currently held.
func (b *Buffer) Len() int { return b.n }

// Cap returns the configured capacity.
func (b *Buffer) Cap() int { return len(b.buf) }

// Samples returns a copy of the window in arrival order, oldest first.
func (b *Buffer) Samples() []sensor.Sample {
	out := make([]sensor.Sample, b.n)
	for i := range b.n {
		out[i] = b.buf[(b.head+i)%len(b.buf)]
	}
	return out
}

// Each calls fn for every sample in arrival order without copying.
func (b *Buffer) Each(fn func(sensor.Sample)) {
	for i := range b.n {
		fn(b.buf[(b.head+i)%len(b.buf)])
	}
}
