package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/bfrb-sense/internal/sensor"
)

func sample(i int) sensor.Sample {
	return sensor.Sample{X: float32(i), Timestamp: time.Unix(int64(i), 0)}
}

func TestPushBelowCapacity(t *testing.T) {
	b := New(10)
	for i := 0; i < 4; i++ {
		b.Push(sample(i))
	}
	require.Equal(t, 4, b.Len())
	assert.Equal(t, 10, b.Cap())

	got := b.Samples()
	for i, s := range got {
		assert.Equal(t, float32(i), s.X)
	}
}

func TestFIFOEviction(t *testing.T) {
	b := New(10)
	for i := 0; i < 37; i++ {
		b.Push(sample(i))
		require.LessOrEqual(t, b.Len(), 10)

		if i >= 10 {
			got := b.Samples()
			require.Len(t, got, 10)
			// The 11th most recent push (i-10) has been evicted; the
			// oldest retained is the 10th most recent.
			assert.Equal(t, float32(i-9), got[0].X)
			assert.Equal(t, float32(i), got[9].X)
		}
	}
}

func TestOrderIsArrivalOrder(t *testing.T) {
	b := New(3)
	for i := 0; i < 5; i++ {
		b.Push(sample(i))
	}
	var xs []float32
	b.Each(func(s sensor.Sample) { xs = append(xs, s.X) })
	assert.Equal(t, []float32{2, 3, 4}, xs)
}

func TestSamplesIsACopy(t *testing.T) {
	b := New(2)
	b.Push(sample(1))
	got := b.Samples()
	got[0].X = 99
	assert.Equal(t, float32(1), b.Samples()[0].X)
}

func TestZeroCapacityClampsToOne(t *testing.T) {
	b := New(0)
	b.Push(sample(1))
	b.Push(sample(2))
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, float32(2), b.Samples()[0].X)
}
