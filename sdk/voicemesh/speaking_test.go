package voicemesh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameOf(level float32, n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = level
	}
	return samples
}

func TestDetectorFlipsOnSustainedEnergy(t *testing.T) {
	var flips []bool
	clock := time.Unix(0, 0)
	d := NewDetector(func(speaking bool) { flips = append(flips, speaking) },
		WithThreshold(0.1),
		WithWindowFrames(4),
		WithMinInterval(0),
		withClock(func() time.Time { return clock }),
	)

	// silence keeps the detector quiet
	for i := 0; i < 8; i++ {
		d.Process(frameOf(0.01, 160))
	}
	assert.Empty(t, flips)
	assert.False(t, d.Speaking())

	// sustained speech pushes the smoothed level over the threshold
	for i := 0; i < 8; i++ {
		d.Process(frameOf(0.5, 160))
	}
	require.NotEmpty(t, flips)
	assert.True(t, flips[0])
	assert.True(t, d.Speaking())

	// back to silence
	for i := 0; i < 8; i++ {
		d.Process(frameOf(0.0, 160))
	}
	assert.Equal(t, []bool{true, false}, flips)
}

func TestDetectorSmoothsSingleLoudFrame(t *testing.T) {
	var flips []bool
	d := NewDetector(func(speaking bool) { flips = append(flips, speaking) },
		WithThreshold(0.3),
		WithWindowFrames(8),
		WithMinInterval(0),
	)

	for i := 0; i < 8; i++ {
		d.Process(frameOf(0.0, 160))
	}
	// one loud frame inside a quiet window must not flip the state
	d.Process(frameOf(0.6, 160))
	assert.Empty(t, flips, "a single loud frame is averaged away")
}

func TestDetectorThrottlesFlips(t *testing.T) {
	var flips []bool
	clock := time.Unix(0, 0)
	d := NewDetector(func(speaking bool) { flips = append(flips, speaking) },
		WithThreshold(0.1),
		WithWindowFrames(1),
		WithMinInterval(500*time.Millisecond),
		withClock(func() time.Time { return clock }),
	)

	d.Process(frameOf(0.5, 160))
	require.Equal(t, []bool{true}, flips)

	// an immediate drop is suppressed by the throttle
	d.Process(frameOf(0.0, 160))
	assert.Equal(t, []bool{true}, flips)

	clock = clock.Add(time.Second)
	d.Process(frameOf(0.0, 160))
	assert.Equal(t, []bool{true, false}, flips)
}

func TestRMS(t *testing.T) {
	assert.Zero(t, rms(nil))
	assert.InDelta(t, 0.5, rms(frameOf(0.5, 100)), 1e-9)
	assert.InDelta(t, 0.5, rms(frameOf(-0.5, 100)), 1e-9, "sign must not matter")
}
