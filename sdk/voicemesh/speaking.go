package voicemesh

import (
	"math"
	"time"
)

const (
	defaultWindowFrames = 10
	defaultThreshold    = 0.02
	defaultMinInterval  = 500 * time.Millisecond
)

// Detector decides whether the local member is speaking from captured audio
// frames. It smooths the per-frame energy over a short window and throttles
// state flips so a breath between words does not spam the room.
type Detector struct {
	threshold   float64
	minInterval time.Duration
	onChange    func(speaking bool)
	now         func() time.Time

	window   []float64
	idx      int
	filled   int
	speaking bool
	lastFlip time.Time
}

type DetectorOption func(*Detector)

// WithThreshold sets the smoothed RMS level above which the member counts as
// speaking. Samples are expected in [-1, 1].
func WithThreshold(threshold float64) DetectorOption {
	return func(d *Detector) {
		d.threshold = threshold
	}
}

func WithWindowFrames(frames int) DetectorOption {
	return func(d *Detector) {
		d.window = make([]float64, frames)
	}
}

// WithMinInterval sets the minimum time between speaking state flips.
func WithMinInterval(interval time.Duration) DetectorOption {
	return func(d *Detector) {
		d.minInterval = interval
	}
}

func withClock(now func() time.Time) DetectorOption {
	return func(d *Detector) {
		d.now = now
	}
}

// NewDetector builds a detector that calls onChange whenever the speaking
// state flips. onChange is typically wired to the room client's SetSpeaking.
func NewDetector(onChange func(speaking bool), opts ...DetectorOption) *Detector {
	d := &Detector{
		threshold:   defaultThreshold,
		minInterval: defaultMinInterval,
		onChange:    onChange,
		now:         time.Now,
		window:      make([]float64, defaultWindowFrames),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Process feeds one captured audio frame. Not safe for concurrent use; feed
// it from the capture loop only.
func (d *Detector) Process(samples []float32) {
	d.window[d.idx] = rms(samples)
	d.idx = (d.idx + 1) % len(d.window)
	if d.filled < len(d.window) {
		d.filled++
	}

	var sum float64
	for i := 0; i < d.filled; i++ {
		sum += d.window[i]
	}
	level := sum / float64(d.filled)

	next := level > d.threshold
	if next == d.speaking {
		return
	}

	now := d.now()
	if now.Sub(d.lastFlip) < d.minInterval {
		return
	}

	d.speaking = next
	d.lastFlip = now
	if d.onChange != nil {
		d.onChange(next)
	}
}

func (d *Detector) Speaking() bool {
	return d.speaking
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
