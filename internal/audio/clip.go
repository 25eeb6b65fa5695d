package audio

import (
	"encoding/binary"
	"math"
)

// Clip is an in-memory audio source holding interleaved float32 samples.
type Clip struct {
	samples    []float32
	sampleRate int
	channels   int
	pos        int // next frame
}

// NewClip wraps interleaved float32 samples in [-1.0, 1.0].
func NewClip(samples []float32, sampleRate, channels int) *Clip {
	if channels <= 0 {
		channels = 1
	}
	return &Clip{samples: samples, sampleRate: sampleRate, channels: channels}
}

// SampleRate returns the sample rate in Hz.
func (c *Clip) SampleRate() int { return c.sampleRate }

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.sampleRate == 0 {
		return 0
	}
	return float64(len(c.samples)/c.channels) / float64(c.sampleRate)
}

// ReadFrames returns up to n frames as mono signed 16-bit little-endian PCM.
func (c *Clip) ReadFrames(n int) ([]byte, error) {
	total := len(c.samples) / c.channels
	frames := min(n, total-c.pos)
	if frames <= 0 {
		return nil, nil
	}

	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		var sum float32
		base := (c.pos + i) * c.channels
		for ch := 0; ch < c.channels; ch++ {
			sum += c.samples[base+ch]
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(floatTo16(sum/float32(c.channels))))
	}
	c.pos += frames
	return out, nil
}

// Close implements the audio source contract; clips hold no handles.
func (c *Clip) Close() error { return nil }

func floatTo16(f float32) int16 {
	v := math.Round(float64(f) * 32767)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
