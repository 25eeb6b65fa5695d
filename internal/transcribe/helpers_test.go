package transcribe

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
)

// pcmAudio is an in-memory Audio source of mono 16-bit frames.
type pcmAudio struct {
	rate  int
	data  []byte
	pos   int
	reads []int // requested frame counts
}

func newPCMAudio(rate int, samples ...int16) *pcmAudio {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return &pcmAudio{rate: rate, data: data}
}

// silence returns n zero frames.
func silence(rate, n int) *pcmAudio {
	return &pcmAudio{rate: rate, data: make([]byte, n*2)}
}

func (a *pcmAudio) SampleRate() int { return a.rate }

func (a *pcmAudio) ReadFrames(n int) ([]byte, error) {
	a.reads = append(a.reads, n)
	end := min(a.pos+n*2, len(a.data))
	chunk := a.data[a.pos:end]
	a.pos = end
	return chunk, nil
}

// failingAudio returns err on the first read.
type failingAudio struct {
	err error
}

func (a failingAudio) SampleRate() int                { return 16000 }
func (a failingAudio) ReadFrames(int) ([]byte, error) { return nil, a.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// collect runs m over audio and returns the emitted fragments.
func collect(m Model, audio Audio) ([]Fragment, error) {
	var out []Fragment
	err := m.Transcribe(context.Background(), audio, func(f Fragment) { out = append(out, f) })
	return out, err
}
