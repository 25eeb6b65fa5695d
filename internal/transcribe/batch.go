package transcribe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// readChunkFrames is the read size used when draining a source for batch decoding.
const readChunkFrames = 16000

// ReadSamples drains audio into mono float32 samples normalized to [-1.0, 1.0].
func ReadSamples(audio Audio) ([]float32, error) {
	var samples []float32
	for {
		chunk, err := audio.ReadFrames(readChunkFrames)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			return samples, nil
		}
		for i := 0; i+1 < len(chunk); i += 2 {
			s := int16(binary.LittleEndian.Uint16(chunk[i:]))
			samples = append(samples, float32(s)/32768.0)
		}
	}
}

// resample converts mono samples from one rate to another by linear
// interpolation between neighbouring samples.
func resample(samples []float32, from, to int) []float32 {
	if from == to || len(samples) == 0 {
		return samples
	}
	n := int(int64(len(samples)) * int64(to) / int64(from))
	out := make([]float32, n)
	step := float64(from) / float64(to)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = samples[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = samples[j] + (samples[j+1]-samples[j])*frac
	}
	return out
}

// collectSegments pulls segments from next until io.EOF and emits each one.
func collectSegments(next func() (Fragment, error), emit func(Fragment)) error {
	for {
		seg, err := next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("next segment: %w", err)
		}
		emit(seg)
	}
}

// audioPath returns the file backing audio when there is one.
func audioPath(audio Audio) string {
	if p, ok := audio.(interface{ Path() string }); ok {
		return p.Path()
	}
	return ""
}

// fileFor returns a WAV file path for audio. Sources that are not backed by
// a file are written to a temporary WAV; cleanup removes it.
func fileFor(audio Audio) (path string, cleanup func(), err error) {
	if p := audioPath(audio); p != "" {
		return p, func() {}, nil
	}

	f, err := os.CreateTemp("", "gostt_*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("temp file: %w", err)
	}
	cleanup = func() { _ = os.Remove(f.Name()) }

	if err := writeWAV(f, audio); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp wav: %w", err)
	}
	return f.Name(), cleanup, nil
}

// writeWAV drains audio into w as a mono 16-bit PCM WAV.
func writeWAV(w io.WriteSeeker, audio Audio) error {
	enc := wav.NewEncoder(w, audio.SampleRate(), 16, 1, 1)
	for {
		chunk, err := audio.ReadFrames(readChunkFrames)
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			break
		}
		buf := &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 1, SampleRate: audio.SampleRate()},
			SourceBitDepth: 16,
			Data:           make([]int, len(chunk)/2),
		}
		for i := range buf.Data {
			buf.Data[i] = int(int16(binary.LittleEndian.Uint16(chunk[i*2:])))
		}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("write wav: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
