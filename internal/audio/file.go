// Package audio provides the audio sources fed to the recognizers: WAV
// files read frame by frame, and clips captured from the microphone.
package audio

import (
	"encoding/binary"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/chaz8081/gostt-transcribe/internal/transcribe"
)

// WAVE format tags. Extensible files carry the real encoding in the
// first two bytes of the sub-format GUID.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// File streams a PCM WAV file as mono 16-bit frames. The underlying file
// is closed as soon as the stream is exhausted or a read fails; Close is
// safe to call again afterwards. A file converted from another format is
// removed by Close, not before, so file-based backends can still use Path.
type File struct {
	path       string
	temp       bool
	f          *os.File
	dec        *wav.Decoder
	buf        *goaudio.IntBuffer
	sampleRate int
	channels   int
	bitDepth   int
}

// Open validates the WAV header at path and positions the reader at the
// first PCM frame.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transcribe.ErrAudioRead, err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is not a valid WAV file", transcribe.ErrAudioRead, path)
	}
	format := dec.WavAudioFormat
	if format == wavFormatExtensible {
		if format, err = subFormat(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s: %w", transcribe.ErrAudioRead, path, err)
		}
	}
	if err := checkFormat(dec, format); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", transcribe.ErrAudioFormat, path, err)
	}
	if err := dec.FwdToPCM(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", transcribe.ErrAudioRead, path, err)
	}

	return &File{
		path:       path,
		f:          f,
		dec:        dec,
		sampleRate: int(dec.SampleRate),
		channels:   int(dec.NumChans),
		bitDepth:   int(dec.BitDepth),
	}, nil
}

func checkFormat(dec *wav.Decoder, format uint16) error {
	if format != wavFormatPCM {
		return fmt.Errorf("encoding %d is not integer PCM", format)
	}
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("%d-bit samples are not supported", dec.BitDepth)
	}
	if dec.NumChans == 0 {
		return fmt.Errorf("no channels")
	}
	if dec.SampleRate == 0 {
		return fmt.Errorf("sample rate is zero")
	}
	return nil
}

// subFormat walks the RIFF chunks of f to the fmt chunk of an extensible
// WAV and returns the format tag of its sub-format GUID.
func subFormat(f *os.File) (uint16, error) {
	var hdr [8]byte
	for off := int64(12); ; {
		if _, err := f.ReadAt(hdr[:], off); err != nil {
			return 0, fmt.Errorf("fmt chunk: %w", err)
		}
		size := int64(binary.LittleEndian.Uint32(hdr[4:]))
		if string(hdr[:4]) == "fmt " {
			if size < 40 {
				return 0, fmt.Errorf("extensible fmt chunk is %d bytes, want 40", size)
			}
			var tag [2]byte
			if _, err := f.ReadAt(tag[:], off+8+24); err != nil {
				return 0, fmt.Errorf("sub-format: %w", err)
			}
			return binary.LittleEndian.Uint16(tag[:]), nil
		}
		off += 8 + size + size%2
	}
}

// Path returns the file path.
func (a *File) Path() string { return a.path }

// SampleRate returns the sample rate in Hz.
func (a *File) SampleRate() int { return a.sampleRate }

// Channels returns the channel count of the file. Frames are always
// delivered downmixed to mono.
func (a *File) Channels() int { return a.channels }

// ReadFrames returns up to n frames as mono signed 16-bit little-endian
// PCM. A zero-length slice means the stream is exhausted.
func (a *File) ReadFrames(n int) ([]byte, error) {
	if a.f == nil {
		return nil, nil
	}
	want := n * a.channels
	if a.buf == nil || len(a.buf.Data) != want {
		a.buf = &goaudio.IntBuffer{Data: make([]int, want)}
	}

	got, err := a.dec.PCMBuffer(a.buf)
	if err != nil {
		_ = a.release()
		return nil, fmt.Errorf("%w: %s: %w", transcribe.ErrAudioRead, a.path, err)
	}
	frames := got / a.channels
	if frames == 0 {
		return nil, a.release()
	}

	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < a.channels; c++ {
			sum += to16(a.buf.Data[i*a.channels+c], a.bitDepth)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(sum/a.channels)))
	}
	return out, nil
}

// Close releases the file handle and removes a converted temp file.
func (a *File) Close() error {
	err := a.release()
	if a.temp {
		a.temp = false
		if rmErr := os.Remove(a.path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = rmErr
		}
	}
	return err
}

func (a *File) release() error {
	if a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f = nil
	return err
}

// to16 rescales a decoded sample to the signed 16-bit range. 8-bit WAV
// samples are unsigned with a 128 offset.
func to16(v, bitDepth int) int {
	switch bitDepth {
	case 8:
		return (v - 128) << 8
	case 24:
		return v >> 8
	case 32:
		return v >> 16
	default:
		return v
	}
}
