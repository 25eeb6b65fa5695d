package transcribe

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/go-audio/wav"
)

func TestReadSamples(t *testing.T) {
	audio := newPCMAudio(16000, 0, 16384, -32768, 32767)
	got, err := ReadSamples(audio)
	if err != nil {
		t.Fatalf("ReadSamples() error = %v", err)
	}
	want := []float32{0, 0.5, -1, 32767.0 / 32768.0}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestReadSamplesMultipleChunks(t *testing.T) {
	audio := silence(16000, readChunkFrames*2+10)
	got, err := ReadSamples(audio)
	if err != nil {
		t.Fatalf("ReadSamples() error = %v", err)
	}
	if len(got) != readChunkFrames*2+10 {
		t.Errorf("len = %d, want %d", len(got), readChunkFrames*2+10)
	}
}

func TestReadSamplesError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := ReadSamples(failingAudio{err: boom}); !errors.Is(err, boom) {
		t.Errorf("ReadSamples() error = %v, want %v", err, boom)
	}
}

func TestResample(t *testing.T) {
	tests := []struct {
		name     string
		in       []float32
		from, to int
		want     []float32
	}{
		{"same rate", []float32{0.1, 0.2}, 16000, 16000, []float32{0.1, 0.2}},
		{"empty", nil, 8000, 16000, nil},
		{"upsample 8k", []float32{0, 0.5, 1}, 8000, 16000, []float32{0, 0.25, 0.5, 0.75, 1, 1}},
		{"downsample 32k", []float32{0, 0.1, 0.2, 0.3}, 32000, 16000, []float32{0, 0.2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resample(tt.in, tt.from, tt.to)
			if len(got) != len(tt.want) {
				t.Fatalf("resample() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if d := got[i] - tt.want[i]; d > 1e-6 || d < -1e-6 {
					t.Errorf("sample[%d] = %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCollectSegments(t *testing.T) {
	segs := []Fragment{{Text: " Hello,"}, {Text: " world."}}
	i := 0
	next := func() (Fragment, error) {
		if i == len(segs) {
			return Fragment{}, io.EOF
		}
		i++
		return segs[i-1], nil
	}

	var tr Transcript
	if err := collectSegments(next, tr.Add); err != nil {
		t.Fatalf("collectSegments() error = %v", err)
	}
	if got := tr.String(); got != "Hello,  world." {
		t.Errorf("transcript = %q, want %q", got, "Hello,  world.")
	}

	boom := errors.New("decoder state lost")
	err := collectSegments(func() (Fragment, error) { return Fragment{}, boom }, tr.Add)
	if !errors.Is(err, boom) {
		t.Errorf("collectSegments() error = %v, want %v", err, boom)
	}
}

type fileAudio struct {
	*pcmAudio
	path string
}

func (a fileAudio) Path() string { return a.path }

func TestFileForUsesBackingFile(t *testing.T) {
	audio := fileAudio{pcmAudio: silence(16000, 10), path: "/data/clip.wav"}
	path, cleanup, err := fileFor(audio)
	if err != nil {
		t.Fatalf("fileFor() error = %v", err)
	}
	defer cleanup()
	if path != "/data/clip.wav" {
		t.Errorf("path = %q, want backing file", path)
	}
	if len(audio.reads) != 0 {
		t.Error("backing file source should not be read")
	}
}

func TestFileForWritesTempWAV(t *testing.T) {
	audio := newPCMAudio(16000, 100, -100, 2000, -2000, 0)
	path, cleanup, err := fileFor(audio)
	if err != nil {
		t.Fatalf("fileFor() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening temp wav: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("temp file is not a valid WAV")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decoding temp wav: %v", err)
	}
	if dec.SampleRate != 16000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Errorf("format = %d Hz %d ch %d bit, want 16000 Hz 1 ch 16 bit", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	want := []int{100, -100, 2000, -2000, 0}
	if len(buf.Data) != len(want) {
		t.Fatalf("samples = %v, want %v", buf.Data, want)
	}
	for i := range want {
		if buf.Data[i] != want[i] {
			t.Errorf("sample[%d] = %d, want %d", i, buf.Data[i], want[i])
		}
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cleanup should remove the temp wav")
	}
}

func TestFileForReadError(t *testing.T) {
	boom := errors.New("boom")
	if _, _, err := fileFor(failingAudio{err: boom}); !errors.Is(err, boom) {
		t.Errorf("fileFor() error = %v, want %v", err, boom)
	}
}
