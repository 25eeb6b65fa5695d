package transcribe

import (
	"errors"
	"testing"
	"time"
)

// scriptedSession replays canned recognizer output. finals lists the
// AcceptWaveform calls (1-based) that finalize an utterance; results are
// returned by Result in order.
type scriptedSession struct {
	finals  map[int]bool
	results []string
	final   string
	failAt  int

	accepted [][]byte
	closed   bool
}

func (s *scriptedSession) AcceptWaveform(chunk []byte) (bool, error) {
	s.accepted = append(s.accepted, chunk)
	n := len(s.accepted)
	if n == s.failAt {
		return false, errors.New("decoder exploded")
	}
	return s.finals[n], nil
}

func (s *scriptedSession) Result() (string, error) {
	r := s.results[0]
	s.results = s.results[1:]
	return r, nil
}

func (s *scriptedSession) FinalResult() (string, error) { return s.final, nil }

func (s *scriptedSession) Close() error {
	s.closed = true
	return nil
}

func TestFeedHelloWorld(t *testing.T) {
	// 3 s of 16 kHz audio = 48000 frames = 12 chunks of 4000
	audio := silence(16000, 48000)
	sess := &scriptedSession{
		finals:  map[int]bool{6: true},
		results: []string{`{"text": "hello"}`},
		final:   `{"text": "world"}`,
	}

	var tr Transcript
	if err := Feed(audio, sess, DefaultChunkFrames, tr.Add); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}

	if len(sess.accepted) != 12 {
		t.Errorf("chunks accepted = %d, want 12", len(sess.accepted))
	}
	for i, c := range sess.accepted {
		if len(c) != 8000 {
			t.Errorf("chunk %d = %d bytes, want 8000", i, len(c))
		}
	}
	if got := tr.String(); got != "hello world" {
		t.Errorf("transcript = %q, want %q", got, "hello world")
	}
}

func TestFeedFinalResultIsLast(t *testing.T) {
	audio := silence(16000, 10)
	sess := &scriptedSession{
		finals:  map[int]bool{1: true, 2: true, 3: true},
		results: []string{`{"text": "a"}`, `{"text": ""}`, `{"text": "c"}`},
		final:   `{"text": "d"}`,
	}

	var got []string
	err := Feed(audio, sess, 4, func(f Fragment) { got = append(got, f.Text) })
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	want := []string{"a", "", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("fragments = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFeedSilenceYieldsEmptyTranscript(t *testing.T) {
	sess := &scriptedSession{final: `{"text" : ""}`}
	var tr Transcript
	if err := Feed(silence(16000, 16000), sess, 4000, tr.Add); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if got := tr.String(); got != "" {
		t.Errorf("transcript = %q, want empty", got)
	}
}

func TestFeedDefaultChunk(t *testing.T) {
	audio := silence(16000, 5000)
	sess := &scriptedSession{final: `{"text": ""}`}
	if err := Feed(audio, sess, 0, func(Fragment) {}); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if audio.reads[0] != DefaultChunkFrames {
		t.Errorf("first read = %d frames, want %d", audio.reads[0], DefaultChunkFrames)
	}
}

func TestFeedErrors(t *testing.T) {
	readErr := errors.New("disk gone")

	t.Run("audio read", func(t *testing.T) {
		emitted := 0
		err := Feed(failingAudio{err: readErr}, &scriptedSession{}, 4000, func(Fragment) { emitted++ })
		if !errors.Is(err, readErr) {
			t.Errorf("Feed() error = %v, want %v", err, readErr)
		}
		if emitted != 0 {
			t.Errorf("emitted %d fragments on failure", emitted)
		}
	})

	t.Run("recognizer", func(t *testing.T) {
		sess := &scriptedSession{failAt: 2}
		err := Feed(silence(16000, 100), sess, 10, func(Fragment) {})
		if !errors.Is(err, ErrRecognition) {
			t.Errorf("Feed() error = %v, want ErrRecognition", err)
		}
	})

	t.Run("malformed result", func(t *testing.T) {
		sess := &scriptedSession{final: `not json`}
		err := Feed(silence(16000, 1), sess, 10, func(Fragment) {})
		if !errors.Is(err, ErrRecognition) {
			t.Errorf("Feed() error = %v, want ErrRecognition", err)
		}
	})
}

func TestParseResultWordTimings(t *testing.T) {
	raw := `{
  "result" : [{"conf" : 1.0, "end" : 0.9, "start" : 0.42, "word" : "hello"},
              {"conf" : 1.0, "end" : 1.5, "start" : 0.9, "word" : "world"}],
  "text" : "hello world"
}`
	f, err := parseResult(raw)
	if err != nil {
		t.Fatalf("parseResult() error = %v", err)
	}
	if f.Text != "hello world" {
		t.Errorf("Text = %q, want %q", f.Text, "hello world")
	}
	if f.Start != 420*time.Millisecond {
		t.Errorf("Start = %s, want 420ms", f.Start)
	}
	if f.End != 1500*time.Millisecond {
		t.Errorf("End = %s, want 1.5s", f.End)
	}
}
