package transcribe

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultChunkFrames is the number of frames pushed per AcceptWaveform call.
const DefaultChunkFrames = 4000

// Session is a stateful streaming decoder bound to a loaded model.
// Result and FinalResult return vosk-style JSON.
type Session interface {
	// AcceptWaveform pushes one chunk of PCM and reports whether the
	// recognizer finalized an utterance.
	AcceptWaveform(chunk []byte) (bool, error)
	// Result returns the finalized utterance after AcceptWaveform reported true.
	Result() (string, error)
	// FinalResult flushes the decoder at end of stream.
	FinalResult() (string, error)
	Close() error
}

// voskResult is the JSON shape shared by the vosk library and vosk-server.
type voskResult struct {
	Text    string     `json:"text"`
	Partial string     `json:"partial"`
	Result  []voskWord `json:"result"`
}

type voskWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf"`
}

// parseResult converts a vosk JSON result into a fragment. When word
// timings are present the fragment spans the first to the last word.
func parseResult(raw string) (Fragment, error) {
	var r voskResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Fragment{}, fmt.Errorf("%w: parse result %q: %w", ErrRecognition, raw, err)
	}
	f := Fragment{Text: r.Text}
	if n := len(r.Result); n > 0 {
		f.Start = seconds(r.Result[0].Start)
		f.End = seconds(r.Result[n-1].End)
	}
	return f, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Feed streams audio into sess chunkFrames frames at a time until the
// source reports end of stream. Every finalized result is emitted as it
// arrives, and the final result is emitted last.
func Feed(audio Audio, sess Session, chunkFrames int, emit func(Fragment)) error {
	if chunkFrames <= 0 {
		chunkFrames = DefaultChunkFrames
	}
	for {
		chunk, err := audio.ReadFrames(chunkFrames)
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			break
		}
		final, err := sess.AcceptWaveform(chunk)
		if err != nil {
			return fmt.Errorf("%w: accept waveform: %w", ErrRecognition, err)
		}
		if !final {
			continue
		}
		raw, err := sess.Result()
		if err != nil {
			return fmt.Errorf("%w: result: %w", ErrRecognition, err)
		}
		f, err := parseResult(raw)
		if err != nil {
			return err
		}
		emit(f)
	}

	raw, err := sess.FinalResult()
	if err != nil {
		return fmt.Errorf("%w: final result: %w", ErrRecognition, err)
	}
	f, err := parseResult(raw)
	if err != nil {
		return err
	}
	emit(f)
	return nil
}
