// Package transcribe provides speech-to-text backends and the pipeline
// that feeds them audio and assembles their output.
//
// Supported backends:
//   - vosk: Vosk/Kaldi via cgo bindings, streaming (build tag "vosk")
//   - vosk-server: a remote vosk-server over websocket, streaming
//   - whisper: whisper.cpp via Go bindings, batch (build tag "whisper")
//   - exec: an external command printing JSON segments, batch
//   - openai: the hosted transcription API, batch
//   - fallback: several of the above tried in order
package transcribe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chaz8081/gostt-transcribe/internal/config"
)

// Audio is a source of mono signed 16-bit little-endian PCM frames.
type Audio interface {
	// SampleRate returns the sample rate in Hz.
	SampleRate() int
	// ReadFrames returns up to n frames. A zero-length result with a nil
	// error marks the end of the stream.
	ReadFrames(n int) ([]byte, error)
}

// Model is a loaded recognition model.
type Model interface {
	// Transcribe consumes audio and calls emit for every fragment in the
	// order the recognizer produces them.
	Transcribe(ctx context.Context, audio Audio, emit func(Fragment)) error
	// Close releases backend resources.
	Close() error
}

// Backend loads models for one recognition engine.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Load initializes the model. Errors wrap ErrModelLoad.
	Load(ctx context.Context) (Model, error)
}

// New creates a Backend based on the config backend setting.
func New(cfg *config.TranscribeConfig, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case "vosk", "":
		return &VoskBackend{cfg: cfg.Vosk, logger: logger}, nil
	case "vosk-server":
		return &VoskServerBackend{cfg: cfg.VoskServer, logger: logger}, nil
	case "whisper":
		return &WhisperBackend{cfg: cfg.Whisper, modelsDir: cfg.ModelsDir, logger: logger}, nil
	case "exec":
		return NewExecBackend(cfg.Exec, logger)
	case "openai":
		return NewOpenAIBackend(cfg.OpenAI, logger), nil
	case "fallback":
		return NewFallbackBackend(cfg, logger)
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: vosk, vosk-server, whisper, exec, openai, fallback)", cfg.Backend)
	}
}

// Run transcribes audio with a loaded model and returns the assembled
// transcript. On error no transcript is returned, so a failed run never
// yields partial output.
func Run(ctx context.Context, m Model, audio Audio, keepEmpty bool) (*Transcript, error) {
	tr := &Transcript{KeepEmpty: keepEmpty}
	if err := m.Transcribe(ctx, audio, tr.Add); err != nil {
		return nil, err
	}
	return tr, nil
}
