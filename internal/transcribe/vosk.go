package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/chaz8081/gostt-transcribe/internal/config"
)

// voskEngine creates recognizer sessions from a loaded vosk model.
type voskEngine interface {
	NewSession(sampleRate int, words bool) (Session, error)
	Close() error
}

// VoskBackend streams audio through an in-process vosk recognizer.
type VoskBackend struct {
	cfg    config.VoskConfig
	logger *slog.Logger
	// open is replaced in tests; defaults to the cgo loader.
	open func(modelPath string) (voskEngine, error)
}

// Name implements Backend.
func (b *VoskBackend) Name() string { return "vosk" }

// Load reads the vosk model directory.
func (b *VoskBackend) Load(_ context.Context) (Model, error) {
	info, err := os.Stat(b.cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: vosk model %q: %w", ErrModelLoad, b.cfg.ModelPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: vosk model %q is not a directory", ErrModelLoad, b.cfg.ModelPath)
	}

	open := b.open
	if open == nil {
		open = openVoskModel
	}
	engine, err := open(b.cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: vosk model %q: %w", ErrModelLoad, b.cfg.ModelPath, err)
	}
	b.logger.Debug("vosk model loaded", "path", b.cfg.ModelPath)

	return &VoskModel{engine: engine, chunkFrames: b.cfg.ChunkFrames, words: b.cfg.Words}, nil
}

// VoskModel is a loaded vosk model.
type VoskModel struct {
	engine      voskEngine
	chunkFrames int
	words       bool
}

// Transcribe creates a recognizer at the source sample rate and feeds it
// the whole stream.
func (m *VoskModel) Transcribe(_ context.Context, audio Audio, emit func(Fragment)) error {
	sess, err := m.engine.NewSession(audio.SampleRate(), m.words)
	if err != nil {
		return fmt.Errorf("%w: create recognizer: %w", ErrRecognition, err)
	}
	defer func() { _ = sess.Close() }()

	return Feed(audio, sess, m.chunkFrames, emit)
}

// Close releases the vosk model.
func (m *VoskModel) Close() error {
	if m.engine != nil {
		return m.engine.Close()
	}
	return nil
}
