package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/chaz8081/gostt-transcribe/internal/config"
	"github.com/chaz8081/gostt-transcribe/internal/models"
)

// whisperSampleRate is the input rate whisper expects; other rates are resampled.
const whisperSampleRate = 16000

// whisperEngine runs one decode over a full clip.
type whisperEngine interface {
	Process(samples []float32, opts whisperOptions, emit func(Fragment)) error
	Close() error
}

type whisperOptions struct {
	Language string
	Threads  uint
}

// WhisperBackend decodes whole files with whisper.cpp.
type WhisperBackend struct {
	cfg       config.WhisperConfig
	modelsDir string
	logger    *slog.Logger
	// open is replaced in tests; defaults to the cgo loader.
	open func(modelPath string) (whisperEngine, error)
}

// Name implements Backend.
func (b *WhisperBackend) Name() string { return "whisper" }

// Load resolves the model reference (a ggml file or a preset name) and
// loads it. Presets missing from the cache are downloaded when allowed.
func (b *WhisperBackend) Load(ctx context.Context) (Model, error) {
	switch b.cfg.Device {
	case "", "auto", "cpu":
	default:
		return nil, fmt.Errorf("%w: whisper device %q is not supported by this build (use cpu or auto)", ErrModelLoad, b.cfg.Device)
	}

	path, err := models.ResolveWhisper(b.cfg.Model, b.cfg.ComputeType, b.modelsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	if _, err := os.Stat(path); err != nil {
		if !b.cfg.Download || !models.IsWhisperPreset(b.cfg.Model) {
			return nil, fmt.Errorf("%w: whisper model %q: %w", ErrModelLoad, path, err)
		}
		b.logger.Info("downloading whisper model", "preset", b.cfg.Model, "compute_type", b.cfg.ComputeType, "dest", path)
		if path, err = models.EnsureWhisper(ctx, b.cfg.Model, b.cfg.ComputeType, b.modelsDir); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
		}
	}

	open := b.open
	if open == nil {
		open = openWhisperModel
	}
	engine, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: load whisper model %q: %w", ErrModelLoad, path, err)
	}
	b.logger.Debug("whisper model loaded", "path", path)

	return &WhisperModel{
		engine: engine,
		opts:   whisperOptions{Language: b.cfg.Language, Threads: b.cfg.Threads},
	}, nil
}

// WhisperModel is a loaded whisper model.
type WhisperModel struct {
	engine whisperEngine
	opts   whisperOptions
}

// Transcribe reads the whole stream, resamples it to 16 kHz and emits
// whisper's segments in order.
func (m *WhisperModel) Transcribe(_ context.Context, audio Audio, emit func(Fragment)) error {
	rate := audio.SampleRate()
	if rate <= 0 {
		return fmt.Errorf("%w: sample rate %d Hz", ErrAudioFormat, rate)
	}
	samples, err := ReadSamples(audio)
	if err != nil {
		return err
	}
	samples = resample(samples, rate, whisperSampleRate)
	if err := m.engine.Process(samples, m.opts, emit); err != nil {
		return fmt.Errorf("%w: whisper: %w", ErrRecognition, err)
	}
	return nil
}

// Close releases the whisper model resources.
func (m *WhisperModel) Close() error {
	if m.engine != nil {
		return m.engine.Close()
	}
	return nil
}
