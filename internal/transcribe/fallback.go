package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chaz8081/gostt-transcribe/internal/config"
)

// FallbackBackend chains other backends. Each recording is offered to them
// in order until one returns a non-empty transcript.
type FallbackBackend struct {
	backends []Backend
	logger   *slog.Logger
}

// NewFallbackBackend builds every backend named in cfg.Fallback from the
// rest of cfg.
func NewFallbackBackend(cfg *config.TranscribeConfig, logger *slog.Logger) (*FallbackBackend, error) {
	if len(cfg.Fallback) == 0 {
		return nil, fmt.Errorf("transcribe: fallback needs at least one backend")
	}
	if logger == nil {
		logger = slog.Default()
	}
	fb := &FallbackBackend{logger: logger}
	for _, name := range cfg.Fallback {
		if name == "fallback" {
			return nil, fmt.Errorf("transcribe: fallback cannot contain itself")
		}
		sub := *cfg
		sub.Backend = name
		b, err := New(&sub, logger.With("fallback", name))
		if err != nil {
			return nil, err
		}
		fb.backends = append(fb.backends, b)
	}
	return fb, nil
}

// Name returns "fallback".
func (b *FallbackBackend) Name() string {
	return "fallback"
}

// Load loads every backend in the chain. Backends that fail to load are
// left out; the load fails only when none succeeds.
func (b *FallbackBackend) Load(ctx context.Context) (Model, error) {
	m := &FallbackModel{logger: b.logger}
	var errs []error
	for _, backend := range b.backends {
		model, err := backend.Load(ctx)
		if err != nil {
			b.logger.Warn("fallback backend unavailable", "backend", backend.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}
		m.names = append(m.names, backend.Name())
		m.models = append(m.models, model)
	}
	if len(m.models) == 0 {
		return nil, fmt.Errorf("%w: no fallback backend loaded: %w", ErrModelLoad, errors.Join(errs...))
	}
	return m, nil
}

// FallbackModel runs a recording through its models in order.
type FallbackModel struct {
	names  []string
	models []Model
	logger *slog.Logger
}

// Transcribe buffers the audio once, then replays it to each model until
// one produces text. Fragments from a model that errors or produces only
// empty text are discarded. When every model ran cleanly but heard
// nothing, the result is an empty transcript.
func (m *FallbackModel) Transcribe(ctx context.Context, audio Audio, emit func(Fragment)) error {
	buf, err := bufferAudio(audio)
	if err != nil {
		return err
	}

	var errs []error
	var silent []Fragment
	for i, model := range m.models {
		if err := ctx.Err(); err != nil {
			return err
		}
		var frags []Fragment
		err := model.Transcribe(ctx, buf.rewind(), func(f Fragment) { frags = append(frags, f) })
		if err != nil {
			m.logger.Warn("fallback backend failed", "backend", m.names[i], "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", m.names[i], err))
			continue
		}
		if Join(frags, false) == "" {
			m.logger.Info("fallback backend returned no text", "backend", m.names[i])
			if silent == nil {
				silent = frags
			}
			continue
		}
		m.logger.Debug("fallback backend succeeded", "backend", m.names[i], "fragments", len(frags))
		for _, f := range frags {
			emit(f)
		}
		return nil
	}
	if len(errs) == len(m.models) {
		return fmt.Errorf("%w: all fallback backends failed: %w", ErrRecognition, errors.Join(errs...))
	}
	for _, f := range silent {
		emit(f)
	}
	return nil
}

// Close closes every model in the chain.
func (m *FallbackModel) Close() error {
	var errs []error
	for _, model := range m.models {
		errs = append(errs, model.Close())
	}
	return errors.Join(errs...)
}

// bufferedAudio is a fully read Audio that can be replayed. It keeps the
// backing file path of the source, if any, so file-based backends skip the
// temp WAV.
type bufferedAudio struct {
	rate int
	data []byte
	pos  int
	path string
}

func bufferAudio(audio Audio) (*bufferedAudio, error) {
	b := &bufferedAudio{rate: audio.SampleRate(), path: audioPath(audio)}
	for {
		chunk, err := audio.ReadFrames(readChunkFrames)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			return b, nil
		}
		b.data = append(b.data, chunk...)
	}
}

func (b *bufferedAudio) rewind() Audio {
	replay := *b
	replay.pos = 0
	return &replay
}

func (b *bufferedAudio) SampleRate() int { return b.rate }

func (b *bufferedAudio) ReadFrames(n int) ([]byte, error) {
	end := min(b.pos+n*2, len(b.data))
	chunk := b.data[b.pos:end]
	b.pos = end
	return chunk, nil
}

func (b *bufferedAudio) Path() string { return b.path }

