// Package cli wires configuration, backend, audio source and transcript
// assembly into the command-line programs.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/chaz8081/gostt-transcribe/internal/audio"
	"github.com/chaz8081/gostt-transcribe/internal/config"
	"github.com/chaz8081/gostt-transcribe/internal/models"
	"github.com/chaz8081/gostt-transcribe/internal/transcribe"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Program describes one command-line entry point.
type Program struct {
	Name string
	// Backend pins the recognition backend. When empty the backend comes
	// from the config file or the -backend flag, and the extra flags
	// (-record, -expect, -download) are available.
	Backend string
	Stdout  io.Writer
	Stderr  io.Writer
}

type options struct {
	configPath string
	backend    string
	record     time.Duration
	expect     string
	download   bool
	audioPath  string
}

// Run parses args, transcribes one audio source and prints the transcript
// as a single line on stdout. It returns the process exit code.
func (p Program) Run(ctx context.Context, args []string) int {
	opts, code := p.parseFlags(args)
	if code != ExitOK {
		return code
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(p.Stderr, "%s: config: %v\n", p.Name, err)
		return ExitError
	}
	switch {
	case p.Backend != "":
		cfg.Transcribe.Backend = p.Backend
	case opts.backend != "":
		cfg.Transcribe.Backend = opts.backend
	}
	switch {
	case opts.record > 0:
		cfg.Audio.Record = opts.record
	case opts.audioPath != "":
		// A file on the command line overrides a configured recording.
		cfg.Audio.Record = 0
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(p.Stderr, "%s: config validation: %v\n", p.Name, err)
		return ExitError
	}

	logger := slog.New(slog.NewTextHandler(p.Stderr, &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.LogLevel)})).
		With(slog.String("invocation_id", uuid.NewString()))

	// A .env in the working directory may carry OPENAI_API_KEY. Variables
	// already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("ignoring .env", "error", err)
	}

	if opts.download {
		if err := fetchModel(ctx, cfg, logger); err != nil {
			logger.Error("model download failed", "error", err)
			return ExitError
		}
		return ExitOK
	}

	if opts.audioPath == "" && cfg.Audio.Record == 0 {
		fmt.Fprintf(p.Stderr, "usage: %s [flags] <audio-file>\n", p.Name)
		return ExitUsage
	}

	text, err := p.transcribe(ctx, cfg, opts.audioPath, logger)
	if err != nil {
		logger.Error("transcription failed", "error", err)
		return ExitError
	}

	fmt.Fprintln(p.Stdout, text)

	if opts.expect != "" {
		r := transcribe.ComputeWER(opts.expect, text)
		logger.Info("word error rate",
			"wer", fmt.Sprintf("%.3f", r.WER),
			"substitutions", r.Substitutions,
			"insertions", r.Insertions,
			"deletions", r.Deletions,
			"ref_words", r.RefWords)
	}
	return ExitOK
}

func (p Program) parseFlags(args []string) (options, int) {
	var opts options
	fs := flag.NewFlagSet(p.Name, flag.ContinueOnError)
	fs.SetOutput(p.Stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to config file (default: ~/.config/gostt-transcribe/config.yaml)")
	if p.Backend == "" {
		fs.StringVar(&opts.backend, "backend", "", "recognition backend: vosk, vosk-server, whisper, exec, openai, fallback")
		fs.DurationVar(&opts.record, "record", 0, "record this long from the microphone instead of reading a file")
		fs.StringVar(&opts.expect, "expect", "", "reference transcript; logs the word error rate")
		fs.BoolVar(&opts.download, "download", false, "download the configured model and exit")
	}
	fs.Usage = func() {
		fmt.Fprintf(p.Stderr, "usage: %s [flags] <audio-file>\n", p.Name)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, ExitUsage
	}

	switch fs.NArg() {
	case 0:
	case 1:
		opts.audioPath = fs.Arg(0)
	default:
		fs.Usage()
		return opts, ExitUsage
	}
	if opts.record > 0 && opts.audioPath != "" {
		fmt.Fprintf(p.Stderr, "%s: -record and an audio file are mutually exclusive\n", p.Name)
		fs.Usage()
		return opts, ExitUsage
	}
	return opts, ExitOK
}

// transcribe loads the model before touching any audio so that model
// problems surface first, then feeds the source and assembles the result.
func (p Program) transcribe(ctx context.Context, cfg *config.Config, audioPath string, logger *slog.Logger) (string, error) {
	backend, err := transcribe.New(&cfg.Transcribe, logger)
	if err != nil {
		return "", err
	}

	logger.Info("loading model", "backend", backend.Name())
	modelStart := time.Now()
	model, err := backend.Load(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = model.Close() }()
	logger.Info("model loaded", "backend", backend.Name(), "elapsed", time.Since(modelStart).Round(time.Millisecond))

	src, err := p.openSource(ctx, cfg, audioPath, logger)
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	start := time.Now()
	tr, err := transcribe.Run(ctx, model, src, cfg.Transcript.KeepEmpty)
	if err != nil {
		return "", err
	}
	logger.Info("transcribed",
		"fragments", len(tr.Fragments()),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return tr.String(), nil
}

type source interface {
	transcribe.Audio
	Close() error
}

func (p Program) openSource(ctx context.Context, cfg *config.Config, audioPath string, logger *slog.Logger) (source, error) {
	if cfg.Audio.Record == 0 {
		opener := audio.Opener{
			FFmpeg:   cfg.Audio.FFmpeg,
			Filter:   cfg.Audio.ConvertFilter,
			MaxBytes: int64(cfg.Audio.MaxFileMB * (1 << 20)),
			Logger:   logger,
		}
		return opener.Open(ctx, audioPath)
	}

	rec, err := audio.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transcribe.ErrAudioRead, err)
	}
	defer func() { _ = rec.Close() }()

	logger.Info("recording", "duration", cfg.Audio.Record)
	clip, err := rec.Record(ctx, cfg.Audio.Record)
	if err != nil {
		return nil, fmt.Errorf("%w: recording: %w", transcribe.ErrAudioRead, err)
	}
	logger.Info("captured audio", "seconds", fmt.Sprintf("%.1f", clip.Duration()))
	return clip, nil
}

// fetchModel downloads the model the configured backend needs.
func fetchModel(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	t := cfg.Transcribe
	switch t.Backend {
	case "whisper":
		if !models.IsWhisperPreset(t.Whisper.Model) {
			return fmt.Errorf("whisper model %q is a path, not a preset", t.Whisper.Model)
		}
		path, err := models.EnsureWhisper(ctx, t.Whisper.Model, t.Whisper.ComputeType, t.ModelsDir)
		if err != nil {
			return err
		}
		logger.Info("whisper model ready", "path", path)
	case "vosk":
		dir := filepath.Clean(t.Vosk.ModelPath)
		path, err := models.EnsureVosk(ctx, filepath.Base(dir), filepath.Dir(dir))
		if err != nil {
			return err
		}
		logger.Info("vosk model ready", "path", path)
	default:
		return fmt.Errorf("backend %q has no downloadable model", t.Backend)
	}
	return nil
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}
