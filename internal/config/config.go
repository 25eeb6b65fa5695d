package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// VoskModelName is the vosk model shipped next to the binaries.
const VoskModelName = "vosk-model-small-en-us-0.15"

// Config holds all application configuration.
type Config struct {
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Audio      AudioConfig      `yaml:"audio"`
	LogLevel   string           `yaml:"log_level"`
}

// TranscribeConfig selects the recognition backend and its model.
type TranscribeConfig struct {
	Backend    string        `yaml:"backend"` // vosk, vosk-server, whisper, exec, openai, fallback
	Fallback   []string      `yaml:"fallback"` // backends tried in order by the fallback backend
	ModelsDir  string        `yaml:"models_dir"`
	Vosk       VoskConfig    `yaml:"vosk"`
	VoskServer VoskServer    `yaml:"vosk_server"`
	Whisper    WhisperConfig `yaml:"whisper"`
	Exec       ExecConfig    `yaml:"exec"`
	OpenAI     OpenAIConfig  `yaml:"openai"`
}

// VoskConfig holds settings for the in-process vosk recognizer.
type VoskConfig struct {
	ModelPath   string `yaml:"model_path"`
	ChunkFrames int    `yaml:"chunk_frames"`
	Words       bool   `yaml:"words"`
}

// VoskServer holds settings for a remote vosk-server websocket endpoint.
type VoskServer struct {
	URL         string `yaml:"url"`
	ChunkFrames int    `yaml:"chunk_frames"`
	Words       bool   `yaml:"words"`
}

// WhisperConfig holds settings for the whisper.cpp backend.
type WhisperConfig struct {
	Model       string `yaml:"model"` // preset name or path to a ggml file
	Device      string `yaml:"device"`
	ComputeType string `yaml:"compute_type"`
	Language    string `yaml:"language"`
	Threads     uint   `yaml:"threads"`
	Download    bool   `yaml:"download"` // fetch missing presets into models_dir
}

// ExecConfig holds settings for the external command backend.
type ExecConfig struct {
	Command  string `yaml:"command"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

// OpenAIConfig holds settings for the hosted transcription backend.
type OpenAIConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

// TranscriptConfig controls how fragments are assembled.
type TranscriptConfig struct {
	KeepEmpty bool `yaml:"keep_empty"`
}

// AudioConfig holds microphone capture and input conversion settings.
type AudioConfig struct {
	SampleRate uint32        `yaml:"sample_rate"`
	Channels   uint32        `yaml:"channels"`
	Record     time.Duration `yaml:"record"`

	// FFmpeg is the command line used to convert non-WAV input (amr, mp3,
	// ogg, ...) to 16 kHz mono WAV. ConvertFilter is an optional -af graph.
	FFmpeg        string  `yaml:"ffmpeg"`
	ConvertFilter string  `yaml:"convert_filter"`
	MaxFileMB     float64 `yaml:"max_file_mb"` // 0 disables the limit
}

// Backends lists the backend names a fallback chain may contain.
var Backends = []string{"vosk", "vosk-server", "whisper", "exec", "openai"}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gostt-transcribe")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns the cache directory for downloaded models.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "gostt-transcribe", "models")
	}
	return filepath.Join(home, ".cache", "gostt-transcribe", "models")
}

// VoskModelDir returns the vosk model directory relative to the running
// executable: <exe-dir>/../models/<VoskModelName>.
func VoskModelDir() string {
	exe, err := os.Executable()
	if err != nil {
		return filepath.Join("models", VoskModelName)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "..", "models", VoskModelName)
}

// Default returns a Config reproducing the fixed behaviour of the two
// transcription commands: vosk from the bundled model directory, whisper
// "tiny" on cpu with int8 weights.
func Default() *Config {
	return &Config{
		Transcribe: TranscribeConfig{
			Backend:   "vosk",
			Fallback:  []string{"whisper", "vosk", "openai"},
			ModelsDir: DefaultModelsDir(),
			Vosk: VoskConfig{
				ModelPath:   VoskModelDir(),
				ChunkFrames: 4000,
				Words:       true,
			},
			VoskServer: VoskServer{
				URL:         "ws://localhost:2700",
				ChunkFrames: 4000,
				Words:       true,
			},
			Whisper: WhisperConfig{
				Model:       "tiny",
				Device:      "cpu",
				ComputeType: "int8",
				Download:    true,
			},
			OpenAI: OpenAIConfig{
				Model: "whisper-1",
			},
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			FFmpeg:     "ffmpeg",
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	t := &cfg.Transcribe
	t.ModelsDir = expandTilde(t.ModelsDir)
	t.Vosk.ModelPath = expandTilde(t.Vosk.ModelPath)
	t.Whisper.Model = expandTilde(t.Whisper.Model)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	t := c.Transcribe
	switch t.Backend {
	case "vosk":
		if t.Vosk.ModelPath == "" {
			return fmt.Errorf("transcribe.vosk.model_path must not be empty")
		}
		if t.Vosk.ChunkFrames <= 0 {
			return fmt.Errorf("transcribe.vosk.chunk_frames must be > 0")
		}
	case "vosk-server":
		if !strings.HasPrefix(t.VoskServer.URL, "ws://") && !strings.HasPrefix(t.VoskServer.URL, "wss://") {
			return fmt.Errorf("transcribe.vosk_server.url must be a ws:// or wss:// URL, got %q", t.VoskServer.URL)
		}
		if t.VoskServer.ChunkFrames <= 0 {
			return fmt.Errorf("transcribe.vosk_server.chunk_frames must be > 0")
		}
	case "whisper":
		if t.Whisper.Model == "" {
			return fmt.Errorf("transcribe.whisper.model must not be empty")
		}
	case "exec":
		if strings.TrimSpace(t.Exec.Command) == "" {
			return fmt.Errorf("transcribe.exec.command must not be empty")
		}
	case "openai":
		if t.OpenAI.Model == "" {
			return fmt.Errorf("transcribe.openai.model must not be empty")
		}
	case "fallback":
		if len(t.Fallback) == 0 {
			return fmt.Errorf("transcribe.fallback must list at least one backend")
		}
		for _, name := range t.Fallback {
			if !slices.Contains(Backends, name) {
				return fmt.Errorf("transcribe.fallback: %q is not one of %s", name, strings.Join(Backends, ", "))
			}
		}
	default:
		return fmt.Errorf("transcribe.backend must be vosk, vosk-server, whisper, exec, openai, or fallback, got %q", t.Backend)
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}
	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}
	if c.Audio.Record < 0 {
		return fmt.Errorf("audio.record must not be negative")
	}
	if c.Audio.MaxFileMB < 0 {
		return fmt.Errorf("audio.max_file_mb must not be negative")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a config log level to a slog.Level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
