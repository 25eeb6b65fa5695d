package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/chaz8081/gostt-transcribe/internal/config"
)

// ExecBackend runs an external transcription command, such as a
// faster-whisper helper script, once per file. The command receives
// --audio <wav> [--model <name>] [--language <code>] and must print
//
//	{"text": "...", "segments": [{"start": 0.0, "end": 1.2, "text": "..."}]}
//
// on stdout. Segments are preferred; text alone becomes a single fragment.
type ExecBackend struct {
	args   []string
	cfg    config.ExecConfig
	logger *slog.Logger
}

type execOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// NewExecBackend parses the configured command line.
func NewExecBackend(cfg config.ExecConfig, logger *slog.Logger) (*ExecBackend, error) {
	parser := shellwords.NewParser()
	parser.ParseEnv = true
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("transcribe: parse exec command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("transcribe: exec command is empty")
	}
	return &ExecBackend{args: args, cfg: cfg, logger: logger}, nil
}

// Name implements Backend.
func (b *ExecBackend) Name() string { return "exec" }

// Load checks that the command can be found. The helper owns its model.
func (b *ExecBackend) Load(_ context.Context) (Model, error) {
	bin, err := exec.LookPath(b.args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: exec command %q: %w", ErrModelLoad, b.args[0], err)
	}
	b.logger.Debug("exec backend ready", "command", bin)
	return &ExecModel{bin: bin, args: b.args[1:], cfg: b.cfg}, nil
}

// ExecModel is a resolved external command.
type ExecModel struct {
	bin  string
	args []string
	cfg  config.ExecConfig
}

// Transcribe runs the command against the audio file.
func (m *ExecModel) Transcribe(ctx context.Context, audio Audio, emit func(Fragment)) error {
	path, cleanup, err := fileFor(audio)
	if err != nil {
		return err
	}
	defer cleanup()

	args := append([]string{}, m.args...)
	args = append(args, "--audio", path)
	if m.cfg.Model != "" {
		args = append(args, "--model", m.cfg.Model)
	}
	if m.cfg.Language != "" {
		args = append(args, "--language", m.cfg.Language)
	}

	cmd := exec.CommandContext(ctx, m.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: exec command failed: %w: %s", ErrRecognition, err, strings.TrimSpace(stderr.String()))
	}

	var out execOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return fmt.Errorf("%w: decode exec output: %w", ErrRecognition, err)
	}

	if len(out.Segments) == 0 {
		emit(Fragment{Text: out.Text})
		return nil
	}
	for _, s := range out.Segments {
		emit(Fragment{Text: s.Text, Start: seconds(s.Start), End: seconds(s.End)})
	}
	return nil
}

// Close implements Model.
func (m *ExecModel) Close() error { return nil }
