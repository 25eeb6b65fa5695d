package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/chaz8081/gostt-transcribe/internal/transcribe"
)

// convertRate is the sample rate ffmpeg output is resampled to.
const convertRate = 16000

// Opener opens audio files for transcription. WAV files are read directly;
// anything else (amr, mp3, ogg, m4a...) is first converted by ffmpeg to a
// temporary 16 kHz mono WAV.
type Opener struct {
	// FFmpeg is the converter command line. Defaults to "ffmpeg".
	FFmpeg string
	// Filter is an optional ffmpeg -af filter graph applied while converting.
	Filter string
	// MaxBytes rejects larger input files. Zero means no limit.
	MaxBytes int64
	Logger   *slog.Logger
}

// Open checks the input size and returns a frame reader for path.
func (o Opener) Open(ctx context.Context, path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transcribe.ErrAudioRead, err)
	}
	if o.MaxBytes > 0 && info.Size() > o.MaxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", transcribe.ErrAudioRead, path, info.Size(), o.MaxBytes)
	}
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return Open(path)
	}

	wavPath, err := o.convert(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: convert %s: %w", transcribe.ErrAudioRead, path, err)
	}
	f, err := Open(wavPath)
	if err != nil {
		_ = os.Remove(wavPath)
		return nil, err
	}
	f.temp = true
	return f, nil
}

// convert runs ffmpeg on in and returns the path of the WAV it wrote.
func (o Opener) convert(ctx context.Context, in string) (string, error) {
	command := o.FFmpeg
	if command == "" {
		command = "ffmpeg"
	}
	parser := shellwords.NewParser()
	parser.ParseEnv = true
	args, err := parser.Parse(command)
	if err != nil {
		return "", fmt.Errorf("parse ffmpeg command: %w", err)
	}
	if len(args) == 0 {
		return "", fmt.Errorf("ffmpeg command is empty")
	}

	tmp, err := os.CreateTemp("", "gostt_conv_*.wav")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	out := tmp.Name()
	_ = tmp.Close()

	args = append(args, "-y", "-hide_banner", "-loglevel", "error", "-i", in,
		"-ac", "1", "-ar", fmt.Sprint(convertRate))
	if o.Filter != "" {
		args = append(args, "-af", o.Filter)
	}
	args = append(args, "-f", "wav", out)

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("converting audio", "input", in, "command", args[0])

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(out)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return "", fmt.Errorf("ffmpeg: %w", err)
	}
	return out, nil
}
