package models

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Base URLs of the model registries. Tests point them at local servers.
var (
	WhisperBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"
	VoskBaseURL    = "https://alphacephei.com/vosk/models"
)

// whisperPresets are the model names accepted in place of a file path.
var whisperPresets = map[string]bool{
	"tiny": true, "tiny.en": true,
	"base": true, "base.en": true,
	"small": true, "small.en": true,
	"medium": true, "medium.en": true,
	"large-v1": true, "large-v2": true, "large-v3": true, "large-v3-turbo": true,
}

// quantSuffix maps a compute type to the suffix of the matching ggml file.
// Quantization is baked into whisper.cpp model files, so the compute type
// selects which file of a preset is fetched.
var quantSuffix = map[string]string{
	"":        "",
	"default": "",
	"float16": "",
	"int8":    "-q8_0",
	"int5":    "-q5_1",
}

// IsWhisperPreset reports whether ref names a whisper preset.
func IsWhisperPreset(ref string) bool {
	return whisperPresets[ref]
}

// WhisperFileName returns the ggml file name for a preset and compute type.
func WhisperFileName(preset, computeType string) (string, error) {
	if !IsWhisperPreset(preset) {
		return "", fmt.Errorf("unknown whisper preset %q", preset)
	}
	suffix, ok := quantSuffix[computeType]
	if !ok {
		return "", fmt.Errorf("compute type %q is not supported (use int8, int5, float16, or default)", computeType)
	}
	return "ggml-" + preset + suffix + ".bin", nil
}

// ResolveWhisper turns a model reference into a file path. References that
// are not presets are returned unchanged as paths; presets resolve to
// their location in modelsDir, whether or not it has been downloaded yet.
func ResolveWhisper(ref, computeType, modelsDir string) (string, error) {
	if !IsWhisperPreset(ref) {
		return ref, nil
	}
	name, err := WhisperFileName(ref, computeType)
	if err != nil {
		return "", err
	}
	return filepath.Join(modelsDir, name), nil
}

// EnsureWhisper downloads a whisper preset into modelsDir unless it is
// already there, and returns its path.
func EnsureWhisper(ctx context.Context, preset, computeType, modelsDir string) (string, error) {
	name, err := WhisperFileName(preset, computeType)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return "", fmt.Errorf("creating models dir: %w", err)
	}

	destPath := filepath.Join(modelsDir, name)
	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		return destPath, nil
	}

	if err := download(ctx, WhisperBaseURL+"/"+name, destPath, name); err != nil {
		return "", fmt.Errorf("downloading whisper model: %w", err)
	}
	return destPath, nil
}

// EnsureVosk downloads and unpacks a vosk model archive into modelsDir
// unless the model directory already exists, and returns its path.
func EnsureVosk(ctx context.Context, name, modelsDir string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid vosk model name %q", name)
	}
	destDir := filepath.Join(modelsDir, name)
	if info, err := os.Stat(destDir); err == nil && info.IsDir() {
		return destDir, nil
	}
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return "", fmt.Errorf("creating models dir: %w", err)
	}

	zipPath := filepath.Join(modelsDir, name+".zip")
	if err := download(ctx, VoskBaseURL+"/"+name+".zip", zipPath, name+".zip"); err != nil {
		return "", fmt.Errorf("downloading vosk model: %w", err)
	}
	defer os.Remove(zipPath)

	if err := unzip(zipPath, modelsDir); err != nil {
		return "", fmt.Errorf("extracting vosk model: %w", err)
	}
	if _, err := os.Stat(destDir); err != nil {
		return "", fmt.Errorf("archive did not contain %s/: %w", name, err)
	}
	return destDir, nil
}

// download fetches url into destPath through a temp file renamed into
// place on success, printing progress to stderr.
func download(ctx context.Context, url, destPath, label string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	pw := &progressWriter{
		writer: f,
		out:    os.Stderr,
		total:  resp.ContentLength,
		label:  label,
	}

	_, err = io.Copy(pw, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing model file: %w", err)
	}
	pw.done()

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving model file: %w", err)
	}
	return nil
}

// unzip extracts archive into dir, refusing entries that escape it.
func unzip(archive, dir string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	root := filepath.Clean(dir) + string(os.PathSeparator)
	for _, zf := range r.File {
		target := filepath.Join(dir, zf.Name)
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("illegal path in archive: %s", zf.Name)
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(zf, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	in, err := zf.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// progressWriter wraps an io.Writer and prints download progress.
type progressWriter struct {
	writer  io.Writer
	out     io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}

func (pw *progressWriter) done() {
	fmt.Fprintln(pw.out)
}
