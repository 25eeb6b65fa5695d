package transcribe

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chaz8081/gostt-transcribe/internal/config"
)

func TestOpenAILoadNeedsKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	b := NewOpenAIBackend(config.OpenAIConfig{Model: "whisper-1"}, discardLogger())
	if _, err := b.Load(testContext(t)); !errors.Is(err, ErrModelLoad) {
		t.Fatalf("Load() error = %v, want ErrModelLoad", err)
	}
}

func TestOpenAIKeyFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	b := NewOpenAIBackend(config.OpenAIConfig{Model: "whisper-1"}, discardLogger())
	if b.cfg.APIKey != "sk-env" {
		t.Errorf("APIKey = %q, want key from OPENAI_API_KEY", b.cfg.APIKey)
	}

	b = NewOpenAIBackend(config.OpenAIConfig{APIKey: "sk-config"}, discardLogger())
	if b.cfg.APIKey != "sk-config" {
		t.Errorf("APIKey = %q, config key should win", b.cfg.APIKey)
	}
}

type transcriptionRequest struct {
	auth, model, format, language string
	fileBytes                     int
}

func fakeTranscriptionAPI(t *testing.T, reply string, status int) (*httptest.Server, *transcriptionRequest) {
	t.Helper()
	got := &transcriptionRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got.auth = r.Header.Get("Authorization")
		got.model = r.FormValue("model")
		got.format = r.FormValue("response_format")
		got.language = r.FormValue("language")
		if f, _, err := r.FormFile("file"); err == nil {
			data, _ := io.ReadAll(f)
			got.fileBytes = len(data)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestOpenAITranscribe(t *testing.T) {
	srv, req := fakeTranscriptionAPI(t, `{
		"task": "transcribe", "language": "english", "duration": 1.5,
		"text": "Hello, world.",
		"segments": [
			{"id": 0, "start": 0.0, "end": 0.8, "text": " Hello,"},
			{"id": 1, "start": 0.8, "end": 1.5, "text": " world."}
		]
	}`, http.StatusOK)

	cfg := config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "whisper-1", Language: "en"}
	m, err := NewOpenAIBackend(cfg, discardLogger()).Load(testContext(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer m.Close()

	tr, err := Run(testContext(t), m, silence(16000, 16000), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := tr.String(); got != "Hello,  world." {
		t.Errorf("transcript = %q, want %q", got, "Hello,  world.")
	}
	if n := len(tr.Fragments()); n != 2 {
		t.Errorf("fragments = %d, want 2", n)
	}

	if req.auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", req.auth)
	}
	if req.model != "whisper-1" || req.format != "verbose_json" || req.language != "en" {
		t.Errorf("form = model %q format %q language %q", req.model, req.format, req.language)
	}
	// one second of 16-bit mono plus the WAV header
	if req.fileBytes <= 32000 {
		t.Errorf("uploaded %d bytes, want a full WAV", req.fileBytes)
	}
}

func TestOpenAITranscribeAPIError(t *testing.T) {
	srv, _ := fakeTranscriptionAPI(t, `{"error": {"message": "invalid file", "type": "invalid_request_error"}}`, http.StatusBadRequest)

	cfg := config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "whisper-1"}
	m, err := NewOpenAIBackend(cfg, discardLogger()).Load(testContext(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := collect(m, silence(16000, 100)); !errors.Is(err, ErrRecognition) {
		t.Fatalf("Transcribe() error = %v, want ErrRecognition", err)
	}
}
