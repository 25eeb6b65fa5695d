package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chaz8081/gostt-transcribe/internal/config"
)

// OpenAIBackend sends whole files to the hosted transcription endpoint.
type OpenAIBackend struct {
	cfg    config.OpenAIConfig
	logger *slog.Logger
}

// NewOpenAIBackend creates the backend. An empty api_key falls back to
// OPENAI_API_KEY.
func NewOpenAIBackend(cfg config.OpenAIConfig, logger *slog.Logger) *OpenAIBackend {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return &OpenAIBackend{cfg: cfg, logger: logger}
}

// Name implements Backend.
func (b *OpenAIBackend) Name() string { return "openai" }

// Load builds the API client. The model lives on the server, so only the
// credentials are checked here.
func (b *OpenAIBackend) Load(_ context.Context) (Model, error) {
	if b.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai: no api key (set openai.api_key or OPENAI_API_KEY)", ErrModelLoad)
	}
	clientCfg := openai.DefaultConfig(b.cfg.APIKey)
	if b.cfg.BaseURL != "" {
		clientCfg.BaseURL = b.cfg.BaseURL
	}
	b.logger.Debug("openai client ready", "model", b.cfg.Model, "base_url", clientCfg.BaseURL)
	return &OpenAIModel{client: openai.NewClientWithConfig(clientCfg), cfg: b.cfg}, nil
}

// OpenAIModel is a configured API client.
type OpenAIModel struct {
	client *openai.Client
	cfg    config.OpenAIConfig
}

// Transcribe uploads the audio and emits the returned segments.
func (m *OpenAIModel) Transcribe(ctx context.Context, audio Audio, emit func(Fragment)) error {
	path, cleanup, err := fileFor(audio)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := m.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    m.cfg.Model,
		FilePath: path,
		Language: m.cfg.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return fmt.Errorf("%w: openai transcription: %w", ErrRecognition, err)
	}

	if len(resp.Segments) == 0 {
		emit(Fragment{Text: resp.Text})
		return nil
	}
	for _, s := range resp.Segments {
		emit(Fragment{Text: s.Text, Start: seconds(s.Start), End: seconds(s.End)})
	}
	return nil
}

// Close implements Model.
func (m *OpenAIModel) Close() error { return nil }
