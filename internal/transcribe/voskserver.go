package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/chaz8081/gostt-transcribe/internal/config"
)

// VoskServerBackend streams audio to a vosk-server over websocket. The
// server owns the model, so loading only verifies that it is reachable.
type VoskServerBackend struct {
	cfg    config.VoskServer
	logger *slog.Logger
}

// Name implements Backend.
func (b *VoskServerBackend) Name() string { return "vosk-server" }

// Load dials the server once to fail fast when it is unreachable.
func (b *VoskServerBackend) Load(ctx context.Context) (Model, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to vosk-server %s: %w", ErrModelLoad, b.cfg.URL, err)
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	b.logger.Debug("vosk-server reachable", "url", b.cfg.URL)

	return &VoskServerModel{url: b.cfg.URL, chunkFrames: b.cfg.ChunkFrames, words: b.cfg.Words}, nil
}

// VoskServerModel is a handle on a reachable vosk-server.
type VoskServerModel struct {
	url         string
	chunkFrames int
	words       bool
}

// Transcribe opens one websocket session for the whole stream.
func (m *VoskServerModel) Transcribe(ctx context.Context, audio Audio, emit func(Fragment)) error {
	sess, err := dialVoskServer(ctx, m.url, audio.SampleRate(), m.words)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRecognition, err)
	}
	defer func() { _ = sess.Close() }()

	return Feed(audio, sess, m.chunkFrames, emit)
}

// Close implements Model.
func (m *VoskServerModel) Close() error { return nil }

// voskServerSession speaks the vosk-server protocol: every binary chunk is
// answered by exactly one JSON message, either {"partial": ...} or a
// finalized {"text": ...}. {"eof": 1} requests the final result.
type voskServerSession struct {
	conn *websocket.Conn
	last string
}

// voskServerConfig is the first message of a session. words asks the
// server for per-word timings in finalized results.
type voskServerConfig struct {
	Config struct {
		SampleRate int  `json:"sample_rate"`
		Words      bool `json:"words,omitempty"`
	} `json:"config"`
}

func dialVoskServer(ctx context.Context, url string, sampleRate int, words bool) (*voskServerSession, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to vosk-server %s: %w", url, err)
	}
	var cfg voskServerConfig
	cfg.Config.SampleRate = sampleRate
	cfg.Config.Words = words
	if err := conn.WriteJSON(cfg); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send config: %w", err)
	}
	return &voskServerSession{conn: conn}, nil
}

func (s *voskServerSession) AcceptWaveform(chunk []byte) (bool, error) {
	if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return false, fmt.Errorf("send audio: %w", err)
	}
	msg, err := s.read()
	if err != nil {
		return false, err
	}
	var probe struct {
		Partial *string `json:"partial"`
	}
	if err := json.Unmarshal([]byte(msg), &probe); err != nil {
		return false, fmt.Errorf("parse server message %q: %w", msg, err)
	}
	s.last = msg
	return probe.Partial == nil, nil
}

func (s *voskServerSession) Result() (string, error) {
	return s.last, nil
}

func (s *voskServerSession) FinalResult() (string, error) {
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		return "", fmt.Errorf("send eof: %w", err)
	}
	return s.read()
}

func (s *voskServerSession) read() (string, error) {
	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read server message: %w", err)
	}
	return string(msg), nil
}

func (s *voskServerSession) Close() error {
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
