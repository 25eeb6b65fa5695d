package transcribe

import "errors"

// Error kinds surfaced by the pipeline. Backends wrap the underlying cause
// so callers can tell the kinds apart with errors.Is.
var (
	// ErrModelLoad means the model path or preset is missing, corrupt, or
	// incompatible with the requested device or compute type.
	ErrModelLoad = errors.New("model load failed")
	// ErrAudioRead means the audio source is missing, unreadable, or not a WAV file.
	ErrAudioRead = errors.New("audio read failed")
	// ErrAudioFormat means the audio uses an unsupported encoding or sample rate.
	ErrAudioFormat = errors.New("unsupported audio format")
	// ErrRecognition means the backend failed while decoding.
	ErrRecognition = errors.New("recognition failed")
)
