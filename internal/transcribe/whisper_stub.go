//go:build !whisper

package transcribe

import "errors"

func openWhisperModel(string) (whisperEngine, error) {
	return nil, errors.New("whisper.cpp support is disabled in this build (rebuild with -tags whisper)")
}
