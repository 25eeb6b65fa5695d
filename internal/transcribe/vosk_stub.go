//go:build !vosk

package transcribe

import "errors"

func openVoskModel(string) (voskEngine, error) {
	return nil, errors.New("vosk support is disabled in this build (rebuild with -tags vosk)")
}
