//go:build vosk

package transcribe

import (
	"errors"

	vosk "github.com/alphacep/vosk-api/go"
)

var errVoskDecode = errors.New("vosk: waveform rejected")

func init() {
	// Silence Kaldi logging on stderr.
	vosk.SetLogLevel(-1)
}

type cgoVoskEngine struct {
	model *vosk.VoskModel
}

func openVoskModel(modelPath string) (voskEngine, error) {
	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, err
	}
	return &cgoVoskEngine{model: model}, nil
}

func (e *cgoVoskEngine) NewSession(sampleRate int, words bool) (Session, error) {
	rec, err := vosk.NewRecognizer(e.model, float64(sampleRate))
	if err != nil {
		return nil, err
	}
	if words {
		rec.SetWords(1)
	}
	return &cgoVoskSession{rec: rec}, nil
}

func (e *cgoVoskEngine) Close() error {
	e.model.Free()
	return nil
}

type cgoVoskSession struct {
	rec *vosk.VoskRecognizer
}

func (s *cgoVoskSession) AcceptWaveform(chunk []byte) (bool, error) {
	switch s.rec.AcceptWaveform(chunk) {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, errVoskDecode
	}
}

func (s *cgoVoskSession) Result() (string, error)      { return s.rec.Result(), nil }
func (s *cgoVoskSession) FinalResult() (string, error) { return s.rec.FinalResult(), nil }

func (s *cgoVoskSession) Close() error {
	s.rec.Free()
	return nil
}
