//go:build whisper

package transcribe

import (
	"fmt"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

type cgoWhisperEngine struct {
	model whisper.Model
}

func openWhisperModel(modelPath string) (whisperEngine, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, err
	}
	return &cgoWhisperEngine{model: model}, nil
}

func (e *cgoWhisperEngine) Process(samples []float32, opts whisperOptions, emit func(Fragment)) error {
	ctx, err := e.model.NewContext()
	if err != nil {
		return fmt.Errorf("create context: %w", err)
	}
	if opts.Threads > 0 {
		ctx.SetThreads(opts.Threads)
	}
	if opts.Language != "" && e.model.IsMultilingual() {
		if err := ctx.SetLanguage(opts.Language); err != nil {
			return fmt.Errorf("set language %q: %w", opts.Language, err)
		}
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return fmt.Errorf("process: %w", err)
	}

	return collectSegments(func() (Fragment, error) {
		seg, err := ctx.NextSegment()
		if err != nil {
			return Fragment{}, err
		}
		return Fragment{Text: seg.Text, Start: seg.Start, End: seg.End}, nil
	}, emit)
}

func (e *cgoWhisperEngine) Close() error {
	if e.model != nil {
		return e.model.Close()
	}
	return nil
}
