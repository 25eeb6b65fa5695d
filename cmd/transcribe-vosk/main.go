// Command transcribe-vosk streams a WAV file through the vosk model found
// at ../models/vosk-model-small-en-us-0.15 relative to the executable and
// prints the transcript.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaz8081/gostt-transcribe/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	prog := cli.Program{
		Name:    "transcribe-vosk",
		Backend: "vosk",
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	code := prog.Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
