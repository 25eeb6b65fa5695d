// Command transcribe-whisper decodes a WAV file in one pass with the whisper
// "tiny" preset (cpu, int8) and prints the transcript.
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
		Name:    "transcribe-whisper",
		Backend: "whisper",
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	code := prog.Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
