// Command gostt-transcribe transcribes an audio file, or a microphone
// recording, with any of the supported recognition backends.
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
		Name:   "gostt-transcribe",
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	code := prog.Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
