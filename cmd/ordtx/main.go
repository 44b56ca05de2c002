// Command ordtx builds, signs and optionally broadcasts 1Sat Ordinals
// transactions described by JSON requests.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var (
	version = "latest"
	gitHash = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	arguments := NewRuntimeArguments()
	if err := arguments.MakeCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
