// Package main is the duckgs entry point.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/maxgreco/duckgs/internal/cli"
)

func main() {
	// Ctrl-C cancels the in-flight engine call; nothing is cached for an
	// interrupted query.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
