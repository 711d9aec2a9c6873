// Command gitlink authenticates a headless device
// against GitHub, GitLab or Gitee and drives the
// provider from the shell.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	return newRootCmd(nil, os.Stdin).ExecuteContext(ctx)
}
