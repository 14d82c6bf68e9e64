package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

const appName = "aqdash"

// version is set with -ldflags "-X main.version=..."; "dev" selects the
// human-readable log handler.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	var cfgErr *configError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.As(err, &cfgErr):
		fmt.Fprintf(os.Stderr, "config error: %v\n", cfgErr.err)
		os.Exit(1)
	default:
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}
