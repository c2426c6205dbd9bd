package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"trenches/internal/app"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	flag.Parse()

	// 1. System bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 2. Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Restore the player before the first tick
	if err := bootstrap.Restore(ctx); err != nil {
		slog.Error("Failed to restore player state", slog.Any("error", err))
		os.Exit(1)
	}

	slog.InfoContext(ctx, "Trenches market open. Press Ctrl+C to exit.")

	// 4. Run until signalled
	if err := bootstrap.Run(ctx); err != nil {
		slog.Error("Shutdown finished with errors", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}
