package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx := context.Background()
	app, cleanup, err := BuildApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize emulator: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := app.Config

	slog.Info("starting catchkit emulator",
		"environment", cfg.Environment,
		"profile", cfg.Profile,
		"address", cfg.Server.Address,
		"storage_adapter", cfg.Storage.Adapter,
		"require_auth", cfg.Server.RequireAuth)

	srv := app.Server
	errCh := make(chan error, 1)

	hooksCtx, stopHooks := context.WithCancel(ctx)
	defer stopHooks()
	if app.Webhooks.Enabled() {
		slog.Info("forwarding highscore changes", "webhooks", len(cfg.Server.Webhooks))
		go app.Webhooks.Run(hooksCtx, app.Hub)
	}

	go func() {
		slog.Info("emulator listening", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		slog.Error("failed to start emulator", "error", err)
		cleanup()
		os.Exit(1)
	}

	slog.Info("shutting down emulator", "timeout", cfg.Server.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during emulator shutdown", "error", err)
		return
	}

	slog.Info("emulator stopped")
}
