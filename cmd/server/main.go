package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allenac86/spooky-days-twitter/internal/app"
	"github.com/allenac86/spooky-days-twitter/internal/config"
	"github.com/allenac86/spooky-days-twitter/internal/streams"
	"github.com/allenac86/spooky-days-twitter/internal/worker"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("Startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := cfg.ValidateGallery(); err != nil {
		if cfg.Env == "development" {
			slog.Warn("Gallery API disabled", "error", err)
		} else {
			slog.Error("Startup failed", "error", err)
			os.Exit(1)
		}
	}

	// Asynq client for the manual trigger endpoint and scheduler enqueues
	if err := worker.InitClient(cfg.RedisURL); err != nil {
		slog.Error("Failed to initialize task client", "error", err)
		os.Exit(1)
	}
	defer worker.CloseClient()

	stopScheduler, err := worker.StartScheduler(cfg)
	if err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer stopScheduler()

	stopWorker, err := worker.Start(cfg, a.Generator)
	if err != nil {
		slog.Error("Failed to start worker", "error", err)
		os.Exit(1)
	}
	defer stopWorker()

	// A non-200 publisher result leaves the message un-ACKed so the stream
	// redelivers it; the ledger claim keeps redelivery from double-posting.
	stopConsumer, err := streams.StartConsumer(cfg.RedisURL, func(event streams.ObjectCreatedEvent) error {
		result := a.Publisher.Handle(ctx, event)
		if result.StatusCode != http.StatusOK {
			return errors.New(result.Body)
		}
		slog.Info("Publish handled", "key", event.Key, "body", result.Body)
		return nil
	})
	if err != nil {
		slog.Error("Failed to start stream consumer", "error", err)
		os.Exit(1)
	}
	defer stopConsumer()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: a.Router(),
	}
	go func() {
		slog.Info("HTTP server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
}
