// Package cli provides common CLI initialization utilities shared by the
// moneysaver binaries.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moneysaver/internal/config"
	applog "moneysaver/internal/log"
)

// SetupLogger initializes structured logging for a binary at the given level.
// The logger becomes the process default.
func SetupLogger(component string, level slog.Level) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     level,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Bootstrap loads .env and the configuration, sets up the default logger at
// the configured level and validates the config. It exits the process on
// validation failure.
func Bootstrap(component string) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(component, cfg.SlogLevel())
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when cleanup is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
