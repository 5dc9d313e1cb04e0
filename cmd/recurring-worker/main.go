package main

import (
	"context"
	"os"
	"time"

	"moneysaver/internal/backend"
	"moneysaver/internal/cli"
	"moneysaver/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap("recurring-worker")
	logger.Info("Starting recurring-worker")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	if backendCfg.Type != backend.SQLiteBackend {
		logger.Warn("Memory backend is process-local; generated transactions will not be visible to other processes",
			"backend", backendCfg.Type)
	}

	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - generated transactions will not be exported")
	}

	scheduler := services.NewRefreshScheduler(res.Refresher, services.RefreshSchedulerConfig{
		Interval: cfg.RefreshInterval,
		Location: cfg.Location(),
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Error("Failed to stop refresh scheduler", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Recurring refresh configured",
		"interval", cfg.RefreshInterval,
		"timezone", cfg.Timezone,
		"backend", cfg.DataBackend)

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start refresh scheduler", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("recurring-worker stopped", "cycles", scheduler.Runs())
}
