package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"moneysaver/internal/backend"
	"moneysaver/internal/cli"
	apphttp "moneysaver/internal/http"
	applog "moneysaver/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap("moneysaver")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, res.Ledger, res.Refresher, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Location:           cfg.Location(),
		Ready:              res.Ready,
		Logger:             logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting moneysaver server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.Timezone,
		applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
