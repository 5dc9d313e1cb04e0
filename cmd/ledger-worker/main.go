package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"moneysaver/internal/amqp"
	"moneysaver/internal/backend"
	"moneysaver/internal/cli"
	gsheet "moneysaver/internal/sheets/google"
	"moneysaver/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap("ledger-worker")
	logger.Info("Starting ledger-worker")

	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Export configuration validation failed", "error", err)
		os.Exit(1)
	}

	// The worker only reads the ledger for backfill; events arrive over AMQP.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	backendCfg.AMQPURL = ""
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	exportWorker := worker.NewExportWorker(sheetsClient, res.Ledger, cfg.BackfillSize)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("Failed to close AMQP client", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeTransactionCreated(gctx, exportWorker.HandleTransactionCreated)
	})

	if cfg.BackfillSize > 0 {
		g.Go(func() error {
			// Recover events missed while the worker or the broker was down.
			if err := exportWorker.Backfill(gctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Startup backfill failed", "error", err)
			}

			ticker := time.NewTicker(cfg.RefreshInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := exportWorker.Backfill(gctx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("Periodic backfill failed", "error", err)
					}
				}
			}
		})
	} else {
		logger.Info("Backfill disabled", "backfill_size", cfg.BackfillSize)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		_ = amqpClient.Close()
		_ = res.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("ledger-worker stopped")
}
