// Package worker moves ledger events to the spreadsheet export.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"moneysaver/internal/amqp"
	"moneysaver/internal/core"
	"moneysaver/internal/sheets"
)

// TransactionReader lists the ledger's transactions, newest first.
type TransactionReader interface {
	Transactions(ctx context.Context) ([]core.Transaction, error)
}

// ExportWorker writes each created transaction to the spreadsheet exactly once.
type ExportWorker struct {
	exporter  sheets.Exporter
	ledger    TransactionReader
	batchSize int
}

// NewExportWorker creates the worker. ledger may be nil when no local ledger is
// reachable; backfill is then disabled.
func NewExportWorker(exporter sheets.Exporter, ledger TransactionReader, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ExportWorker{
		exporter:  exporter,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleTransactionCreated processes a single transaction.created message from AMQP
func (w *ExportWorker) HandleTransactionCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	slog.InfoContext(ctx, "Processing transaction message",
		"id", msg.Transaction.ID,
		"source", msg.Source,
		"rule_id", msg.RuleID)

	exported, err := w.export(ctx, msg.Transaction)
	if err != nil {
		return fmt.Errorf("export transaction %s: %w", msg.Transaction.ID, err)
	}
	if !exported {
		slog.InfoContext(ctx, "Transaction already exported, skipping", "id", msg.Transaction.ID)
	}
	return nil
}

// Backfill exports the most recent transactions that have no row yet. It
// recovers from events lost while the broker or the worker was down.
func (w *ExportWorker) Backfill(ctx context.Context) error {
	if w.ledger == nil {
		slog.InfoContext(ctx, "No ledger configured, skipping backfill")
		return nil
	}

	txs, err := w.ledger.Transactions(ctx)
	if err != nil {
		return fmt.Errorf("read transactions for backfill: %w", err)
	}
	if len(txs) > w.batchSize {
		txs = txs[:w.batchSize]
	}
	if len(txs) == 0 {
		slog.InfoContext(ctx, "No transactions to backfill")
		return nil
	}

	exportedCount, skipped, errorCount := 0, 0, 0

	// Oldest first so that rows keep chronological order.
	for i := len(txs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := w.export(ctx, txs[i])
		switch {
		case err != nil:
			slog.ErrorContext(ctx, "Failed to backfill transaction", "id", txs[i].ID, "error", err)
			errorCount++
		case ok:
			exportedCount++
		default:
			skipped++
		}
	}

	slog.InfoContext(ctx, "Backfill completed",
		"checked", len(txs),
		"exported", exportedCount,
		"already_present", skipped,
		"errors", errorCount)

	return nil
}

// export appends tx unless it is already present. It reports whether a row was written.
func (w *ExportWorker) export(ctx context.Context, tx core.Transaction) (bool, error) {
	present, err := w.exporter.Exported(ctx, tx)
	if err != nil {
		return false, fmt.Errorf("check exported: %w", err)
	}
	if present {
		return false, nil
	}

	ref, err := w.exporter.Export(ctx, tx)
	if err != nil {
		return false, fmt.Errorf("append to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"id", tx.ID,
		"sheets_ref", ref,
		"type", tx.Type,
		"amount", tx.Amount.String())
	return true, nil
}
