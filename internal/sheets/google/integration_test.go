//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneysaver/internal/core"
)

// Integration tests require a real spreadsheet shared with a service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ExportRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := Config{
		SpreadsheetID:      os.Getenv("GOOGLE_SPREADSHEET_ID"),
		SheetName:          os.Getenv("GOOGLE_SHEET_NAME"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if cfg.SpreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	tx := core.NewTransaction(decimal.RequireFromString("0.01"), "Other", core.Expense, "integration "+uuid.NewString(), time.Now())

	ref, err := client.Export(ctx, tx)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	t.Logf("Exported to %s", ref)

	// Start from a cold cache so the id column is read back from the sheet.
	client.exported.Purge()
	ok, err := client.Exported(ctx, tx)
	if err != nil {
		t.Fatalf("Exported failed: %v", err)
	}
	if !ok {
		t.Errorf("transaction %s not found after export", tx.ID)
	}
}
