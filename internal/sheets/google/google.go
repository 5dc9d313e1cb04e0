// Package google exports transactions to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"moneysaver/internal/cache"
	"moneysaver/internal/core"
	ports "moneysaver/internal/sheets"
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string

	// ids already present per sheet; mu guards the cached sets
	mu       sync.Mutex
	exported *cache.LRUCache[string, map[string]struct{}]
}

// Ensure interface conformance
var _ ports.Exporter = (*Client)(nil)

const exportedCacheTTL = 10 * time.Minute

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	credentialsJSON, err := loadCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID)
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetBase string) *Client {
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = "Transactions"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetBase,
		exported:      cache.NewLRUCache[string, map[string]struct{}](8, exportedCacheTTL),
	}
}

// loadCredentials prefers inline JSON, then a key file, then
// GOOGLE_APPLICATION_CREDENTIALS.
func loadCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Export appends the transaction row to its year's sheet.
func (c *Client) Export(ctx context.Context, tx core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if tx.ID == "" {
		return "", errors.New("transaction without id")
	}

	sheet := ports.SheetFor(c.sheetBase, tx)
	rng := fmt.Sprintf("%s!A:F", sheet)
	vr := &gsheet.ValueRange{Values: [][]any{ports.Row(tx)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	c.mu.Lock()
	if ids, ok := c.exported.Get(sheet); ok {
		ids[tx.ID] = struct{}{}
	}
	c.mu.Unlock()

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// Exported reports whether the transaction id already appears in the id column
// of its sheet. Ids are cached per sheet for a few minutes.
func (c *Client) Exported(ctx context.Context, tx core.Transaction) (bool, error) {
	if c.svc == nil {
		return false, errors.New("sheets service not initialized")
	}
	sheet := ports.SheetFor(c.sheetBase, tx)

	c.mu.Lock()
	ids, ok := c.exported.Get(sheet)
	if ok {
		_, found := ids[tx.ID]
		c.mu.Unlock()
		return found, nil
	}
	c.mu.Unlock()

	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.exported.Set(sheet, ids)
	_, found := ids[tx.ID]
	c.mu.Unlock()
	return found, nil
}

func (c *Client) readIDs(ctx context.Context, sheet string) (map[string]struct{}, error) {
	rng := fmt.Sprintf("%s!F:F", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseIDs(resp.Values), nil
}

// parseIDs collects the non-empty cells of a single-column range, skipping the
// header.
func parseIDs(values [][]any) map[string]struct{} {
	ids := make(map[string]struct{}, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || (i == 0 && strings.EqualFold(v, "id")) {
			continue
		}
		ids[v] = struct{}{}
	}
	return ids
}
