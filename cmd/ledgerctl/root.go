package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"moneysaver/internal/backend"
	"moneysaver/internal/cli"
	"moneysaver/internal/config"
	applog "moneysaver/internal/log"
)

// app carries what every subcommand needs once the root has initialized.
type app struct {
	cfg     *config.Config
	backend *backend.BackendResult
	out     io.Writer
	asJSON  bool
	verbose bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Inspect and edit the moneysaver ledger from the shell",
		Long: `ledgerctl works directly against the configured ledger store.

It reads the same environment as the server (DATA_BACKEND, SQLITE_DB_PATH,
DATA_DIR, AMQP_URL, TIMEZONE, ...), so transactions it records are published
to the export queue exactly like those created through the API.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.init,
		PersistentPostRunE: a.close,
	}
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print results as JSON")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(refreshCmd(a))
	root.AddCommand(txCmd(a))
	root.AddCommand(goalCmd(a))
	root.AddCommand(recurringCmd(a))
	root.AddCommand(statsCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()
	a.out = cmd.OutOrStdout()
	a.cfg = config.Load()

	level := a.cfg.SlogLevel()
	if a.verbose {
		level = slog.LevelDebug
	} else if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	applog.SetDefault(applog.New(applog.Config{Level: level, Component: applog.ComponentCLI, Output: os.Stderr}))

	if err := a.cfg.Validate(); err != nil {
		return err
	}
	backendCfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return err
	}
	// One-shot commands gain nothing from the read cache.
	backendCfg.CacheTTL = 0

	a.backend, err = backend.NewFactory(slog.Default()).CreateBackend(cmd.Context(), backendCfg)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	return nil
}

func (a *app) close(*cobra.Command, []string) error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Cleanup()
}

func (a *app) location() *time.Location {
	return a.cfg.Location()
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
