package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"moneysaver/internal/core"
)

func refreshCmd(a *app) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Materialize due recurring transactions and print the ledger totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now().In(a.location())
			if at != "" {
				t, err := core.ParseTimestamp(at)
				if err != nil {
					return err
				}
				now = t
			}

			res, err := a.backend.Refresher.Refresh(cmd.Context(), now)
			if err != nil && res == nil {
				return err
			}
			if a.asJSON {
				if jerr := a.printJSON(res); jerr != nil {
					return jerr
				}
				return err
			}

			fmt.Fprintf(a.out, "generated: %d\n", res.Generated)
			for _, sk := range res.Skipped {
				fmt.Fprintf(a.out, "skipped:   %s (%s)\n", sk.RuleID, sk.Reason)
			}
			fmt.Fprintf(a.out, "income:    %s\n", core.FormatAmount(res.Income))
			fmt.Fprintf(a.out, "expense:   %s\n", core.FormatAmount(res.Expense))
			fmt.Fprintf(a.out, "balance:   %s\n", core.FormatAmount(res.Balance))
			if res.Stale {
				fmt.Fprintln(a.out, "warning:   generated records were not saved")
			}
			return err
		},
	}
	cmd.Flags().StringVar(&at, "now", "", "evaluate as of this RFC 3339 time instead of the current time")
	return cmd
}
