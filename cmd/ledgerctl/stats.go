package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"moneysaver/internal/core"
)

func statsCmd(a *app) *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize one month by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now().In(a.location())
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}

			ov, err := a.backend.Ledger.MonthOverview(cmd.Context(), year, month, a.location())
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(ov)
			}

			fmt.Fprintf(a.out, "%04d-%02d: %d transactions\n", ov.Year, ov.Month, ov.Count)
			fmt.Fprintf(a.out, "income %s  expense %s  balance %s\n\n",
				core.FormatAmount(ov.Totals.Income), core.FormatAmount(ov.Totals.Expense), core.FormatAmount(ov.Totals.Balance))

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tTYPE\tAMOUNT")
			for _, c := range ov.ByCategory {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Type, core.FormatAmount(c.Amount))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default current)")
	return cmd
}

func recurringCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "List recurring rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := a.backend.Ledger.RecurringRules(cmd.Context())
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(rules)
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDAY\tTYPE\tCATEGORY\tAMOUNT\tLAST GENERATED")
			for _, r := range rules {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n", r.ID, r.EffectiveDay(), r.Type, r.Category,
					core.FormatAmount(r.Amount), r.LastGenerated)
			}
			return w.Flush()
		},
	}
	return cmd
}
