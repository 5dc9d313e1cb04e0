package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"moneysaver/internal/core"
)

func txCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Record and list transactions",
	}
	cmd.AddCommand(txAddCmd(a))
	cmd.AddCommand(txListCmd(a))
	return cmd
}

func txAddCmd(a *app) *cobra.Command {
	var draft core.TransactionDraft
	var typ string

	cmd := &cobra.Command{
		Use:   "add AMOUNT",
		Short: "Record a transaction",
		Example: `  ledgerctl tx add 12.50 --category Groceries
  ledgerctl tx add 2100 --type income --category Salary --recurring`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft.Amount = args[0]
			draft.Type = core.TransactionType(typ)

			tx, err := a.backend.Ledger.CreateTransaction(cmd.Context(), draft)
			if err != nil && tx.ID == "" {
				return err
			}
			if a.asJSON {
				if jerr := a.printJSON(tx); jerr != nil {
					return jerr
				}
			} else {
				fmt.Fprintf(a.out, "recorded %s %s %s (%s)\n", tx.Type, core.FormatAmount(tx.Amount), tx.Category, tx.ID)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", string(core.Expense), "expense or income")
	cmd.Flags().StringVarP(&draft.Category, "category", "c", "", "category (default "+core.DefaultCategory+")")
	cmd.Flags().StringVarP(&draft.Note, "note", "n", "", "free-text note")
	cmd.Flags().BoolVarP(&draft.Recurring, "recurring", "r", false, "repeat monthly on today's day of month")
	return cmd
}

func txListCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs, err := a.backend.Ledger.Transactions(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(txs) > limit {
				txs = txs[:limit]
			}
			if a.asJSON {
				return a.printJSON(txs)
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tTYPE\tCATEGORY\tAMOUNT\tNOTE")
			for _, tx := range txs {
				date := tx.Date.String()
				if t, err := tx.Date.Time(); err == nil {
					date = t.In(a.location()).Format("2006-01-02")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", date, tx.Type, tx.Category, core.FormatAmount(tx.Amount), tx.Note)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "show at most this many transactions (0 for all)")
	return cmd
}
