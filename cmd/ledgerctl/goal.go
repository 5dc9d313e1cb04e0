package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"moneysaver/internal/core"
)

func goalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "goal",
		Aliases: []string{"goals"},
		Short:   "Manage savings goals",
	}
	cmd.AddCommand(goalAddCmd(a))
	cmd.AddCommand(goalListCmd(a))
	cmd.AddCommand(goalMoveCmd(a, core.Deposit, "Add money to a goal (capped at its target)"))
	cmd.AddCommand(goalMoveCmd(a, core.Withdraw, "Take money out of a goal (floored at zero)"))
	return cmd
}

func goalAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME TARGET",
		Short: "Create a savings goal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.backend.Ledger.CreateGoal(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.printGoal(g)
		},
	}
}

func goalMoveCmd(a *app, action core.GoalAction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " GOAL_ID AMOUNT",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.backend.Ledger.ApplyGoalTransaction(cmd.Context(), args[0], action, args[1])
			if err != nil {
				return err
			}
			return a.printGoal(g)
		},
	}
}

func goalListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List savings goals with their progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			goals, err := a.backend.Ledger.Goals(cmd.Context())
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(goals)
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSAVED\tTARGET\tPROGRESS")
			for _, g := range goals {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s%%\n", g.ID, g.Name,
					core.FormatAmount(g.CurrentAmount), core.FormatAmount(g.TargetAmount),
					g.Progress().Shift(2).StringFixed(0))
			}
			return w.Flush()
		},
	}
}

func (a *app) printGoal(g core.Goal) error {
	if a.asJSON {
		return a.printJSON(g)
	}
	fmt.Fprintf(a.out, "%s: %s / %s (%s)\n", g.Name,
		core.FormatAmount(g.CurrentAmount), core.FormatAmount(g.TargetAmount), g.ID)
	if g.Reached() {
		fmt.Fprintln(a.out, "goal reached")
	}
	return nil
}
