package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/finch-money/finch/internal/database/repository"
)

func newRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and apply the rule set",
	}
	cmd.AddCommand(newRulesListCommand())
	cmd.AddCommand(newRulesCheckCommand())
	cmd.AddCommand(newRulesRunCommand())
	return cmd
}

func newRulesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.rules.ListRules(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PRIORITY\tLABEL\tENABLED\tCOMBINATOR\tCONDITIONS\tACTIONS\tSTOP")
			for _, r := range list {
				fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%d\t%d\t%t\n",
					r.Priority, r.Label, r.Enabled, r.Combinator, len(r.Conditions), len(r.Actions), r.Stop)
			}
			return w.Flush()
		},
	}
}

func newRulesCheckCommand() *cobra.Command {
	var accountName string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Dry-run the rule set over stored transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(cmd, accountName, true)
		},
	}
	cmd.Flags().StringVar(&accountName, "account", "", "limit to one account")
	return cmd
}

func newRulesRunCommand() *cobra.Command {
	var accountName string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply the rule set to stored transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(cmd, accountName, false)
		},
	}
	cmd.Flags().StringVar(&accountName, "account", "", "limit to one account")
	return cmd
}

func runRules(cmd *cobra.Command, accountName string, dryRun bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	filters := repository.TransactionFilters{}
	if accountName != "" {
		filters.AccountID = repository.DeterministicAccountID(accountName)
	}
	txns, err := a.txns.List(cmd.Context(), filters)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no transactions")
		return nil
	}

	_, stats, err := a.coordinator().ApplyRules(cmd.Context(), txns, dryRun)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "dry run, nothing written")
	}
	printStats(cmd, stats)
	return nil
}
