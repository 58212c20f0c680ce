package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/finch-money/finch/internal/pipeline"
	"github.com/finch-money/finch/internal/rules"
)

func newImportCommand() *cobra.Command {
	var profileName string
	var force bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a CSV bank statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			p, ok := a.profiles.Get(profileName)
			if !ok {
				names := a.profiles.Names()
				if len(names) == 0 {
					return fmt.Errorf("no import profiles found in %s, run `finch init` first", a.cfg.Import.ProfilesDir)
				}
				return fmt.Errorf("unknown profile %q, available: %s", profileName, strings.Join(names, ", "))
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			coord := a.coordinator()
			coord.AllowReimport = force
			coord.OnProgress = func(pr pipeline.Progress) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\rprocessed %d rows (%d accepted, %d duplicate, %d errors)",
					pr.Processed, pr.Accepted, pr.Duplicate, pr.Errors)
			}

			sum, err := coord.Import(cmd.Context(), f, filepath.Base(args[0]), p)
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				if errors.Is(err, pipeline.ErrAlreadyImported) {
					return fmt.Errorf("%w (use --force to import again)", err)
				}
				return err
			}

			printSummary(cmd, sum)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "import profile name (required)")
	_ = cmd.MarkFlagRequired("profile")
	cmd.Flags().BoolVar(&force, "force", false, "import even if this file was imported before")

	return cmd
}

func printSummary(cmd *cobra.Command, sum pipeline.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "batch %s (%s, %s)\n", sum.BatchID, sum.Profile, sum.Encoding)
	fmt.Fprintf(out, "  rows %d, accepted %d, duplicates %d, malformed %d in %s\n",
		sum.RowCount, sum.Accepted, sum.Duplicates, sum.Malformed, sum.Elapsed.Round(time.Millisecond))

	for _, re := range sum.RowErrors {
		fmt.Fprintf(out, "  row %d: %s\n", re.Row, re.Reason)
	}
	if extra := sum.Malformed - len(sum.RowErrors); extra > 0 {
		fmt.Fprintf(out, "  ... and %d more malformed rows\n", extra)
	}

	printStats(cmd, sum.Stats)
}

func printStats(cmd *cobra.Command, stats rules.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rules: %d fired across %d transactions, %d changed\n",
		stats.RulesFired, stats.Transactions, stats.Affected)

	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	for _, o := range stats.Outcomes {
		if o.Matched == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s\tmatched %d\tcategory %d\ttags %d\tpayee %d\n",
			o.Label, o.Matched, o.CategoryChanges, o.TagChanges, o.PayeeChanges)
	}
	w.Flush()

	for _, ve := range stats.Excluded {
		fmt.Fprintf(out, "  excluded rule %s: %s\n", ve.RuleID, ve.Reason)
	}
	for _, f := range stats.Failures {
		fmt.Fprintf(out, "  rule %s failed on %s: %s\n", f.RuleID, f.TransactionID, f.Reason)
	}
}

func newBatchesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "batches",
		Short: "List past import batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			batches, err := a.batches.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tFILE\tPROFILE\tSTATUS\tROWS\tACCEPTED\tDUP\tBAD")
			for _, b := range batches {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					b.StartedAt.Format(time.DateOnly), b.SourceFile, b.Profile, b.Status,
					b.RowCount, b.Accepted, b.Duplicates, b.Malformed)
			}
			return w.Flush()
		},
	}
}
