package cmd

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/rustyeddy/btbroker/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query run journal data",
	Long: `Query and display run records from a SQLite journal.

Subcommands:
  runs    - List recorded runs, newest first
  run     - Show a run and its fills as Org-mode
  fills   - List the fills of a run
  equity  - List the equity curve of a run

Examples:
  btbroker journal runs
  btbroker journal run <run-id>
  btbroker journal fills <run-id>`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show a run summary and its fills",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var journalFillsCmd = &cobra.Command{
	Use:   "fills <run-id>",
	Short: "List the fills of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalFills,
}

var journalEquityCmd = &cobra.Command{
	Use:   "equity <run-id>",
	Short: "List the equity snapshots of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalEquity,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalRunCmd)
	journalCmd.AddCommand(journalFillsCmd)
	journalCmd.AddCommand(journalEquityCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./btbroker.db", "path to SQLite journal DB")
}

func openDB() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openDB()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns()
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tCREATED\tMODE\tCASH\tPNL\tFILLS")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%d\n",
			r.RunID, r.Created.Format("2006-01-02 15:04"), r.MarginMode, r.FinalCash, r.FinalPnL, r.Fills)
	}
	return w.Flush()
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	j, err := openDB()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	fills, err := j.ListFillsByRun(rec.RunID)
	if err != nil {
		return fmt.Errorf("query fills: %w", err)
	}

	s, err := journal.FormatRunOrg(rec, fills)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), s)
	return nil
}

func runJournalFills(cmd *cobra.Command, args []string) error {
	j, err := openDB()
	if err != nil {
		return err
	}
	defer j.Close()

	fills, err := j.ListFillsByRun(args[0])
	if err != nil {
		return fmt.Errorf("query fills: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSYMBOL\tQTY\tPRICE\tFEE\tSIZE\tPNL\tREASON")
	for _, f := range fills {
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%.4f\t%g\t%.2f\t%s\n",
			f.Time.Format("2006-01-02T15:04:05Z07:00"), f.Symbol, f.Qty, f.Price, f.Fee, f.SizeAfter, f.PnL, f.Reason)
	}
	return w.Flush()
}

func runJournalEquity(cmd *cobra.Command, args []string) error {
	j, err := openDB()
	if err != nil {
		return err
	}
	defer j.Close()

	snaps, err := j.ListEquityByRun(args[0])
	if err != nil {
		return fmt.Errorf("query equity: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSYMBOL\tCASH\tALLOCATED\tUSED\tLEVEL\tPNL")
	for _, e := range snaps {
		level := "inf"
		if !math.IsInf(e.MarginLevel, 1) {
			level = fmt.Sprintf("%.4f", e.MarginLevel)
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%s\t%.2f\n",
			e.Time.Format("2006-01-02T15:04:05Z07:00"), e.Symbol, e.Cash, e.Allocated, e.UsedMargin, level, e.PnL)
	}
	return w.Flush()
}
