package cmd

import (
	"fmt"

	"github.com/rustyeddy/btbroker/config"
	"github.com/rustyeddy/btbroker/internal/logging"
	"github.com/rustyeddy/btbroker/journal"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay the configured tick file",
	Long: `Run a backtest using settings from a configuration file.

The config file specifies the broker (cash, fee rate, leverage, margin mode),
the journal and the tick/event file to replay.

Example:
  btbroker run -f examples/configs/basic.yaml`,
	RunE: runRun,
}

var (
	runConfigPath string
	runOrgPath    string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "file", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVar(&runOrgPath, "org", "", "write an Org-mode run report (sqlite journal only)")
	runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cmd.Flags().Changed("log-level") && cfg.Log.Level != "" {
		logger = logging.New(cmd.ErrOrStderr(), cfg.Log.Level)
	}

	simCfg, err := cfg.Broker.SimConfig()
	if err != nil {
		return err
	}
	from, to, err := cfg.Replay.Window()
	if err != nil {
		return err
	}

	j, db, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	res, err := replayFile(cmd.Context(), runPlan{
		TicksFile: cfg.Replay.TicksFile,
		From:      from,
		To:        to,
		CloseEnd:  cfg.Replay.CloseEnd,
		Broker:    simCfg,
	}, j, db)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printSummary(out, cfg.Replay.TicksFile, res)

	switch cfg.Journal.Type {
	case "csv":
		fmt.Fprintf(out, "\nResults saved to:\n  - %s\n  - %s\n", cfg.Journal.FillsFile, cfg.Journal.EquityFile)
	case "sqlite":
		fmt.Fprintf(out, "\nResults saved to: %s\n", cfg.Journal.DBPath)
	}

	if runOrgPath == "" {
		return nil
	}
	if db == nil {
		return fmt.Errorf("--org needs a sqlite journal")
	}
	rec, err := db.GetRun(res.RunID)
	if err != nil {
		return err
	}
	fills, err := db.ListFillsByRun(res.RunID)
	if err != nil {
		return err
	}
	return journal.WriteRunOrg(runOrgPath, rec, fills)
}
