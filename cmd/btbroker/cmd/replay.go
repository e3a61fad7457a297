package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/btbroker/journal"
	"github.com/rustyeddy/btbroker/replay"
	"github.com/rustyeddy/btbroker/sim"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay one or more tick files without a config file",
	Long: `Replay scripted tick files against fresh brokers.

Each --ticks file gets its own broker and run id; the files are replayed
concurrently and their summaries printed in argument order.

CSV format: time,symbol,price[,event,arg1,arg2]

Example:
  btbroker replay --ticks btc.csv --ticks eth.csv --cash 10000 --mode isolated --db runs.sqlite`,
	RunE: runReplay,
}

var (
	replayTicks    []string
	replayCash     float64
	replayFee      float64
	replayLeverage float64
	replayMode     string
	replayDB       string
	replayFrom     string
	replayTo       string
	replayCloseEnd bool
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringArrayVar(&replayTicks, "ticks", nil, "tick/event CSV file (repeatable) (required)")
	replayCmd.Flags().Float64Var(&replayCash, "cash", 10000, "initial cash")
	replayCmd.Flags().Float64Var(&replayFee, "fee", 0.001, "fee rate per traded notional")
	replayCmd.Flags().Float64Var(&replayLeverage, "leverage", 1, "leverage (>= 1)")
	replayCmd.Flags().StringVar(&replayMode, "mode", "cross", "margin mode (cross or isolated)")
	replayCmd.Flags().StringVar(&replayDB, "db", "", "SQLite journal path (optional)")
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "skip rows before this RFC3339 time")
	replayCmd.Flags().StringVar(&replayTo, "to", "", "skip rows at or after this RFC3339 time")
	replayCmd.Flags().BoolVar(&replayCloseEnd, "close-end", true, "close open positions when a file ends")
	replayCmd.MarkFlagRequired("ticks")
}

func runReplay(cmd *cobra.Command, args []string) error {
	mode, err := sim.ParseMarginMode(replayMode)
	if err != nil {
		return err
	}
	brokerCfg := sim.Config{
		InitialCash: replayCash,
		FeeRate:     replayFee,
		Leverage:    replayLeverage,
		MarginMode:  mode,
	}
	if err := brokerCfg.Validate(); err != nil {
		return err
	}

	from, err := parseBound("from", replayFrom)
	if err != nil {
		return err
	}
	to, err := parseBound("to", replayTo)
	if err != nil {
		return err
	}

	var (
		j  journal.Journal = journal.Discard{}
		db *journal.SQLite
	)
	if replayDB != "" {
		db, err = journal.NewSQLite(replayDB)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		j = db
	}

	results := make([]replay.Result, len(replayTicks))
	g, ctx := errgroup.WithContext(cmd.Context())
	for i, path := range replayTicks {
		i, path := i, path
		g.Go(func() error {
			res, err := replayFile(ctx, runPlan{
				TicksFile: path,
				From:      from,
				To:        to,
				CloseEnd:  replayCloseEnd,
				Broker:    brokerCfg,
			}, j, db)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, path := range replayTicks {
		if i > 0 {
			fmt.Fprintln(out)
		}
		printSummary(out, path, results[i])
	}
	return nil
}

func parseBound(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}
