package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/btbroker/config"
	"github.com/rustyeddy/btbroker/journal"
	"github.com/rustyeddy/btbroker/replay"
	"github.com/rustyeddy/btbroker/sim"
)

// openJournal builds the configured sink. db is non-nil only for SQLite,
// which is the one sink that can also store run summaries.
func openJournal(jc config.JournalConfig) (j journal.Journal, db *journal.SQLite, err error) {
	switch jc.Type {
	case "csv":
		j, err = journal.NewCSV(jc.FillsFile, jc.EquityFile)
	case "sqlite":
		db, err = journal.NewSQLite(jc.DBPath)
		j = db
	default:
		j = journal.Discard{}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("create journal: %w", err)
	}
	return j, db, nil
}

type runPlan struct {
	TicksFile string
	From, To  time.Time
	CloseEnd  bool
	Broker    sim.Config
}

// replayFile runs one tick file against a fresh broker. When db is set the
// run summary is stored alongside the fills.
func replayFile(ctx context.Context, plan runPlan, j journal.Journal, db *journal.SQLite) (replay.Result, error) {
	b, err := sim.NewBroker(plan.Broker, sim.WithJournal(j), sim.WithLogger(logger))
	if err != nil {
		return replay.Result{}, err
	}

	feed, err := replay.NewCSVFeed(plan.TicksFile, plan.From, plan.To)
	if err != nil {
		return replay.Result{}, fmt.Errorf("open ticks: %w", err)
	}
	defer feed.Close()

	res, err := replay.Run(ctx, feed, b, replay.Options{CloseEnd: plan.CloseEnd, Logger: logger})
	if err != nil {
		return res, fmt.Errorf("%s: %w", plan.TicksFile, err)
	}

	if db != nil {
		err = db.RecordRun(journal.RunRecord{
			RunID:       res.RunID,
			Created:     time.Now(),
			MarginMode:  plan.Broker.MarginMode.String(),
			InitialCash: plan.Broker.InitialCash,
			FeeRate:     plan.Broker.FeeRate,
			Leverage:    plan.Broker.Leverage,
			FinalCash:   res.FinalCash,
			FinalPnL:    res.TotalPnL,
			Fills:       res.Fills,
		})
		if err != nil {
			return res, fmt.Errorf("record run: %w", err)
		}
	}
	return res, nil
}

func printSummary(w io.Writer, name string, res replay.Result) {
	fmt.Fprintf(w, "%s (run %s)\n", name, res.RunID)
	fmt.Fprintf(w, "  Rows:          %d\n", res.Rows)
	fmt.Fprintf(w, "  Fills:         %d\n", res.Fills)
	fmt.Fprintf(w, "  Rejections:    %d\n", res.Rejections)
	fmt.Fprintf(w, "  Stop triggers: %d\n", res.StopTriggers)
	fmt.Fprintf(w, "  Liquidations:  %d\n", res.Liquidations)
	fmt.Fprintf(w, "  Final cash:    %.2f\n", res.FinalCash)
	fmt.Fprintf(w, "  Used margin:   %.2f\n", res.UsedMargin)
	fmt.Fprintf(w, "  Total PnL:     %.2f\n", res.TotalPnL)
	fmt.Fprintf(w, "  Equity:        %.2f\n", res.Equity)
}
