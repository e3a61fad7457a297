// Package replay drives a sim.Broker from a scripted tick file.
//
// For every row the driver stamps the broker clock, applies the tick with
// UpdatePrice and then runs the row's event, if any, at the same price.
//
// Events (case-insensitive):
//
//	BUY       qty
//	SELL      qty
//	TP        price [qty]    take-profit on the row's symbol, qty 0 = full size
//	SL        price [qty]    stop-loss on the row's symbol
//	CANCEL    id             remove a pending stop order
//	ALLOCATE  amount         isolated margin for the row's symbol
//	CLOSE_ALL [reason]       force-close every open position
package replay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rustyeddy/btbroker/journal"
	"github.com/rustyeddy/btbroker/sim"
)

// Options controls how a replay behaves.
type Options struct {
	// CloseEnd force-closes every open position at its last price once the
	// feed is exhausted.
	CloseEnd bool

	Logger *slog.Logger
}

// Result summarizes a finished replay.
type Result struct {
	RunID string

	Rows         int
	Fills        int
	Rejections   int
	StopTriggers int
	Liquidations int

	// StopOrderIDs lists the ids handed out by TP/SL events, in order.
	StopOrderIDs []string

	FinalCash  float64
	UsedMargin float64
	TotalPnL   float64
	Equity     float64
}

// Run replays feed into b until the feed ends, an error occurs or ctx is
// done. The partial Result is returned alongside any error.
func Run(ctx context.Context, feed Feed, b *sim.Broker, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("run", b.RunID())

	res := Result{RunID: b.RunID()}
	finish := func() Result {
		res.FinalCash = b.Cash()
		res.UsedMargin = b.UsedMargin()
		res.TotalPnL = b.TotalPnL()
		res.Equity = b.Equity()
		return res
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}

		row, ok, err := feed.Next()
		if err != nil {
			return finish(), err
		}
		if !ok {
			break
		}
		res.Rows++

		if err := applyRow(b, row, &res, log); err != nil {
			return finish(), fmt.Errorf("line %d: %w", row.Line, err)
		}
	}

	if opts.CloseEnd {
		closed, err := b.CloseAll(journal.ReasonEndOfRun)
		res.Fills += len(closed)
		if err != nil {
			return finish(), err
		}
	}

	res = finish()
	log.Info("replay finished",
		"rows", res.Rows, "fills", res.Fills, "rejections", res.Rejections,
		"stops", res.StopTriggers, "liquidations", res.Liquidations,
		"cash", res.FinalCash, "pnl", res.TotalPnL, "equity", res.Equity)
	return res, nil
}

func applyRow(b *sim.Broker, row Row, res *Result, log *slog.Logger) error {
	b.SetTime(row.Time)

	upd, err := b.UpdatePrice(row.Symbol, row.Price)
	if err != nil {
		return err
	}
	switch upd.Kind {
	case sim.UpdateStop:
		res.Fills++
		res.StopTriggers++
	case sim.UpdateLiquidation:
		res.Fills += len(upd.Liquidated)
		res.Liquidations += len(upd.Liquidated)
	}

	if row.Event == "" {
		return nil
	}
	return applyEvent(b, row, res, log)
}

func applyEvent(b *sim.Broker, row Row, res *Result, log *slog.Logger) error {
	var (
		out sim.Outcome
		err error
	)

	switch row.Event {
	case "BUY", "SELL":
		qty, perr := floatArg(row, 0, true)
		if perr != nil {
			return perr
		}
		if row.Event == "BUY" {
			out, err = b.Buy(row.Symbol, row.Price, qty, false)
		} else {
			out, err = b.Sell(row.Symbol, row.Price, qty, false)
		}
		if err == nil && out.OK() {
			res.Fills++
		}

	case "TP", "SL":
		trigger, perr := floatArg(row, 0, true)
		if perr != nil {
			return perr
		}
		qty, perr := floatArg(row, 1, false)
		if perr != nil {
			return perr
		}
		if row.Event == "TP" {
			out, err = b.AddTakeProfit(row.Symbol, trigger, qty)
		} else {
			out, err = b.AddStopLoss(row.Symbol, trigger, qty)
		}
		if err == nil && out.OK() {
			res.StopOrderIDs = append(res.StopOrderIDs, out.OrderID)
		}

	case "CANCEL":
		if len(row.Args) < 1 {
			return fmt.Errorf("%w: CANCEL needs an order id", ErrBadRow)
		}
		b.RemoveStopOrder(row.Symbol, row.Args[0])
		return nil

	case "ALLOCATE":
		amount, perr := floatArg(row, 0, true)
		if perr != nil {
			return perr
		}
		out, err = b.AllocateMargin(row.Symbol, amount)

	case "CLOSE_ALL":
		reason := journal.ReasonEndOfRun
		if len(row.Args) > 0 {
			reason = row.Args[0]
		}
		closed, cerr := b.CloseAll(reason)
		res.Fills += len(closed)
		return cerr

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, row.Event)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", row.Event, err)
	}
	if !out.OK() {
		res.Rejections++
		log.Warn("event rejected", "event", row.Event, "symbol", row.Symbol,
			"price", row.Price, "status", out.Status.String())
	}
	return nil
}

// floatArg parses the i-th event argument. A missing optional argument is 0.
func floatArg(row Row, i int, required bool) (float64, error) {
	if i >= len(row.Args) {
		if required {
			return 0, fmt.Errorf("%w: %s needs argument %d", ErrBadRow, row.Event, i+1)
		}
		return 0, nil
	}
	v, err := parseFloat(row.Args[i])
	if err != nil {
		return 0, fmt.Errorf("%w: %s argument %q: %v", ErrBadRow, row.Event, row.Args[i], err)
	}
	return v, nil
}
