// journal/journal.go
package journal

import (
	"errors"
	"time"
)

var ErrRunNotFound = errors.New("run not found")

// Fill reasons written by the broker.
const (
	ReasonMarket      = "Market"
	ReasonTakeProfit  = "TakeProfit"
	ReasonStopLoss    = "StopLoss"
	ReasonLiquidation = "Liquidation"
	ReasonEndOfRun    = "EndOfRun"
)

// FillRecord is one executed trade against a symbol's position.
type FillRecord struct {
	ID        string
	RunID     string
	Time      time.Time
	Symbol    string
	Qty       float64 // signed, positive buys
	Price     float64
	Fee       float64
	SizeAfter float64
	PnL       float64 // cumulative for the symbol after the fill
	Reason    string
}

// EquitySnapshot is the account state after a price update.
type EquitySnapshot struct {
	RunID       string
	Time        time.Time
	Symbol      string
	Cash        float64
	Allocated   float64
	UsedMargin  float64
	MarginLevel float64 // +Inf when nothing is in use
	PnL         float64
}

type Journal interface {
	RecordFill(FillRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Discard is a Journal that drops everything.
type Discard struct{}

func (Discard) RecordFill(FillRecord) error { return nil }

func (Discard) RecordEquity(EquitySnapshot) error { return nil }

func (Discard) Close() error { return nil }
