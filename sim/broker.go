package sim

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/btbroker/internal/id"
	"github.com/rustyeddy/btbroker/journal"
)

// Broker is the cash ledger and margin policy on top of one Tracker per
// symbol. It owns all shared state: cash, isolated allocations, the last
// snapshot of every symbol and the stop-order id sequence.
//
// Events must be fed in order; the mutex only makes a broker safe to query
// from another goroutine while a run is in progress.
type Broker struct {
	mu sync.Mutex

	cash     float64
	feeRate  float64
	leverage float64
	mode     MarginMode

	positions map[string]Snapshot
	allocated map[string]float64
	trackers  map[string]*Tracker
	stopIDs   *stopIDs

	runID   string
	now     time.Time
	journal journal.Journal
	log     *slog.Logger
}

type Option func(*Broker)

func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.log = l
		}
	}
}

func WithJournal(j journal.Journal) Option {
	return func(b *Broker) {
		if j != nil {
			b.journal = j
		}
	}
}

func WithRunID(runID string) Option {
	return func(b *Broker) {
		if runID != "" {
			b.runID = runID
		}
	}
}

// NewBroker validates cfg and returns a broker holding cfg.InitialCash.
func NewBroker(cfg Config, opts ...Option) (*Broker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Broker{
		cash:      cfg.InitialCash,
		feeRate:   cfg.FeeRate,
		leverage:  cfg.Leverage,
		mode:      cfg.MarginMode,
		positions: make(map[string]Snapshot),
		allocated: make(map[string]float64),
		trackers:  make(map[string]*Tracker),
		stopIDs:   &stopIDs{},
		journal:   journal.Discard{},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.runID == "" {
		b.runID = id.New()
	}
	b.log = b.log.With("run", b.runID, "mode", b.mode.String())
	return b, nil
}

func (b *Broker) RunID() string    { return b.runID }
func (b *Broker) Mode() MarginMode { return b.mode }

// SetTime sets the as-of time stamped on journal records. The broker has
// no clock of its own; the driver advances it with the feed.
func (b *Broker) SetTime(t time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = t
}

// Buy opens or adds to a long (or reduces a short) by qty at price.
func (b *Broker) Buy(symbol string, price, qty float64, force bool) (Outcome, error) {
	if err := validateOrder(symbol, price, qty); err != nil {
		return Outcome{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tradeLocked(symbol, price, qty, force, journal.ReasonMarket)
}

// Sell is Buy with the quantity negated.
func (b *Broker) Sell(symbol string, price, qty float64, force bool) (Outcome, error) {
	if err := validateOrder(symbol, price, qty); err != nil {
		return Outcome{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tradeLocked(symbol, price, -qty, force, journal.ReasonMarket)
}

// tradeLocked runs the margin check (unless forced), charges the fee to
// unallocated cash and applies the signed quantity to the tracker.
func (b *Broker) tradeLocked(symbol string, price, signed float64, force bool, reason string) (Outcome, error) {
	current := b.positionLocked(symbol)
	if !force {
		required := RequiredMargin(current.Size+signed, price, b.leverage)
		available := b.availableMarginLocked(symbol)
		if required > available {
			b.log.Error("insufficient margin, order rejected",
				"symbol", symbol, "qty", signed, "price", price,
				"required", required, "available", available)
			return Outcome{Status: RejectedInsufficientMargin, Snapshot: current}, nil
		}
	}

	fee := price * math.Abs(signed) * b.feeRate
	b.cash -= fee

	snap := b.tracker(symbol).ApplyTrade(price, signed, b.availableMarginLocked(symbol))
	snap.AllocatedMargin = b.allocated[symbol]
	b.positions[symbol] = snap

	err := b.journal.RecordFill(journal.FillRecord{
		ID:        id.NewAt(b.now),
		RunID:     b.runID,
		Time:      b.now,
		Symbol:    symbol,
		Qty:       signed,
		Price:     price,
		Fee:       fee,
		SizeAfter: snap.Size,
		PnL:       snap.PnL,
		Reason:    reason,
	})
	if err != nil {
		return Outcome{Status: Filled, Snapshot: snap.clone()}, fmt.Errorf("record fill: %w", err)
	}

	b.log.Debug("filled", "symbol", symbol, "qty", signed, "price", price, "fee", fee, "size", snap.Size)
	return Outcome{Status: Filled, Snapshot: snap.clone()}, nil
}

// UpdatePrice applies a tick. Policy, in order: a triggered stop order is
// executed and nothing else happens on this tick; otherwise a liquidation
// check runs; otherwise the position is marked to market.
func (b *Broker) UpdatePrice(symbol string, price float64) (Update, error) {
	if symbol == "" {
		return Update{}, fmt.Errorf("%w: empty symbol", ErrInvalidOrder)
	}
	if !(price > 0) || math.IsInf(price, 0) {
		return Update{}, fmt.Errorf("%w: price must be positive, got %g", ErrInvalidOrder, price)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.tracker(symbol)

	if oid, stop, ok := t.EvaluateStopOrders(price); ok {
		reason := journal.ReasonStopLoss
		if stop.TakeProfit {
			reason = journal.ReasonTakeProfit
		}
		signed := -stop.Qty
		if t.Size() < 0 {
			signed = stop.Qty
		}
		b.log.Info("stop order triggered",
			"kind", stop.Kind(), "id", oid, "symbol", symbol, "price", price, "qty", stop.Qty)

		out, err := b.tradeLocked(symbol, price, signed, true, reason)
		upd := Update{Kind: UpdateStop, Snapshot: out.Snapshot, StopOrderID: oid, StopOrder: stop}
		if err != nil {
			return upd, err
		}
		return upd, b.recordEquityLocked(symbol)
	}

	if b.liquidationTriggeredLocked(symbol, price) {
		upd, err := b.liquidateLocked(symbol, price)
		if err != nil {
			return upd, err
		}
		return upd, b.recordEquityLocked(symbol)
	}

	snap := t.ApplyTrade(price, 0, b.availableMarginLocked(symbol))
	snap.AllocatedMargin = b.allocated[symbol]
	b.positions[symbol] = snap

	return Update{Kind: UpdateMark, Snapshot: snap.clone()}, b.recordEquityLocked(symbol)
}

// AllocateMargin moves amount of unallocated cash into symbol's isolated
// bucket. There is no way back.
func (b *Broker) AllocateMargin(symbol string, amount float64) (Outcome, error) {
	if symbol == "" {
		return Outcome{}, fmt.Errorf("%w: empty symbol", ErrInvalidOrder)
	}
	if !(amount >= 0) || math.IsInf(amount, 0) {
		return Outcome{}, fmt.Errorf("%w: allocation must be non-negative, got %g", ErrInvalidOrder, amount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.positionLocked(symbol)
	if b.mode != Isolated {
		b.log.Warn("margin allocation is only available in isolated mode", "symbol", symbol, "amount", amount)
		return Outcome{Status: RejectedWrongMode, Snapshot: current}, nil
	}
	if amount > b.cash {
		b.log.Error("insufficient cash for allocation", "symbol", symbol, "amount", amount, "cash", b.cash)
		return Outcome{Status: RejectedOverdraw, Snapshot: current}, nil
	}

	b.cash -= amount
	b.allocated[symbol] += amount

	if snap, ok := b.positions[symbol]; ok {
		snap.AllocatedMargin = b.allocated[symbol]
		snap.AvailableMargin = b.allocated[symbol]
		b.positions[symbol] = snap
	}
	return Outcome{Status: Filled, Snapshot: b.positionLocked(symbol)}, nil
}

// AddTakeProfit registers a take-profit on the open position of symbol.
// qty 0 closes the full current size.
func (b *Broker) AddTakeProfit(symbol string, price, qty float64) (Outcome, error) {
	return b.addStop(symbol, price, qty, true)
}

// AddStopLoss registers a stop-loss on the open position of symbol.
// qty 0 closes the full current size.
func (b *Broker) AddStopLoss(symbol string, price, qty float64) (Outcome, error) {
	return b.addStop(symbol, price, qty, false)
}

func (b *Broker) addStop(symbol string, price, qty float64, takeProfit bool) (Outcome, error) {
	if err := validateOrder(symbol, price, qty); err != nil {
		return Outcome{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.positionLocked(symbol)
	if current.Size == 0 {
		kind := "stop loss"
		if takeProfit {
			kind = "take profit"
		}
		b.log.Warn("no position for "+kind, "symbol", symbol, "price", price)
		return Outcome{Status: RejectedNoPosition, Snapshot: current}, nil
	}

	if qty == 0 {
		qty = math.Abs(current.Size)
	}
	oid := b.stopIDs.next()
	t := b.tracker(symbol)
	t.AddStopOrder(oid, price, qty, takeProfit)
	b.refreshStopsLocked(symbol)

	return Outcome{Status: Filled, Snapshot: b.positionLocked(symbol), OrderID: oid}, nil
}

// RemoveStopOrder cancels a pending stop order. Unknown symbols and ids
// are ignored.
func (b *Broker) RemoveStopOrder(symbol, orderID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.trackers[symbol]
	if !ok {
		return
	}
	t.RemoveStopOrder(orderID)
	b.refreshStopsLocked(symbol)
}

// GetPosition returns the last snapshot of symbol, or a zeroed snapshot
// carrying the current cash when the symbol has never traded.
func (b *Broker) GetPosition(symbol string) Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.positionLocked(symbol)
}

// AvailableMargin is the unallocated cash.
func (b *Broker) AvailableMargin() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cash
}

// Cash is the unallocated cash; same value as AvailableMargin.
func (b *Broker) Cash() float64 {
	return b.AvailableMargin()
}

// AllocatedMargin is the isolated bucket of symbol.
func (b *Broker) AllocatedMargin(symbol string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allocated[symbol]
}

// UsedMargin sums |size * last price| * InitialMarginRate over every
// symbol, each valued at its own last observed price.
func (b *Broker) UsedMargin() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usedMarginLocked()
}

// MarginLevel is cash over used margin, +Inf when nothing is used.
func (b *Broker) MarginLevel() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return marginLevel(b.cash, b.usedMarginLocked())
}

// TotalPnL sums the cumulative PnL of every symbol.
func (b *Broker) TotalPnL() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalPnLLocked()
}

// Equity is unallocated cash plus every isolated bucket plus the gross
// profit of all symbols. Fees already left cash, so they are not taken
// off a second time. Allocating margin leaves it unchanged.
func (b *Broker) Equity() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	equity := b.cash + b.totalAllocatedLocked()
	for _, t := range b.trackers {
		equity += t.GrossProfit()
	}
	return equity
}

// Symbols returns every symbol the broker has seen, sorted.
func (b *Broker) Symbols() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, 0, len(b.trackers))
	for s := range b.trackers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// CloseAll force-closes every open position at its last price.
func (b *Broker) CloseAll(reason string) ([]Snapshot, error) {
	if reason == "" {
		reason = journal.ReasonEndOfRun
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Snapshot
	for _, symbol := range b.openSymbolsLocked() {
		t := b.trackers[symbol]
		price, _ := t.LastPrice()
		o, err := b.tradeLocked(symbol, price, -t.Size(), true, reason)
		out = append(out, o.Snapshot)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// tracker is the get-or-create accessor for a symbol's ledger.
func (b *Broker) tracker(symbol string) *Tracker {
	t, ok := b.trackers[symbol]
	if !ok {
		t = NewTracker(symbol, b.feeRate)
		b.trackers[symbol] = t
	}
	return t
}

func (b *Broker) positionLocked(symbol string) Snapshot {
	if snap, ok := b.positions[symbol]; ok {
		return snap.clone()
	}
	return emptySnapshot(symbol, b.cash, b.allocated[symbol])
}

// availableMarginLocked is the single switch between the shared pool and
// the walled-off bucket.
func (b *Broker) availableMarginLocked(symbol string) float64 {
	if b.mode == Cross {
		return b.cash
	}
	return b.allocated[symbol]
}

func (b *Broker) refreshStopsLocked(symbol string) {
	snap, ok := b.positions[symbol]
	if !ok {
		return
	}
	snap.StopOrders = b.trackers[symbol].activeStops()
	b.positions[symbol] = snap
}

func (b *Broker) usedMarginLocked() float64 {
	var used float64
	for _, t := range b.trackers {
		used += t.Notional() * InitialMarginRate
	}
	return used
}

func (b *Broker) totalPnLLocked() float64 {
	var pnl float64
	for _, t := range b.trackers {
		pnl += t.PnL()
	}
	return pnl
}

func (b *Broker) totalAllocatedLocked() float64 {
	var sum float64
	for _, v := range b.allocated {
		sum += v
	}
	return sum
}

// openSymbolsLocked lists non-flat symbols, sorted for determinism.
func (b *Broker) openSymbolsLocked() []string {
	var out []string
	for s, t := range b.trackers {
		if t.Size() != 0 {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func (b *Broker) recordEquityLocked(symbol string) error {
	err := b.journal.RecordEquity(journal.EquitySnapshot{
		RunID:       b.runID,
		Time:        b.now,
		Symbol:      symbol,
		Cash:        b.cash,
		Allocated:   b.totalAllocatedLocked(),
		UsedMargin:  b.usedMarginLocked(),
		MarginLevel: marginLevel(b.cash, b.usedMarginLocked()),
		PnL:         b.totalPnLLocked(),
	})
	if err != nil {
		return fmt.Errorf("record equity: %w", err)
	}
	return nil
}

func validateOrder(symbol string, price, qty float64) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidOrder)
	}
	if !(price > 0) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: price must be positive, got %g", ErrInvalidOrder, price)
	}
	if !(qty >= 0) || math.IsInf(qty, 0) {
		return fmt.Errorf("%w: quantity must be non-negative, got %g", ErrInvalidOrder, qty)
	}
	return nil
}
