package sim

import "math"

// Tracker is the trade ledger of a single symbol. It accrues gross profit
// and fees mark-to-market style and owns the symbol's stop orders. It never
// calls back into the Broker; margin inputs are handed to it per call.
type Tracker struct {
	symbol  string
	feeRate float64

	size      float64
	lastPrice float64
	hasLast   bool

	grossProfit float64
	fee         float64
	pnl         float64

	stops map[string]*StopOrder
	order []string // insertion order of stops
}

func NewTracker(symbol string, feeRate float64) *Tracker {
	t := &Tracker{symbol: symbol, feeRate: feeRate}
	t.Reset()
	return t
}

// Reset clears the position, cumulative profit and fee, and all stop
// orders. The fee rate is kept.
func (t *Tracker) Reset() {
	t.size = 0
	t.lastPrice = 0
	t.hasLast = false
	t.grossProfit = 0
	t.fee = 0
	t.pnl = 0
	t.stops = make(map[string]*StopOrder)
	t.order = nil
}

func (t *Tracker) Symbol() string { return t.symbol }
func (t *Tracker) Size() float64  { return t.size }
func (t *Tracker) PnL() float64   { return t.pnl }

// GrossProfit is the cumulative profit before fees.
func (t *Tracker) GrossProfit() float64 { return t.grossProfit }

// LastPrice returns the last traded or marked price; ok is false until the
// first call to ApplyTrade.
func (t *Tracker) LastPrice() (price float64, ok bool) {
	return t.lastPrice, t.hasLast
}

// Notional is |size * last price|, zero before the first price.
func (t *Tracker) Notional() float64 {
	if !t.hasLast {
		return 0
	}
	return Notional(t.size, t.lastPrice)
}

// ApplyTrade applies a signed quantity at price (qty 0 is a pure price
// update) and returns the resulting snapshot. Profit accrues on the size
// held before the trade across the move from the previous price.
// availableMargin is supplied by the broker for the margin level and
// liquidation estimate.
func (t *Tracker) ApplyTrade(price, qty, availableMargin float64) Snapshot {
	newSize := t.size + qty
	newFee := price * math.Abs(qty) * t.feeRate

	var delta float64
	if t.hasLast {
		delta = t.size * (price - t.lastPrice)
	}

	t.grossProfit += delta
	t.fee += newFee
	t.pnl = t.grossProfit - t.fee

	level := marginLevel(availableMargin, Notional(newSize, price))
	liq := liquidationPrice(newSize, price, level, availableMargin)

	t.size = newSize
	t.lastPrice = price
	t.hasLast = true

	return Snapshot{
		Symbol:           t.symbol,
		Size:             newSize,
		GrossProfit:      t.grossProfit,
		Fee:              t.fee,
		PnL:              t.pnl,
		MarginLevel:      level,
		LiquidationPrice: liq,
		AvailableMargin:  availableMargin,
		StopOrders:       t.activeStops(),
	}
}

// AddStopOrder registers a stop order under id. Re-using an id replaces
// the order but keeps its original evaluation slot.
func (t *Tracker) AddStopOrder(id string, price, qty float64, takeProfit bool) {
	if _, ok := t.stops[id]; !ok {
		t.order = append(t.order, id)
	}
	t.stops[id] = &StopOrder{TriggerPrice: price, Qty: qty, TakeProfit: takeProfit}
}

// RemoveStopOrder drops the order; unknown ids are ignored.
func (t *Tracker) RemoveStopOrder(id string) {
	if _, ok := t.stops[id]; !ok {
		return
	}
	delete(t.stops, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// CancelStopOrders drops every untriggered stop order.
func (t *Tracker) CancelStopOrders() {
	kept := t.order[:0]
	for _, id := range t.order {
		if t.stops[id].Triggered {
			kept = append(kept, id)
			continue
		}
		delete(t.stops, id)
	}
	t.order = kept
}

// EvaluateStopOrders returns the first untriggered order, in insertion
// order, that price crosses. The match is marked triggered and will never
// be returned again; executing the close is the caller's job.
func (t *Tracker) EvaluateStopOrders(price float64) (string, StopOrder, bool) {
	if t.size == 0 {
		return "", StopOrder{}, false
	}
	for _, id := range t.order {
		o := t.stops[id]
		if o.hits(t.size, price) {
			o.Triggered = true
			return id, *o, true
		}
	}
	return "", StopOrder{}, false
}

// StopOrder returns the stored order, triggered or not.
func (t *Tracker) StopOrder(id string) (StopOrder, bool) {
	o, ok := t.stops[id]
	if !ok {
		return StopOrder{}, false
	}
	return *o, true
}

func (t *Tracker) activeStops() map[string]StopOrder {
	out := make(map[string]StopOrder, len(t.stops))
	for id, o := range t.stops {
		if !o.Triggered {
			out[id] = *o
		}
	}
	return out
}
