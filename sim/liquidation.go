package sim

import (
	"slices"

	"github.com/rustyeddy/btbroker/journal"
)

// liquidationTriggeredLocked runs the mode-specific liquidation check for a
// tick of symbol at price. The ticking symbol is valued at the incoming
// price; in cross mode every other symbol uses its own last price.
func (b *Broker) liquidationTriggeredLocked(symbol string, price float64) bool {
	if b.mode == Isolated {
		t := b.trackers[symbol]
		if t == nil || t.Size() == 0 {
			return false
		}
		return belowMaintenance(b.allocated[symbol], Notional(t.Size(), price))
	}
	return belowMaintenance(b.cash, b.crossNotionalLocked(symbol, price))
}

// crossNotionalLocked sums |size * price| over non-flat symbols. The ticking
// symbol is valued at the incoming price, not its stale last price.
func (b *Broker) crossNotionalLocked(symbol string, price float64) float64 {
	var total float64
	for s, t := range b.trackers {
		if t.Size() == 0 {
			continue
		}
		if s == symbol {
			total += Notional(t.Size(), price)
			continue
		}
		total += t.Notional()
	}
	return total
}

// liquidateLocked force-closes positions after a triggered liquidation
// check. Isolated mode closes the ticking symbol and forfeits its
// allocation. Cross mode closes the worst position first, re-checking the
// account after each close, the same way the simulator's margin enforcement
// works. A ticking symbol that survives is then marked to market.
func (b *Broker) liquidateLocked(symbol string, price float64) (Update, error) {
	upd := Update{Kind: UpdateLiquidation}

	if b.mode == Isolated {
		snap, err := b.closeLiquidatedLocked(symbol, price)
		upd.Liquidated = append(upd.Liquidated, symbol)
		upd.Snapshot = snap
		return upd, err
	}

	for b.liquidationTriggeredLocked(symbol, price) {
		worst := b.worstPositionLocked(symbol, price)
		if worst == "" {
			break
		}

		closeAt := price
		if worst != symbol {
			closeAt, _ = b.trackers[worst].LastPrice()
		}
		snap, err := b.closeLiquidatedLocked(worst, closeAt)
		upd.Liquidated = append(upd.Liquidated, worst)
		if worst == symbol {
			upd.Snapshot = snap
		}
		if err != nil {
			return upd, err
		}
	}

	if !slices.Contains(upd.Liquidated, symbol) {
		snap := b.trackers[symbol].ApplyTrade(price, 0, b.availableMarginLocked(symbol))
		snap.AllocatedMargin = b.allocated[symbol]
		b.positions[symbol] = snap
		upd.Snapshot = snap.clone()
	}
	return upd, nil
}

// closeLiquidatedLocked zeroes symbol's position at price, cancels its
// pending stops and, in isolated mode, forfeits the bucket.
func (b *Broker) closeLiquidatedLocked(symbol string, price float64) (Snapshot, error) {
	t := b.trackers[symbol]
	size := t.Size()
	b.log.Warn("liquidating position",
		"symbol", symbol, "price", price, "size", size, "cash", b.cash,
		"allocated", b.allocated[symbol])

	t.CancelStopOrders()
	_, err := b.tradeLocked(symbol, price, -size, true, journal.ReasonLiquidation)

	if b.mode == Isolated {
		delete(b.allocated, symbol)
	}

	snap := b.positions[symbol]
	snap.Liquidated = true
	snap.AllocatedMargin = b.allocated[symbol]
	snap.AvailableMargin = b.availableMarginLocked(symbol)
	b.positions[symbol] = snap

	return snap.clone(), err
}

// worstPositionLocked picks the non-flat symbol with the lowest PnL, with
// the ticking symbol's unbooked move since its last price included.
// Ties go to the lexically smallest symbol.
func (b *Broker) worstPositionLocked(symbol string, price float64) string {
	var (
		worst   string
		worstPL float64
	)
	for _, s := range b.openSymbolsLocked() {
		t := b.trackers[s]
		pl := t.PnL()
		if s == symbol {
			if last, ok := t.LastPrice(); ok {
				pl += t.Size() * (price - last)
			}
		}
		if worst == "" || pl < worstPL {
			worst = s
			worstPL = pl
		}
	}
	return worst
}
