package sim

import (
	"math"
	"sort"
)

// Snapshot is the computed state of one symbol's position. It is a value:
// each Snapshot owns its StopOrders map, so holding an old one never shows
// later changes.
type Snapshot struct {
	Symbol string
	Size   float64 // signed; positive long, negative short

	GrossProfit float64
	Fee         float64
	PnL         float64 // always GrossProfit - Fee

	MarginLevel      float64 // +Inf when notional is zero
	LiquidationPrice float64 // 0 when flat
	AvailableMargin  float64
	AllocatedMargin  float64

	// StopOrders holds the untriggered stop orders by id.
	StopOrders map[string]StopOrder

	// Liquidated is set on the snapshot produced by a forced liquidation.
	Liquidated bool
}

func emptySnapshot(symbol string, available, allocated float64) Snapshot {
	return Snapshot{
		Symbol:          symbol,
		MarginLevel:     math.Inf(1),
		AvailableMargin: available,
		AllocatedMargin: allocated,
		StopOrders:      map[string]StopOrder{},
	}
}

func (s Snapshot) IsFlat() bool  { return s.Size == 0 }
func (s Snapshot) IsLong() bool  { return s.Size > 0 }
func (s Snapshot) IsShort() bool { return s.Size < 0 }

// ActiveStopOrders returns the ids of the untriggered stop orders, sorted.
func (s Snapshot) ActiveStopOrders() []string {
	ids := make([]string, 0, len(s.StopOrders))
	for id := range s.StopOrders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// clone returns a copy that shares no mutable state with s.
func (s Snapshot) clone() Snapshot {
	orders := make(map[string]StopOrder, len(s.StopOrders))
	for id, o := range s.StopOrders {
		orders[id] = o
	}
	s.StopOrders = orders
	return s
}
