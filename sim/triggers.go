package sim

// StopOrder is a pending conditional close of part or all of a position.
type StopOrder struct {
	TriggerPrice float64
	Qty          float64 // magnitude to close
	TakeProfit   bool    // false means stop-loss
	Triggered    bool    // sticky once set
}

// Kind returns "TakeProfit" or "StopLoss".
func (o StopOrder) Kind() string {
	if o.TakeProfit {
		return "TakeProfit"
	}
	return "StopLoss"
}

// hits reports whether price crosses the order's trigger for a position of
// the given signed size. A flat position never triggers.
func (o StopOrder) hits(size, price float64) bool {
	if o.Triggered {
		return false
	}
	if o.TakeProfit {
		return hitTakeProfit(size, o.TriggerPrice, price)
	}
	return hitStopLoss(size, o.TriggerPrice, price)
}

func hitStopLoss(size, trigger, price float64) bool {
	switch {
	case size > 0:
		return price <= trigger
	case size < 0:
		return price >= trigger
	}
	return false
}

func hitTakeProfit(size, trigger, price float64) bool {
	switch {
	case size > 0:
		return price >= trigger
	case size < 0:
		return price <= trigger
	}
	return false
}
