package sim

import "math"

// RequiredMargin is the initial margin needed to hold size at price.
func RequiredMargin(size, price, leverage float64) float64 {
	return Notional(size, price) * InitialMarginRate / leverage
}

// Notional is the absolute position value of size at price.
func Notional(size, price float64) float64 {
	return math.Abs(size * price)
}

// marginLevel is available margin over notional, +Inf when nothing is held.
func marginLevel(available, notional float64) float64 {
	if notional > 0 {
		return available / notional
	}
	return math.Inf(1)
}

// liquidationPrice estimates the mark at which a position of size would be
// liquidated given the margin level computed at price. The maintenance term
// is an absolute amount derived from available margin, not a rate.
func liquidationPrice(size, price, level, available float64) float64 {
	if size == 0 {
		return 0
	}
	maintenance := available * liquidationBuffer
	if size > 0 {
		return price * (1 - level + maintenance)
	}
	return price * (1 + level - maintenance)
}

// belowMaintenance reports whether margin over notional has reached the
// maintenance threshold. An empty notional is never below it.
func belowMaintenance(margin, notional float64) bool {
	if notional <= 0 {
		return false
	}
	return margin/notional <= MaintenanceMarginRate
}
