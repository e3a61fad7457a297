package sim

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// InitialMarginRate is the margin-to-notional ratio needed to open,
	// before leverage.
	InitialMarginRate = 0.1

	// MaintenanceMarginRate is the margin-to-notional ratio at or below
	// which a position is liquidated.
	MaintenanceMarginRate = 0.05

	// liquidationBuffer scales the available margin into the absolute
	// maintenance amount used by the liquidation price estimate.
	liquidationBuffer = 0.05
)

var (
	ErrInvalidConfig = errors.New("invalid broker config")
	ErrInvalidOrder  = errors.New("invalid order")
)

// MarginMode selects whether positions share one cash pool or draw only on
// their own allocation.
type MarginMode int

const (
	Cross MarginMode = iota
	Isolated
)

func (m MarginMode) String() string {
	switch m {
	case Cross:
		return "cross"
	case Isolated:
		return "isolated"
	default:
		return fmt.Sprintf("MarginMode(%d)", int(m))
	}
}

func ParseMarginMode(s string) (MarginMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cross", "":
		return Cross, nil
	case "isolated":
		return Isolated, nil
	default:
		return Cross, fmt.Errorf("%w: unknown margin mode %q", ErrInvalidConfig, s)
	}
}

func (m MarginMode) MarshalText() ([]byte, error) {
	if m != Cross && m != Isolated {
		return nil, fmt.Errorf("%w: unknown margin mode %d", ErrInvalidConfig, int(m))
	}
	return []byte(m.String()), nil
}

func (m *MarginMode) UnmarshalText(b []byte) error {
	mode, err := ParseMarginMode(string(b))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Config holds the construction parameters of a Broker.
type Config struct {
	InitialCash float64
	FeeRate     float64
	Leverage    float64
	MarginMode  MarginMode
}

// Validate rejects any configuration the broker cannot run with.
func (c Config) Validate() error {
	if !(c.InitialCash > 0) {
		return fmt.Errorf("%w: initial cash must be positive, got %g", ErrInvalidConfig, c.InitialCash)
	}
	if !(c.FeeRate >= 0 && c.FeeRate < 1) {
		return fmt.Errorf("%w: fee rate must be in [0, 1), got %g", ErrInvalidConfig, c.FeeRate)
	}
	if !(c.Leverage >= 1) {
		return fmt.Errorf("%w: leverage must be >= 1, got %g", ErrInvalidConfig, c.Leverage)
	}
	if c.MarginMode != Cross && c.MarginMode != Isolated {
		return fmt.Errorf("%w: unknown margin mode %d", ErrInvalidConfig, int(c.MarginMode))
	}
	return nil
}
