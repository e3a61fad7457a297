package sim

// Status is the result of an order or account operation.
type Status int

const (
	Filled Status = iota
	RejectedInsufficientMargin
	RejectedNoPosition
	RejectedOverdraw
	RejectedWrongMode
)

func (s Status) String() string {
	switch s {
	case Filled:
		return "Filled"
	case RejectedInsufficientMargin:
		return "RejectedInsufficientMargin"
	case RejectedNoPosition:
		return "RejectedNoPosition"
	case RejectedOverdraw:
		return "RejectedOverdraw"
	case RejectedWrongMode:
		return "RejectedWrongMode"
	default:
		return "Unknown"
	}
}

// Outcome is returned by every broker operation that can be declined.
// A rejection leaves the ledger untouched and Snapshot holds the
// pre-operation state of the symbol.
type Outcome struct {
	Status   Status
	Snapshot Snapshot
	OrderID  string // set by AddTakeProfit/AddStopLoss
}

// OK reports whether the operation was applied.
func (o Outcome) OK() bool { return o.Status == Filled }

// UpdateKind tells which branch of the price-update policy ran.
type UpdateKind int

const (
	UpdateMark UpdateKind = iota
	UpdateStop
	UpdateLiquidation
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateMark:
		return "Mark"
	case UpdateStop:
		return "Stop"
	case UpdateLiquidation:
		return "Liquidation"
	default:
		return "Unknown"
	}
}

// Update is the result of Broker.UpdatePrice.
type Update struct {
	Kind     UpdateKind
	Snapshot Snapshot // state of the ticking symbol after the update

	// StopOrderID and StopOrder are set when Kind is UpdateStop.
	StopOrderID string
	StopOrder   StopOrder

	// Liquidated lists the symbols force-closed when Kind is
	// UpdateLiquidation, in the order they were closed.
	Liquidated []string
}
