package sim

import "strconv"

// stopIDs mints stop-order ids for a broker. Ids are unique across all
// symbols of the broker and are never reused, even after a cancel.
type stopIDs struct {
	n uint64
}

func (g *stopIDs) next() string {
	g.n++
	return "stop_" + strconv.FormatUint(g.n, 10)
}
