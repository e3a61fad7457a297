package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatFillOrg renders a FillRecord as an Org-mode block. Structured facts
// go in a PROPERTIES drawer so they stay searchable.
func FormatFillOrg(f FillRecord) string {
	side := "BUY"
	if f.Qty < 0 {
		side = "SELL"
	}
	heading := fmt.Sprintf("** Fill: %s %s (%s)", side, f.Symbol, shortID(f.ID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":FILL_ID: %s\n", f.ID))
	b.WriteString(fmt.Sprintf(":RUN_ID: %s\n", f.RunID))
	b.WriteString(fmt.Sprintf(":SYMBOL: %s\n", f.Symbol))
	b.WriteString(fmt.Sprintf(":QTY: %g\n", f.Qty))
	b.WriteString(fmt.Sprintf(":PRICE: %.5f\n", f.Price))
	b.WriteString(fmt.Sprintf(":FEE: %.4f\n", f.Fee))
	b.WriteString(fmt.Sprintf(":SIZE_AFTER: %g\n", f.SizeAfter))
	b.WriteString(fmt.Sprintf(":PNL: %.2f\n", f.PnL))
	b.WriteString(fmt.Sprintf(":TIME: %s\n", f.Time.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf(":REASON: %s\n", f.Reason))
	b.WriteString(":END:\n")

	return b.String()
}

// FormatFillsOrg renders multiple fills separated by blank lines.
func FormatFillsOrg(fills []FillRecord) string {
	var b strings.Builder
	for i, f := range fills {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatFillOrg(f))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
