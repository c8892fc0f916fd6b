package sim

import (
	"time"

	"github.com/rustyeddy/signaltrader/market"
	"github.com/rustyeddy/signaltrader/risk"
)

// SkipReason classifies a non-flat signal that did not become a trade.
type SkipReason string

const (
	SkipNoNextBar     SkipReason = "NO_NEXT_BAR"
	SkipATRUndefined  SkipReason = "ATR_UNDEFINED"
	SkipBadPrice      SkipReason = "BAD_PRICE"       // non-finite close on the signal bar
	SkipBadEntryPrice SkipReason = "BAD_ENTRY_PRICE" // next bar's open unusable
	SkipSizing        SkipReason = "SIZING"
	SkipMaxPositions  SkipReason = "MAX_POSITIONS"
)

// Skip records a dropped signal. Skips are recoverable: the run continues.
type Skip struct {
	Symbol     string
	Index      int // signal bar
	Time       time.Time
	Signal     market.Signal
	Reason     SkipReason
	Violations []risk.Violation // set for SkipSizing
}
