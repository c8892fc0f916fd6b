package sim

import (
	"time"

	"github.com/rustyeddy/signaltrader/market"
)

// ExitReason says which rule closed a trade.
type ExitReason string

const (
	ExitStop     ExitReason = "STOP"
	ExitTarget   ExitReason = "TARGET"
	ExitReversal ExitReason = "REVERSAL"
	ExitTimeout  ExitReason = "TIMEOUT"
)

// Trade is a closed position. Trades are appended to the log in the order
// they close and never change afterwards.
type Trade struct {
	Seq    int // 1-based position in the log
	Symbol string
	Side   market.Signal

	SignalIdx int
	EntryIdx  int
	ExitIdx   int

	SignalTime time.Time
	EntryTime  time.Time
	ExitTime   time.Time

	EntryPrice float64
	ExitPrice  float64
	Stop       float64
	Target     float64
	Qty        float64

	Cost    float64
	GrossPL float64
	PL      float64 // GrossPL - Cost
	PLPct   float64 // PL / equity at entry

	EquityAtEntry float64
	Reason        ExitReason
}

// Notional is the exposure taken at entry.
func (t Trade) Notional() float64 { return t.Qty * t.EntryPrice }

// Bars is the number of bars the position was held, counting the entry bar.
func (t Trade) Bars() int { return t.ExitIdx - t.EntryIdx + 1 }

// EquityPoint is one value of the equity curve. Equity only changes on bars
// where a trade closes; open positions are not marked to market.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}
