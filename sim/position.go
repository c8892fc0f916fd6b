package sim

import (
	"time"

	"github.com/rustyeddy/signaltrader/market"
)

// pending is a signal waiting for the next bar's open.
type pending struct {
	side      market.Signal
	signalIdx int
	atr       float64 // signal-bar ATR
	refATR    float64 // 0 when dynamic sizing has no reference
}

// Position is an open trade. It lives only inside a single Run.
type Position struct {
	Side       market.Signal
	SignalIdx  int
	SignalTime time.Time
	EntryIdx   int
	EntryTime  time.Time
	EntryPrice float64
	Qty        float64
	Stop       float64
	Target     float64

	EquityAtEntry float64
}

func (p *Position) dir() float64 { return float64(p.Side) }

// brackets returns stop and target for an entry using the signal-bar ATR.
func brackets(side market.Signal, entry, atr, stopMult, targetMult float64) (stop, target float64) {
	d := float64(side)
	return entry - d*stopMult*atr, entry + d*targetMult*atr
}
