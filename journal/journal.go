package journal

import (
	"context"
	"time"

	"github.com/rustyeddy/signaltrader/sim"
)

// TradeRecord is the persisted form of a closed simulated trade.
type TradeRecord struct {
	RunID   string
	TradeID string
	Symbol  string
	Side    string // LONG or SHORT

	Qty        float64
	EntryPrice float64
	ExitPrice  float64
	Stop       float64
	Target     float64
	OpenTime   time.Time
	CloseTime  time.Time
	Cost       float64
	RealizedPL float64
	PLPct      float64
	Reason     string
}

// EquitySnapshot is one point of a run's equity curve.
type EquitySnapshot struct {
	RunID  string
	Time   time.Time
	Equity float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// RunRecorder is implemented by journals that can also store run summaries.
type RunRecorder interface {
	RecordBacktest(ctx context.Context, run BacktestRun) error
}

// TradeFromSim converts a simulator trade. tradeID is usually
// id.Trade(runID, t.Seq).
func TradeFromSim(runID, tradeID string, t sim.Trade) TradeRecord {
	return TradeRecord{
		RunID:      runID,
		TradeID:    tradeID,
		Symbol:     t.Symbol,
		Side:       t.Side.String(),
		Qty:        t.Qty,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		Stop:       t.Stop,
		Target:     t.Target,
		OpenTime:   t.EntryTime,
		CloseTime:  t.ExitTime,
		Cost:       t.Cost,
		RealizedPL: t.PL,
		PLPct:      t.PLPct,
		Reason:     string(t.Reason),
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
