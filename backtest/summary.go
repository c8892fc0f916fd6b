package backtest

import (
	"encoding/json"
	"sort"

	"github.com/rustyeddy/signaltrader/journal"
	"github.com/rustyeddy/signaltrader/perf"
	"github.com/rustyeddy/signaltrader/sim"
)

// Strategy is recorded on every run: entries come from an upstream signal column.
const Strategy = "signal"

// params is the JSON form of sim.Config stored with each run.
type params struct {
	StopATR                 float64 `json:"stop_atr"`
	TargetATR               float64 `json:"target_atr"`
	InitialCapital          float64 `json:"initial_capital"`
	Slippage                float64 `json:"slippage"`
	Commission              float64 `json:"commission"`
	RiskFraction            float64 `json:"risk_fraction"`
	MaxNotionalFraction     float64 `json:"max_notional_fraction"`
	MinQty                  float64 `json:"min_qty"`
	MaxQty                  float64 `json:"max_qty"`
	MinStopDistanceFraction float64 `json:"min_stop_distance_fraction"`
	MaxAbsoluteNotional     float64 `json:"max_absolute_notional"`
	DynamicNotional         bool    `json:"dynamic_notional"`
	BaseNotionalFraction    float64 `json:"base_notional_fraction"`
	DynamicWindow           int     `json:"dynamic_window"`
	ExitOnReversal          bool    `json:"exit_on_reversal"`
	MaxPositions            int     `json:"max_positions"`
}

func configJSON(c sim.Config) []byte {
	b, _ := json.Marshal(params{
		StopATR:                 c.StopATR,
		TargetATR:               c.TargetATR,
		InitialCapital:          c.InitialCapital,
		Slippage:                c.Cost.Slippage,
		Commission:              c.Cost.Commission,
		RiskFraction:            c.Sizing.RiskFraction,
		MaxNotionalFraction:     c.Sizing.MaxNotionalFraction,
		MinQty:                  c.Sizing.MinQty,
		MaxQty:                  c.Sizing.MaxQty,
		MinStopDistanceFraction: c.Sizing.MinStopDistanceFraction,
		MaxAbsoluteNotional:     c.Sizing.MaxAbsoluteNotional,
		DynamicNotional:         c.Sizing.DynamicNotional,
		BaseNotionalFraction:    c.Sizing.BaseNotionalFraction,
		DynamicWindow:           c.DynamicWindow,
		ExitOnReversal:          c.ExitOnReversal,
		MaxPositions:            c.MaxPositions,
	})
	return b
}

// Summarize builds the run record from a simulation and its report.
// Times and bar counts are left for the caller.
func Summarize(runID, symbol, dataset string, cfg sim.Config, res *sim.Result, rep perf.Report) journal.BacktestRun {
	ts := perf.Trades(res.PnLs())
	run := journal.BacktestRun{
		RunID:        runID,
		Dataset:      dataset,
		Symbol:       symbol,
		Strategy:     Strategy,
		Config:       configJSON(cfg),
		StopATR:      cfg.StopATR,
		TargetATR:    cfg.TargetATR,
		RiskFraction: cfg.Sizing.RiskFraction,
		Trades:       ts.Count,
		Wins:         ts.Wins,
		Losses:       ts.Losses,
		Skipped:      len(res.Skips),
		StartBalance: res.InitialCapital,
		EndBalance:   res.FinalEquity,
		NetPL:        res.FinalEquity - res.InitialCapital,
		WinRate:      ts.WinRate,
		ProfitFactor: ts.ProfitFactor,
	}
	if cfg.StopATR != 0 {
		run.RR = cfg.TargetATR / cfg.StopATR
	}
	if res.InitialCapital != 0 {
		run.ReturnPct = run.NetPL / res.InitialCapital * 100
	}
	run.MaxDDPct, _ = rep.Get(perf.KeyMaxDrawdown)
	run.Sharpe, _ = rep.Get(perf.KeySharpe)
	return run
}

// SkipCounts tallies skipped signals by reason.
func SkipCounts(res *sim.Result) map[string]int {
	if len(res.Skips) == 0 {
		return nil
	}
	out := make(map[string]int)
	for _, s := range res.Skips {
		out[string(s.Reason)]++
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
