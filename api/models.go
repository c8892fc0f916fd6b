package api

import (
	"math"
	"time"

	"github.com/rustyeddy/signaltrader/backtest"
	"github.com/rustyeddy/signaltrader/journal"
	"github.com/rustyeddy/signaltrader/market"
	"github.com/rustyeddy/signaltrader/perf"
	"github.com/rustyeddy/signaltrader/sim"
)

// BarJSON is one bar on the wire. Null prices and ATR decode as undefined.
type BarJSON struct {
	Time   time.Time `json:"time" binding:"required"`
	Open   *float64  `json:"open"`
	High   *float64  `json:"high"`
	Low    *float64  `json:"low"`
	Close  *float64  `json:"close"`
	Volume float64   `json:"volume"`
	ATR    *float64  `json:"atr"`
	Signal int       `json:"signal"`
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

type SeriesJSON struct {
	Symbol string    `json:"symbol" binding:"required"`
	Bars   []BarJSON `json:"bars" binding:"required"`
}

func (s SeriesJSON) series() (*market.Series, error) {
	bars := make([]market.Bar, len(s.Bars))
	for i, b := range s.Bars {
		bars[i] = market.Bar{
			Time:   b.Time,
			Open:   orNaN(b.Open),
			High:   orNaN(b.High),
			Low:    orNaN(b.Low),
			Close:  orNaN(b.Close),
			Volume: b.Volume,
			ATR:    orNaN(b.ATR),
			Signal: market.Signal(b.Signal),
		}
	}
	return market.NewSeries(s.Symbol, bars)
}

// Overrides replaces selected simulator settings. Nil fields keep the
// server's defaults.
type Overrides struct {
	StopATR        *float64 `json:"stop_atr"`
	TargetATR      *float64 `json:"target_atr"`
	InitialCapital *float64 `json:"initial_capital"`
	RiskFraction   *float64 `json:"risk_fraction"`
	Slippage       *float64 `json:"slippage"`
	Commission     *float64 `json:"commission"`
	ExitOnReversal *bool    `json:"exit_on_reversal"`
	MaxPositions   *int     `json:"max_positions"`
}

func (o *Overrides) apply(c sim.Config) sim.Config {
	if o == nil {
		return c
	}
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.StopATR, o.StopATR)
	set(&c.TargetATR, o.TargetATR)
	set(&c.InitialCapital, o.InitialCapital)
	set(&c.Sizing.RiskFraction, o.RiskFraction)
	set(&c.Cost.Slippage, o.Slippage)
	set(&c.Cost.Commission, o.Commission)
	if o.ExitOnReversal != nil {
		c.ExitOnReversal = *o.ExitOnReversal
	}
	if o.MaxPositions != nil {
		c.MaxPositions = *o.MaxPositions
	}
	return c
}

// BacktestRequest runs one series, or a shared-account portfolio when
// several are given.
type BacktestRequest struct {
	Series  []SeriesJSON `json:"series" binding:"required,min=1,dive"`
	Config  *Overrides   `json:"config"`
	Persist bool         `json:"persist"`
}

type TradeJSON struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	SignalIdx  int       `json:"signal_idx"`
	EntryIdx   int       `json:"entry_idx"`
	ExitIdx    int       `json:"exit_idx"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Stop       float64   `json:"stop"`
	Target     float64   `json:"target"`
	Qty        float64   `json:"qty"`
	Cost       float64   `json:"cost"`
	PL         float64   `json:"pl"`
	PLPct      float64   `json:"pl_pct"`
	Reason     string    `json:"reason"`
}

type EquityJSON struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

type SkipJSON struct {
	Symbol     string    `json:"symbol"`
	Index      int       `json:"index"`
	Time       time.Time `json:"time"`
	Signal     string    `json:"signal"`
	Reason     string    `json:"reason"`
	Violations []string  `json:"violations,omitempty"`
}

type RunJSON struct {
	RunID        string    `json:"run_id"`
	Created      time.Time `json:"created"`
	Symbol       string    `json:"symbol"`
	Strategy     string    `json:"strategy"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Bars         int       `json:"bars"`
	StopATR      float64   `json:"stop_atr"`
	TargetATR    float64   `json:"target_atr"`
	RiskFraction float64   `json:"risk_fraction"`
	Trades       int       `json:"trades"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Skipped      int       `json:"skipped"`
	StartBalance float64   `json:"start_balance"`
	EndBalance   float64   `json:"end_balance"`
	NetPL        float64   `json:"net_pl"`
	ReturnPct    float64   `json:"return_pct"`
	WinRate      float64   `json:"win_rate"`
	ProfitFactor float64   `json:"profit_factor"`
	MaxDDPct     float64   `json:"max_dd_pct"`
	Sharpe       float64   `json:"sharpe"`
}

func runJSON(r journal.BacktestRun) RunJSON {
	return RunJSON{
		RunID:        r.RunID,
		Created:      r.Created,
		Symbol:       r.Symbol,
		Strategy:     r.Strategy,
		Start:        r.Start,
		End:          r.End,
		Bars:         r.Bars,
		StopATR:      r.StopATR,
		TargetATR:    r.TargetATR,
		RiskFraction: r.RiskFraction,
		Trades:       r.Trades,
		Wins:         r.Wins,
		Losses:       r.Losses,
		Skipped:      r.Skipped,
		StartBalance: r.StartBalance,
		EndBalance:   r.EndBalance,
		NetPL:        r.NetPL,
		ReturnPct:    r.ReturnPct,
		WinRate:      r.WinRate,
		ProfitFactor: r.ProfitFactor,
		MaxDDPct:     r.MaxDDPct,
		Sharpe:       r.Sharpe,
	}
}

type BacktestResponse struct {
	Run    RunJSON      `json:"run"`
	Report perf.Report  `json:"report"`
	Trades []TradeJSON  `json:"trades"`
	Equity []EquityJSON `json:"equity"`
	Skips  []SkipJSON   `json:"skips"`
}

func backtestResponse(out *backtest.Result) BacktestResponse {
	resp := BacktestResponse{
		Run:    runJSON(out.Run),
		Report: out.Report,
		Trades: make([]TradeJSON, len(out.Sim.Trades)),
		Equity: make([]EquityJSON, len(out.Sim.Equity)),
		Skips:  make([]SkipJSON, len(out.Sim.Skips)),
	}
	for i, t := range out.Sim.Trades {
		resp.Trades[i] = TradeJSON{
			ID:         out.TradeID(i),
			Symbol:     t.Symbol,
			Side:       t.Side.String(),
			SignalIdx:  t.SignalIdx,
			EntryIdx:   t.EntryIdx,
			ExitIdx:    t.ExitIdx,
			EntryTime:  t.EntryTime,
			ExitTime:   t.ExitTime,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			Stop:       t.Stop,
			Target:     t.Target,
			Qty:        t.Qty,
			Cost:       t.Cost,
			PL:         t.PL,
			PLPct:      t.PLPct,
			Reason:     string(t.Reason),
		}
	}
	for i, p := range out.Sim.Equity {
		resp.Equity[i] = EquityJSON{Time: p.Time, Equity: p.Equity}
	}
	for i, s := range out.Sim.Skips {
		sk := SkipJSON{
			Symbol: s.Symbol,
			Index:  s.Index,
			Time:   s.Time,
			Signal: s.Signal.String(),
			Reason: string(s.Reason),
		}
		for _, v := range s.Violations {
			sk.Violations = append(sk.Violations, v.Code)
		}
		resp.Skips[i] = sk
	}
	return resp
}

// AnalyzeRequest computes metrics for an externally produced equity curve.
type AnalyzeRequest struct {
	Equity         []float64 `json:"equity" binding:"required"`
	PnLs           []float64 `json:"pnls"`
	RiskFreeRate   *float64  `json:"risk_free_rate"`
	PeriodsPerYear *float64  `json:"periods_per_year"`
	Confidences    []float64 `json:"confidences"`
}

func (r AnalyzeRequest) config(base perf.Config) perf.Config {
	if r.RiskFreeRate != nil {
		base.RiskFreeRate = *r.RiskFreeRate
	}
	if r.PeriodsPerYear != nil {
		base.PeriodsPerYear = *r.PeriodsPerYear
	}
	if len(r.Confidences) > 0 {
		base.Confidences = r.Confidences
	}
	return base
}

func tradesJSON(trades []journal.TradeRecord) []TradeJSON {
	out := make([]TradeJSON, len(trades))
	for i, t := range trades {
		out[i] = TradeJSON{
			ID:         t.TradeID,
			Symbol:     t.Symbol,
			Side:       t.Side,
			EntryTime:  t.OpenTime,
			ExitTime:   t.CloseTime,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			Stop:       t.Stop,
			Target:     t.Target,
			Qty:        t.Qty,
			Cost:       t.Cost,
			PL:         t.RealizedPL,
			PLPct:      t.PLPct,
			Reason:     t.Reason,
		}
	}
	return out
}

func equityJSON(pts []journal.EquitySnapshot) []EquityJSON {
	out := make([]EquityJSON, len(pts))
	for i, p := range pts {
		out[i] = EquityJSON{Time: p.Time, Equity: p.Equity}
	}
	return out
}
