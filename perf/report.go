package perf

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Metric names in a Report.
const (
	KeyBars             = "bars"
	KeyTotalReturn      = "total_return_pct"
	KeyAnnualReturn     = "annual_return_pct"
	KeyCAGR             = "cagr_pct"
	KeyAnnualVolatility = "annual_volatility_pct"
	KeySharpe           = "sharpe_ratio"
	KeySortino          = "sortino_ratio"
	KeyCalmar           = "calmar_ratio"
	KeyMaxDrawdown      = "max_drawdown_pct"
	KeyMaxDDDuration    = "max_dd_duration_bars"
	KeyAvgDDDuration    = "avg_dd_duration_bars"
	KeyBarsInDrawdown   = "total_bars_in_dd"
	KeyRecoveryFactor   = "recovery_factor"
	KeyNumTrades        = "num_trades"
	KeyWinRate          = "win_rate"
	KeyProfitFactor     = "profit_factor"
	KeyAvgWin           = "avg_win"
	KeyAvgLoss          = "avg_loss"
	KeyWinLossRatio     = "win_loss_ratio"
	KeyExpectancy       = "expectancy"
	KeyNetPnL           = "net_pnl"
	KeyLargestWin       = "largest_win"
	KeyLargestLoss      = "largest_loss"
)

// VaRKey and CVaRKey name the tail metrics for a confidence, e.g. var_95_pct.
func VaRKey(confidence float64) string  { return "var_" + pctLabel(confidence) + "_pct" }
func CVaRKey(confidence float64) string { return "cvar_" + pctLabel(confidence) + "_pct" }

func pctLabel(c float64) string {
	return strconv.FormatFloat(math.Round(c*1e4)/1e2, 'f', -1, 64)
}

// Report is a flat metric map. Values are always finite; metrics that have
// no meaningful value for the input are listed in Undefined instead.
type Report struct {
	Metrics   map[string]float64 `json:"metrics"`
	Undefined []string           `json:"undefined,omitempty"`
}

func newReport() Report {
	return Report{Metrics: make(map[string]float64)}
}

func (r *Report) set(key string, v float64) {
	if !finite(v) {
		r.undefined(key)
		return
	}
	r.Metrics[key] = v
}

func (r *Report) undefined(key string) {
	delete(r.Metrics, key)
	r.Undefined = append(r.Undefined, key)
}

// Get returns a metric and whether it is defined.
func (r Report) Get(key string) (float64, bool) {
	v, ok := r.Metrics[key]
	return v, ok
}

// Keys returns the defined metric names in sorted order.
func (r Report) Keys() []string {
	keys := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Config parameterises the analyzer.
type Config struct {
	RiskFreeRate   float64   // annual, 0.02 = 2%
	PeriodsPerYear float64   // 252 for daily bars
	Confidences    []float64 // VaR/CVaR levels, e.g. 0.95 and 0.99
}

func DefaultConfig() Config {
	return Config{
		RiskFreeRate:   0.02,
		PeriodsPerYear: 252,
		Confidences:    []float64{0.95, 0.99},
	}
}

var ErrInvalidConfig = errors.New("invalid analyzer config")

func (c Config) Validate() error {
	if !finite(c.RiskFreeRate) {
		return fmt.Errorf("%w: risk_free_rate must be finite", ErrInvalidConfig)
	}
	if !finite(c.PeriodsPerYear) || c.PeriodsPerYear <= 0 {
		return fmt.Errorf("%w: periods_per_year must be positive, got %v", ErrInvalidConfig, c.PeriodsPerYear)
	}
	for _, cf := range c.Confidences {
		if !(cf > 0 && cf < 1) {
			return fmt.Errorf("%w: confidence %v not in (0, 1)", ErrInvalidConfig, cf)
		}
	}
	return nil
}

// Analyzer computes Reports. It holds no state besides its Config and is
// safe for concurrent use.
type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg}, nil
}

func (a *Analyzer) Config() Config { return a.cfg }

// Analyze reads equity and the optional trade PnLs without modifying them.
func (a *Analyzer) Analyze(equity, pnls []float64) Report {
	cfg := a.cfg
	rep := newReport()
	rets := Returns(equity)
	ppy := cfg.PeriodsPerYear

	rep.set(KeyBars, float64(len(equity)))
	rep.set(KeyTotalReturn, TotalReturn(equity)*100)
	rep.set(KeyAnnualReturn, AnnualReturn(rets, ppy)*100)
	rep.set(KeyCAGR, CAGR(equity, ppy)*100)
	rep.set(KeyAnnualVolatility, AnnualVolatility(rets, ppy)*100)

	dd := Drawdown(equity)
	rep.set(KeyMaxDrawdown, dd.Max*100)
	rep.set(KeyMaxDDDuration, float64(dd.MaxDuration))
	rep.set(KeyAvgDDDuration, dd.AvgDuration)
	rep.set(KeyBarsInDrawdown, float64(dd.TotalBars))

	rep.set(KeySharpe, Sharpe(rets, cfg.RiskFreeRate, ppy))
	if v, ok := Sortino(rets, cfg.RiskFreeRate, ppy); ok {
		rep.set(KeySortino, v)
	} else {
		rep.undefined(KeySortino)
	}
	rep.set(KeyCalmar, Calmar(rets, dd.Max, ppy))

	for _, c := range cfg.Confidences {
		rep.set(VaRKey(c), VaR(rets, c)*100)
		rep.set(CVaRKey(c), CVaR(rets, c)*100)
	}

	ts := Trades(pnls)
	rep.set(KeyNumTrades, float64(ts.Count))
	rep.set(KeyWinRate, ts.WinRate)
	rep.set(KeyProfitFactor, ts.ProfitFactor)
	rep.set(KeyAvgWin, ts.AvgWin)
	rep.set(KeyAvgLoss, ts.AvgLoss)
	rep.set(KeyExpectancy, ts.Expectancy)
	rep.set(KeyNetPnL, ts.NetPnL)
	rep.set(KeyLargestWin, ts.LargestWin)
	rep.set(KeyLargestLoss, ts.LargestLoss)
	if ts.WinLossRatioDefined {
		rep.set(KeyWinLossRatio, ts.WinLossRatio)
	} else {
		rep.undefined(KeyWinLossRatio)
	}
	if ts.RecoveryFactorDefined {
		rep.set(KeyRecoveryFactor, ts.RecoveryFactor)
	} else {
		rep.undefined(KeyRecoveryFactor)
	}

	sort.Strings(rep.Undefined)
	return rep
}

// Analyze is a convenience for a one-off analysis with cfg.
func Analyze(cfg Config, equity, pnls []float64) (Report, error) {
	a, err := NewAnalyzer(cfg)
	if err != nil {
		return Report{}, err
	}
	return a.Analyze(equity, pnls), nil
}
