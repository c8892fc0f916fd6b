package backtest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/signaltrader/internal/id"
	"github.com/rustyeddy/signaltrader/journal"
	"github.com/rustyeddy/signaltrader/market"
	"github.com/rustyeddy/signaltrader/perf"
	"github.com/rustyeddy/signaltrader/sim"
)

// Runner drives one backtest: simulate, analyze, then journal.
type Runner struct {
	Config   sim.Config
	Analyzer *perf.Analyzer
	Journal  journal.Journal // optional
	Logger   *zap.Logger     // optional
	Dataset  string          // recorded with the run, e.g. the CSV path

	// Now stamps BacktestRun.Created; time.Now when nil.
	Now func() time.Time
}

// Result bundles everything one run produced.
type Result struct {
	RunID  string
	Sim    *sim.Result
	Report perf.Report
	Run    journal.BacktestRun
}

// TradeID returns the journal id of the i-th trade in r.Sim.Trades.
func (r *Result) TradeID(i int) string {
	return id.Trade(r.RunID, r.Sim.Trades[i].Seq)
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) analyzer() (*perf.Analyzer, error) {
	if r.Analyzer != nil {
		return r.Analyzer, nil
	}
	return perf.NewAnalyzer(perf.DefaultConfig())
}

// Run backtests a single series.
func (r *Runner) Run(ctx context.Context, s *market.Series) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	eng, err := sim.NewEngine(r.Config)
	if err != nil {
		return nil, err
	}
	res, err := eng.Run(s)
	if err != nil {
		return nil, fmt.Errorf("simulate %s: %w", s.Symbol, err)
	}
	return r.finish(ctx, s.Symbol, s.Len(), s.Start(), s.End(), res)
}

// RunPortfolio backtests several symbols against one shared account.
func (r *Runner) RunPortfolio(ctx context.Context, series ...*market.Series) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := sim.NewPortfolio(r.Config)
	if err != nil {
		return nil, err
	}
	res, err := p.Run(series...)
	if err != nil {
		return nil, fmt.Errorf("simulate portfolio: %w", err)
	}

	var (
		names      []string
		start, end time.Time
	)
	for _, s := range series {
		names = append(names, s.Symbol)
		if s.Len() == 0 {
			continue
		}
		if start.IsZero() || s.Start().Before(start) {
			start = s.Start()
		}
		if s.End().After(end) {
			end = s.End()
		}
	}
	return r.finish(ctx, strings.Join(names, ","), len(res.Equity), start, end, res)
}

func (r *Runner) finish(ctx context.Context, symbol string, bars int, start, end time.Time, res *sim.Result) (*Result, error) {
	an, err := r.analyzer()
	if err != nil {
		return nil, err
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	out := &Result{
		RunID:  id.New(),
		Sim:    res,
		Report: an.Analyze(res.EquityValues(), res.PnLs()),
	}
	out.Run = Summarize(out.RunID, symbol, r.Dataset, r.Config, res, out.Report)
	out.Run.Created = now().UTC()
	out.Run.Bars = bars
	out.Run.Start, out.Run.End = start, end

	log := r.logger().With(zap.String("run_id", out.RunID), zap.String("symbol", symbol))
	for _, sk := range res.Skips {
		log.Debug("signal skipped",
			zap.Int("bar", sk.Index),
			zap.Time("time", sk.Time),
			zap.String("signal", sk.Signal.String()),
			zap.String("reason", string(sk.Reason)),
		)
	}

	if r.Journal != nil {
		if err := record(ctx, r.Journal, out); err != nil {
			return nil, fmt.Errorf("journal run %s: %w", out.RunID, err)
		}
	}

	log.Info("backtest complete",
		zap.Int("bars", bars),
		zap.Int("trades", len(res.Trades)),
		zap.Int("skipped", len(res.Skips)),
		zap.Float64("final_equity", res.FinalEquity),
		zap.Float64("return_pct", out.Run.ReturnPct),
	)
	return out, nil
}

func record(ctx context.Context, j journal.Journal, out *Result) error {
	for i, t := range out.Sim.Trades {
		if err := j.RecordTrade(journal.TradeFromSim(out.RunID, out.TradeID(i), t)); err != nil {
			return err
		}
	}
	for _, p := range out.Sim.Equity {
		if err := j.RecordEquity(journal.EquitySnapshot{RunID: out.RunID, Time: p.Time, Equity: p.Equity}); err != nil {
			return err
		}
	}
	if rr, ok := j.(journal.RunRecorder); ok {
		if err := rr.RecordBacktest(ctx, out.Run); err != nil {
			return err
		}
	}
	return nil
}
