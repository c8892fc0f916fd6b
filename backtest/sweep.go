package backtest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/signaltrader/market"
	"github.com/rustyeddy/signaltrader/perf"
	"github.com/rustyeddy/signaltrader/sim"
)

// ErrEmptyGrid is returned when a sweep has nothing to run.
var ErrEmptyGrid = errors.New("backtest: empty sweep grid")

// Period restricts a sweep point to bars in [Start, End). Zero bounds are open.
type Period struct {
	Label string
	Start time.Time
	End   time.Time
}

// Grid is the cartesian product of bracket, risk and period choices.
// An empty dimension keeps the base config's value.
type Grid struct {
	StopATR      []float64
	TargetATR    []float64
	RiskFraction []float64
	Periods      []Period
}

// Params identifies one sweep point.
type Params struct {
	StopATR      float64
	TargetATR    float64
	RiskFraction float64
	Period       Period
}

func (p Params) String() string {
	s := fmt.Sprintf("stop=%g target=%g risk=%g", p.StopATR, p.TargetATR, p.RiskFraction)
	if p.Period.Label != "" {
		s += " period=" + p.Period.Label
	}
	return s
}

// Points expands the grid against base, in stop, target, risk, period order.
func (g Grid) Points(base sim.Config) []Params {
	or := func(v []float64, def float64) []float64 {
		if len(v) == 0 {
			return []float64{def}
		}
		return v
	}
	periods := g.Periods
	if len(periods) == 0 {
		periods = []Period{{}}
	}

	var out []Params
	for _, st := range or(g.StopATR, base.StopATR) {
		for _, tg := range or(g.TargetATR, base.TargetATR) {
			for _, rf := range or(g.RiskFraction, base.Sizing.RiskFraction) {
				for _, p := range periods {
					out = append(out, Params{StopATR: st, TargetATR: tg, RiskFraction: rf, Period: p})
				}
			}
		}
	}
	return out
}

func (p Params) apply(base sim.Config) sim.Config {
	c := base
	c.StopATR = p.StopATR
	c.TargetATR = p.TargetATR
	c.Sizing.RiskFraction = p.RiskFraction
	return c
}

// SweepResult is one finished grid point.
type SweepResult struct {
	Params Params
	Bars   int
	Sim    *sim.Result
	Report perf.Report
}

// Sweeper runs a grid of backtests over one series in parallel.
// Results are not journaled.
type Sweeper struct {
	Base     sim.Config
	Analyzer *perf.Analyzer
	Workers  int // <= 0 means GOMAXPROCS
	Logger   *zap.Logger
}

// Run evaluates every grid point. Results come back in Points order.
// The first failing point cancels the rest.
func (sw *Sweeper) Run(ctx context.Context, s *market.Series, g Grid) ([]SweepResult, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil series", market.ErrPrecondition)
	}
	points := g.Points(sw.Base)
	if len(points) == 0 {
		return nil, ErrEmptyGrid
	}
	cfgs := make([]sim.Config, len(points))
	for i, p := range points {
		cfgs[i] = p.apply(sw.Base)
		if err := cfgs[i].Validate(); err != nil {
			return nil, fmt.Errorf("sweep point %s: %w", p, err)
		}
	}

	an := sw.Analyzer
	if an == nil {
		var err error
		if an, err = perf.NewAnalyzer(perf.DefaultConfig()); err != nil {
			return nil, err
		}
	}
	log := sw.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := sw.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	log.Info("sweep started",
		zap.String("symbol", s.Symbol),
		zap.Int("points", len(points)),
		zap.Int("workers", workers),
	)
	started := time.Now()

	out := make([]SweepResult, len(points))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range points {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := points[i]
			series := s.Slice(p.Period.Start, p.Period.End)
			eng, err := sim.NewEngine(cfgs[i])
			if err != nil {
				return err
			}
			res, err := eng.Run(series)
			if err != nil {
				return fmt.Errorf("sweep point %s: %w", p, err)
			}
			out[i] = SweepResult{
				Params: p,
				Bars:   series.Len(),
				Sim:    res,
				Report: an.Analyze(res.EquityValues(), res.PnLs()),
			}
			log.Debug("sweep point done",
				zap.Stringer("params", p),
				zap.Int("trades", len(res.Trades)),
				zap.Float64("final_equity", res.FinalEquity),
			)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	log.Info("sweep complete", zap.Int("points", len(points)), zap.Duration("elapsed", time.Since(started)))
	return out, nil
}

// BestBy returns results ordered by a report metric, highest first.
// Points where the metric is undefined sort last. The input is not modified.
func BestBy(results []SweepResult, key string) []SweepResult {
	out := append([]SweepResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := out[i].Report.Get(key)
		b, bok := out[j].Report.Get(key)
		if aok != bok {
			return aok
		}
		return a > b
	})
	return out
}
