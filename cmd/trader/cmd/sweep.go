package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/signaltrader/backtest"
	"github.com/rustyeddy/signaltrader/config"
	"github.com/rustyeddy/signaltrader/perf"
)

type sweepOpts struct {
	src       sourceFlags
	workers   int
	stopATR   []float64
	targetATR []float64
	risk      []float64
	sortBy    string
	top       int
}

func newSweepCmd(a *app) *cobra.Command {
	o := &sweepOpts{}
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a grid of backtests over one series",
		Long: `Sweep backtests every combination of stop, target, risk fraction and
period from the config's sweep section (or the flags below) in parallel.
Results are not journaled.

Example:
  trader sweep --csv data/spy.csv --stop-atr 1,1.5,2 --target-atr 2,3 --sort sharpe_ratio`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSweep(cmd, o)
		},
	}
	o.src.register(cmd)
	fs := cmd.Flags()
	fs.IntVarP(&o.workers, "workers", "w", 0, "parallel backtests (overrides config; 0 = all CPUs)")
	fs.Float64SliceVar(&o.stopATR, "stop-atr", nil, "stop multiples to try (overrides config)")
	fs.Float64SliceVar(&o.targetATR, "target-atr", nil, "target multiples to try (overrides config)")
	fs.Float64SliceVar(&o.risk, "risk", nil, "risk fractions to try (overrides config)")
	fs.StringVar(&o.sortBy, "sort", "", "order results by this metric, best first (e.g. sharpe_ratio)")
	fs.IntVar(&o.top, "top", 0, "print only the first N results")
	return cmd
}

func gridFromConfig(sc config.SweepConfig) (backtest.Grid, error) {
	g := backtest.Grid{
		StopATR:      sc.StopATR,
		TargetATR:    sc.TargetATR,
		RiskFraction: sc.RiskFraction,
	}
	for _, p := range sc.Periods {
		start, end, err := p.Bounds()
		if err != nil {
			return g, err
		}
		g.Periods = append(g.Periods, backtest.Period{Label: p.Label, Start: start, End: end})
	}
	return g, nil
}

func (a *app) runSweep(cmd *cobra.Command, o *sweepOpts) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	base, err := a.cfg.SimConfig()
	if err != nil {
		return err
	}
	pc, err := a.cfg.AnalyzerConfig()
	if err != nil {
		return err
	}
	an, err := perf.NewAnalyzer(pc)
	if err != nil {
		return err
	}
	grid, err := gridFromConfig(a.cfg.Sweep)
	if err != nil {
		return err
	}
	fs := cmd.Flags()
	if fs.Changed("stop-atr") {
		grid.StopATR = o.stopATR
	}
	if fs.Changed("target-atr") {
		grid.TargetATR = o.targetATR
	}
	if fs.Changed("risk") {
		grid.RiskFraction = o.risk
	}
	workers := a.cfg.Sweep.Workers
	if fs.Changed("workers") {
		workers = o.workers
	}

	series, _, err := a.load(ctx, o.src)
	if err != nil {
		return err
	}
	if len(series) != 1 {
		return fmt.Errorf("sweep runs over exactly one series, got %d", len(series))
	}

	sw := &backtest.Sweeper{Base: base, Analyzer: an, Workers: workers, Logger: a.logger}
	results, err := sw.Run(ctx, series[0], grid)
	if err != nil {
		return err
	}
	if o.sortBy != "" {
		results = backtest.BestBy(results, o.sortBy)
	}
	if o.top > 0 && o.top < len(results) {
		results = results[:o.top]
	}
	backtest.PrintSweep(cmd.OutOrStdout(), results)
	return nil
}
