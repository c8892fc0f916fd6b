package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/signaltrader/backtest"
	"github.com/rustyeddy/signaltrader/journal"
	"github.com/rustyeddy/signaltrader/perf"
	"github.com/rustyeddy/signaltrader/sim"
)

// simFlags override single simulator settings from the command line.
type simFlags struct {
	stopATR      float64
	targetATR    float64
	risk         float64
	reversal     bool
	maxPositions int
}

func (f *simFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Float64Var(&f.stopATR, "stop-atr", 0, "stop distance in ATRs (overrides config)")
	fs.Float64Var(&f.targetATR, "target-atr", 0, "target distance in ATRs (overrides config)")
	fs.Float64Var(&f.risk, "risk", 0, "fraction of equity risked per trade, 0.01 = 1% (overrides config)")
	fs.BoolVar(&f.reversal, "exit-on-reversal", false, "close positions on an opposing signal (overrides config)")
	fs.IntVar(&f.maxPositions, "max-positions", 0, "cap on open plus pending positions, 0 = none (overrides config)")
}

func (f *simFlags) apply(cmd *cobra.Command, c sim.Config) (sim.Config, error) {
	fs := cmd.Flags()
	if fs.Changed("stop-atr") {
		c.StopATR = f.stopATR
	}
	if fs.Changed("target-atr") {
		c.TargetATR = f.targetATR
	}
	if fs.Changed("risk") {
		c.Sizing.RiskFraction = f.risk
	}
	if fs.Changed("exit-on-reversal") {
		c.ExitOnReversal = f.reversal
	}
	if fs.Changed("max-positions") {
		c.MaxPositions = f.maxPositions
	}
	return c, c.Validate()
}

type backtestOpts struct {
	src     sourceFlags
	sim     simFlags
	db      string
	org     string
	report  string
	metrics bool
}

func newBacktestCmd(a *app) *cobra.Command {
	o := &backtestOpts{}
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay signals against bars and report performance",
		Long: `Backtest replays the signal column of an annotated bar series.

A signal on bar t enters at the open of bar t+1 with stop and target
brackets sized from the signal bar's ATR. Several --csv files (or
--symbols) share one account and one equity curve.

Examples:
  trader backtest --csv data/spy.csv
  trader backtest --csv spy.csv,qqq.csv --stop-atr 1.5 --target-atr 3
  trader backtest --clickhouse --symbols SPY --start 2023-01-01 --db runs.sqlite`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBacktest(cmd, o)
		},
	}
	o.src.register(cmd)
	o.sim.register(cmd)
	fs := cmd.Flags()
	fs.StringVarP(&o.db, "db", "d", "", "record the run in this SQLite journal (overrides config)")
	fs.StringVar(&o.org, "org", "", "write an Org-mode summary to this file")
	fs.StringVar(&o.report, "report", "", "write the JSON metrics report to this file")
	fs.BoolVar(&o.metrics, "metrics", false, "print every metric")
	return cmd
}

func (a *app) runBacktest(cmd *cobra.Command, o *backtestOpts) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := a.cfg.SimConfig()
	if err != nil {
		return err
	}
	if cfg, err = o.sim.apply(cmd, cfg); err != nil {
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

	series, dataset, err := a.load(ctx, o.src)
	if err != nil {
		return err
	}

	j, err := a.openJournal(o.db)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	r := &backtest.Runner{
		Config:   cfg,
		Analyzer: an,
		Journal:  j,
		Logger:   a.logger,
		Dataset:  dataset,
	}
	var out *backtest.Result
	if len(series) == 1 {
		out, err = r.Run(ctx, series[0])
	} else {
		out, err = r.RunPortfolio(ctx, series...)
	}
	if err != nil {
		return err
	}

	orgPath := o.org
	if orgPath == "" {
		orgPath = a.cfg.Journal.OrgFile
	}
	if orgPath != "" {
		if err := writeOrg(orgPath, out); err != nil {
			return err
		}
		out.Run.OrgPath = orgPath
		if rr, ok := j.(journal.RunRecorder); ok {
			if err := rr.RecordBacktest(ctx, out.Run); err != nil {
				return err
			}
		}
	}

	reportPath := o.report
	if reportPath == "" {
		reportPath = a.cfg.Journal.ReportFile
	}
	if reportPath != "" {
		rep := journal.NewRunReport(out.Run, out.Report, backtest.SkipCounts(out.Sim))
		if err := journal.WriteJSON(reportPath, rep); err != nil {
			return err
		}
		a.logger.Debug("wrote report", zap.String("path", reportPath))
	}

	w := cmd.OutOrStdout()
	backtest.PrintBacktestRun(w, out.Run)
	backtest.PrintSkips(w, backtest.SkipCounts(out.Sim))
	if o.metrics {
		fmt.Fprintln(w)
		backtest.PrintReport(w, out.Report)
	}
	return nil
}

func writeOrg(path string, out *backtest.Result) error {
	run := out.Run
	run.OrgPath = path
	s, err := run.RenderOrg()
	if err != nil {
		return err
	}
	if len(out.Sim.Trades) > 0 {
		recs := make([]journal.TradeRecord, len(out.Sim.Trades))
		for i, t := range out.Sim.Trades {
			recs[i] = journal.TradeFromSim(out.RunID, out.TradeID(i), t)
		}
		s += "\n** Trades\n" + journal.FormatTradesOrg(recs) + "\n"
	}
	return os.WriteFile(path, []byte(s), 0644)
}
