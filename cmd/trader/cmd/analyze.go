package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/signaltrader/backtest"
	"github.com/rustyeddy/signaltrader/journal"
	"github.com/rustyeddy/signaltrader/perf"
)

type analyzeOpts struct {
	equity string
	trades string
	run    string
	db     string
	out    string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	o := &analyzeOpts{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute performance metrics for an equity curve",
		Long: `Analyze computes return, risk and trade metrics for an equity curve
and optional trade PnLs. Input is either CSV files (as written by the
csv journal) or a run stored in a SQLite journal.

Examples:
  trader analyze --equity equity.csv --trades trades.csv
  trader analyze --db runs.sqlite --run 01HZY3...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, o)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&o.equity, "equity", "", "equity CSV (time,equity columns)")
	fs.StringVar(&o.trades, "trades", "", "trades CSV (realized_pl column)")
	fs.StringVar(&o.run, "run", "", "run id to load from the SQLite journal")
	fs.StringVarP(&o.db, "db", "d", "", "SQLite journal (overrides config)")
	fs.StringVarP(&o.out, "output", "o", "", "also write the report as JSON to this file")
	return cmd
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()
	return read(f)
}

func (a *app) runAnalyze(cmd *cobra.Command, o *analyzeOpts) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pc, err := a.cfg.AnalyzerConfig()
	if err != nil {
		return err
	}

	var (
		equity []float64
		pnls   []float64
	)
	switch {
	case o.run != "" && o.equity != "":
		return fmt.Errorf("use either --run or --equity, not both")
	case o.run != "":
		j, err := a.openSQLite(o.db)
		if err != nil {
			return err
		}
		defer j.Close()
		if equity, pnls, err = loadRun(ctx, j, o.run); err != nil {
			return err
		}
	case o.equity != "":
		snaps, err := readFile(o.equity, journal.ReadEquityCSV)
		if err != nil {
			return fmt.Errorf("equity: %w", err)
		}
		for _, s := range snaps {
			equity = append(equity, s.Equity)
		}
		if o.trades != "" {
			pnls, err = readFile(o.trades, journal.ReadTradePnLsCSV)
			if err != nil {
				return fmt.Errorf("trades: %w", err)
			}
		}
	default:
		return fmt.Errorf("nothing to analyze: pass --equity or --run")
	}

	rep, err := perf.Analyze(pc, equity, pnls)
	if err != nil {
		return err
	}
	if o.out != "" {
		if err := journal.WriteJSON(o.out, rep); err != nil {
			return err
		}
	}
	backtest.PrintReport(cmd.OutOrStdout(), rep)
	return nil
}

func loadRun(ctx context.Context, j *journal.SQLite, runID string) (equity, pnls []float64, err error) {
	if _, err := j.GetBacktestRun(ctx, runID); err != nil {
		return nil, nil, err
	}
	snaps, err := j.ListEquityByRunID(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range snaps {
		equity = append(equity, s.Equity)
	}
	trades, err := j.ListTradesByRunID(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	for _, t := range trades {
		pnls = append(pnls, t.RealizedPL)
	}
	return equity, pnls, nil
}
