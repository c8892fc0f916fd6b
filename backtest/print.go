package backtest

import (
	"fmt"
	"io"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rustyeddy/signaltrader/journal"
	"github.com/rustyeddy/signaltrader/perf"
)

const rule = "--------------------------------------------------"

func newPrinter() *message.Printer { return message.NewPrinter(language.English) }

func section(p *message.Printer, w io.Writer, title string) {
	p.Fprintln(w)
	p.Fprintln(w, title)
	p.Fprintln(w, rule)
}

// PrintBacktestRun writes a human readable run summary.
func PrintBacktestRun(w io.Writer, r journal.BacktestRun) {
	p := newPrinter()
	p.Fprintln(w, "==================================================")
	p.Fprintln(w, " Backtest Result")
	p.Fprintln(w, "==================================================")

	p.Fprintf(w, "Run ID:        %s\n", r.RunID)
	p.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	p.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	p.Fprintf(w, "Symbol:        %s\n", r.Symbol)
	if r.Dataset != "" {
		p.Fprintf(w, "Dataset:       %s\n", r.Dataset)
	}

	section(p, w, "Period")
	p.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	p.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	p.Fprintf(w, "Bars:          %d\n", r.Bars)

	section(p, w, "Strategy Configuration")
	p.Fprintf(w, "Risk per Trade: %.2f%%\n", r.RiskFraction*100)
	p.Fprintf(w, "Stop:          %.2f ATR\n", r.StopATR)
	p.Fprintf(w, "Target:        %.2f ATR\n", r.TargetATR)
	p.Fprintf(w, "Risk/Reward:   %.2f\n", r.RR)

	section(p, w, "Trade Statistics")
	p.Fprintf(w, "Trades:        %d\n", r.Trades)
	p.Fprintf(w, "Wins:          %d\n", r.Wins)
	p.Fprintf(w, "Losses:        %d\n", r.Losses)
	p.Fprintf(w, "Skipped:       %d\n", r.Skipped)
	p.Fprintf(w, "Win Rate:      %.2f%%\n", r.WinRate*100)

	section(p, w, "Account Performance")
	p.Fprintf(w, "Start Balance: %.2f\n", r.StartBalance)
	p.Fprintf(w, "End Balance:   %.2f\n", r.EndBalance)
	p.Fprintf(w, "Net P/L:       %.2f\n", r.NetPL)
	p.Fprintf(w, "Return:        %.2f%%\n", r.ReturnPct)
	if r.ProfitFactor > 0 {
		p.Fprintf(w, "Profit Factor: %.2f\n", r.ProfitFactor)
	}
	if r.MaxDDPct < 0 {
		p.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.MaxDDPct)
	}
	p.Fprintf(w, "Sharpe:        %.2f\n", r.Sharpe)

	if r.OrgPath != "" {
		p.Fprintln(w)
		p.Fprintf(w, "Org Report:    %s\n", r.OrgPath)
	}

	if len(r.Notes) > 0 {
		section(p, w, "Observations")
		for _, note := range r.Notes {
			p.Fprintf(w, "- %s\n", note)
		}
	}
	if len(r.NextActions) > 0 {
		section(p, w, "Next Actions")
		for _, action := range r.NextActions {
			p.Fprintf(w, "- [ ] %s\n", action)
		}
	}
	p.Fprintln(w)
}

// PrintReport writes every metric, then the undefined ones.
func PrintReport(w io.Writer, rep perf.Report) {
	p := newPrinter()
	p.Fprintln(w, "Metrics")
	p.Fprintln(w, rule)
	for _, k := range rep.Keys() {
		v, _ := rep.Get(k)
		p.Fprintf(w, "%-24s %.4f\n", k, v)
	}
	for _, k := range rep.Undefined {
		p.Fprintf(w, "%-24s undefined\n", k)
	}
}

// PrintSkips writes skip counts by reason.
func PrintSkips(w io.Writer, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	p := newPrinter()
	section(p, w, "Skipped Signals")
	for _, k := range sortedKeys(counts) {
		p.Fprintf(w, "%-16s %d\n", k, counts[k])
	}
}

// PrintSweep writes one row per sweep point.
func PrintSweep(w io.Writer, results []SweepResult) {
	p := newPrinter()
	p.Fprintf(w, "%-8s %-8s %-8s %-12s %7s %14s %10s %10s %8s\n",
		"STOP", "TARGET", "RISK", "PERIOD", "TRADES", "FINAL", "RETURN%", "MAXDD%", "SHARPE")
	for _, r := range results {
		label := r.Params.Period.Label
		if label == "" {
			label = "-"
		}
		p.Fprintf(w, "%-8.2f %-8.2f %-8.4f %-12s %7d %14.2f %10s %10s %8s\n",
			r.Params.StopATR, r.Params.TargetATR, r.Params.RiskFraction, label,
			len(r.Sim.Trades), r.Sim.FinalEquity,
			metric(r.Report, perf.KeyTotalReturn),
			metric(r.Report, perf.KeyMaxDrawdown),
			metric(r.Report, perf.KeySharpe),
		)
	}
}

func metric(rep perf.Report, key string) string {
	v, ok := rep.Get(key)
	if !ok || math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
