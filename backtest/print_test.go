package backtest

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/signaltrader/perf"
	"github.com/rustyeddy/signaltrader/sim"
)

func TestPrintBacktestRun(t *testing.T) {
	t.Parallel()

	out, err := (&Runner{Config: sim.DefaultConfig()}).Run(context.Background(), newSeries(t, "TEST", winningBars()))
	require.NoError(t, err)
	out.Run.Notes = []string{"single clean target"}
	out.Run.NextActions = []string{"widen the target"}

	var buf bytes.Buffer
	PrintBacktestRun(&buf, out.Run)
	s := buf.String()

	for _, want := range []string{
		"Backtest Result",
		"Run ID:        " + out.RunID,
		"Symbol:        TEST",
		"Bars:          10",
		"Risk per Trade: 1.00%",
		"Trades:        1",
		"Win Rate:      100.00%",
		"Start Balance: 100,000.00",
		"End Balance:   100,194.00",
		"Net P/L:       194.00",
		"- single clean target",
		"- [ ] widen the target",
	} {
		assert.Contains(t, s, want)
	}
	assert.NotContains(t, s, "Max Drawdown")
}

func TestPrintReport(t *testing.T) {
	t.Parallel()

	rep := perf.Report{
		Metrics:   map[string]float64{perf.KeyNetPnL: 1234.5, perf.KeyBars: 10},
		Undefined: []string{perf.KeySortino},
	}
	var buf bytes.Buffer
	PrintReport(&buf, rep)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[2], "bars"))
	assert.Contains(t, lines[3], "1,234.5000")
	assert.Contains(t, lines[4], "sortino_ratio")
	assert.Contains(t, lines[4], "undefined")
}

func TestPrintSweep(t *testing.T) {
	t.Parallel()

	sw := &Sweeper{Base: sim.DefaultConfig()}
	results, err := sw.Run(context.Background(), newSeries(t, "TEST", winningBars()), Grid{StopATR: []float64{1, 2}})
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintSweep(&buf, results)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "SHARPE")
	assert.Contains(t, lines[1], "100,194.00")
}

func TestPrintSkips(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintSkips(&buf, nil)
	assert.Empty(t, buf.String())

	PrintSkips(&buf, map[string]int{"SIZING": 2, "ATR_UNDEFINED": 1})
	s := buf.String()
	assert.Less(t, strings.Index(s, "ATR_UNDEFINED"), strings.Index(s, "SIZING"))
}
