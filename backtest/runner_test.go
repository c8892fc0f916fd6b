package backtest

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rustyeddy/signaltrader/internal/id"
	"github.com/rustyeddy/signaltrader/journal"
	"github.com/rustyeddy/signaltrader/market"
	"github.com/rustyeddy/signaltrader/perf"
	"github.com/rustyeddy/signaltrader/sim"
)

var t0 = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

func flatBars(n int, px float64) []market.Bar {
	bars := make([]market.Bar, n)
	for i := range bars {
		bars[i] = market.Bar{
			Time:  t0.Add(time.Duration(i) * time.Hour),
			Open:  px,
			High:  px,
			Low:   px,
			Close: px,
			ATR:   1,
		}
	}
	return bars
}

// winningBars has one long signal that hits its target for +194 after costs.
func winningBars() []market.Bar {
	bars := flatBars(10, 100)
	bars[2].Signal = market.Long
	bars[2].ATR = 2
	bars[4].Open, bars[4].High, bars[4].Low, bars[4].Close = 100, 103, 99, 102
	bars[5].Open, bars[5].High, bars[5].Low, bars[5].Close = 102, 105, 100, 104.5
	for i := 6; i < 10; i++ {
		bars[i].Open, bars[i].High, bars[i].Low, bars[i].Close = 104, 104, 104, 104
	}
	return bars
}

func newSeries(t *testing.T, symbol string, bars []market.Bar) *market.Series {
	t.Helper()
	s, err := market.NewSeries(symbol, bars)
	require.NoError(t, err)
	return s
}

func openJournal(t *testing.T) *journal.SQLite {
	t.Helper()
	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRunner_RunJournalsEverything(t *testing.T) {
	t.Parallel()

	j := openJournal(t)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &Runner{
		Config:  sim.DefaultConfig(),
		Journal: j,
		Dataset: "testdata/test.csv",
		Now:     func() time.Time { return created },
	}

	out, err := r.Run(context.Background(), newSeries(t, "TEST", winningBars()))
	require.NoError(t, err)

	assert.True(t, id.Valid(out.RunID))
	require.Len(t, out.Sim.Trades, 1)
	assert.InDelta(t, 100194.0, out.Sim.FinalEquity, 1e-9)

	run := out.Run
	assert.Equal(t, out.RunID, run.RunID)
	assert.Equal(t, created, run.Created)
	assert.Equal(t, "TEST", run.Symbol)
	assert.Equal(t, Strategy, run.Strategy)
	assert.Equal(t, "testdata/test.csv", run.Dataset)
	assert.Equal(t, 10, run.Bars)
	assert.Equal(t, t0, run.Start)
	assert.Equal(t, t0.Add(9*time.Hour), run.End)
	assert.Equal(t, 1, run.Trades)
	assert.Equal(t, 1, run.Wins)
	assert.InDelta(t, 194.0, run.NetPL, 1e-9)
	assert.InDelta(t, 0.194, run.ReturnPct, 1e-9)
	assert.InDelta(t, 2.0, run.RR, 1e-12)
	assert.InDelta(t, 1.0, run.WinRate, 1e-12)

	var p map[string]any
	require.NoError(t, json.Unmarshal(run.Config, &p))
	assert.Equal(t, 1.0, p["stop_atr"])
	assert.Equal(t, 2.0, p["target_atr"])

	ctx := context.Background()
	trades, err := j.ListTradesByRunID(ctx, out.RunID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, out.TradeID(0), trades[0].TradeID)
	assert.Equal(t, "TARGET", trades[0].Reason)
	assert.InDelta(t, 194.0, trades[0].RealizedPL, 1e-9)

	equity, err := j.ListEquityByRunID(ctx, out.RunID)
	require.NoError(t, err)
	assert.Len(t, equity, 10)

	stored, err := j.GetBacktestRun(ctx, out.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Trades)
	assert.InDelta(t, run.EndBalance, stored.EndBalance, 1e-9)
}

func TestRunner_NoJournal(t *testing.T) {
	t.Parallel()

	r := &Runner{Config: sim.DefaultConfig()}
	out, err := r.Run(context.Background(), newSeries(t, "TEST", flatBars(5, 100)))
	require.NoError(t, err)
	assert.Empty(t, out.Sim.Trades)
	assert.Equal(t, 0, out.Run.Trades)
	v, ok := out.Report.Get(perf.KeyTotalReturn)
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestRunner_Errors(t *testing.T) {
	t.Parallel()

	s := newSeries(t, "TEST", flatBars(5, 100))

	t.Run("canceled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := (&Runner{Config: sim.DefaultConfig()}).Run(ctx, s)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("bad config", func(t *testing.T) {
		t.Parallel()
		cfg := sim.DefaultConfig()
		cfg.StopATR = 0
		_, err := (&Runner{Config: cfg}).Run(context.Background(), s)
		require.ErrorIs(t, err, sim.ErrInvalidConfig)
	})

	t.Run("nil series", func(t *testing.T) {
		t.Parallel()
		_, err := (&Runner{Config: sim.DefaultConfig()}).RunPortfolio(context.Background(), nil)
		require.ErrorIs(t, err, market.ErrPrecondition)
	})
}

func TestRunner_LogsSkips(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	bars := flatBars(5, 100)
	bars[4].Signal = market.Long // no next bar

	r := &Runner{Config: sim.DefaultConfig(), Logger: zap.New(core)}
	out, err := r.Run(context.Background(), newSeries(t, "TEST", bars))
	require.NoError(t, err)
	assert.Equal(t, 1, out.Run.Skipped)
	assert.Equal(t, map[string]int{"NO_NEXT_BAR": 1}, SkipCounts(out.Sim))

	skipped := logs.FilterMessage("signal skipped").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "NO_NEXT_BAR", skipped[0].ContextMap()["reason"])

	done := logs.FilterMessage("backtest complete").All()
	require.Len(t, done, 1)
	assert.Equal(t, out.RunID, done[0].ContextMap()["run_id"])
}

func TestRunner_RunPortfolio(t *testing.T) {
	t.Parallel()

	a := newSeries(t, "AAA", winningBars())
	shifted := flatBars(6, 50)
	for i := range shifted {
		shifted[i].Time = shifted[i].Time.Add(30 * time.Minute)
	}
	b := newSeries(t, "BBB", shifted)

	out, err := (&Runner{Config: sim.DefaultConfig()}).RunPortfolio(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, "AAA,BBB", out.Run.Symbol)
	assert.Equal(t, 16, out.Run.Bars)
	assert.Equal(t, t0, out.Run.Start)
	assert.Equal(t, t0.Add(9*time.Hour), out.Run.End)
	assert.Len(t, out.Sim.Trades, 1)
}
