package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/signaltrader/perf"
	"github.com/rustyeddy/signaltrader/sim"
)

func TestGrid_Points(t *testing.T) {
	t.Parallel()

	base := sim.DefaultConfig()

	tests := []struct {
		name string
		grid Grid
		want int
	}{
		{"empty keeps base", Grid{}, 1},
		{"stops only", Grid{StopATR: []float64{0.5, 1, 2}}, 3},
		{"full product", Grid{
			StopATR:      []float64{1, 2},
			TargetATR:    []float64{1, 2, 3},
			RiskFraction: []float64{0.005, 0.01},
			Periods:      []Period{{Label: "a"}, {Label: "b"}},
		}, 24},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Len(t, tt.grid.Points(base), tt.want)
		})
	}

	pts := Grid{}.Points(base)
	assert.Equal(t, Params{StopATR: 1, TargetATR: 2, RiskFraction: 0.01}, pts[0])

	pts = Grid{StopATR: []float64{1, 2}, TargetATR: []float64{3, 4}}.Points(base)
	assert.Equal(t, 1.0, pts[0].StopATR)
	assert.Equal(t, 3.0, pts[0].TargetATR)
	assert.Equal(t, 1.0, pts[1].StopATR)
	assert.Equal(t, 4.0, pts[1].TargetATR)
	assert.Equal(t, 2.0, pts[2].StopATR)
}

func TestSweeper_Run(t *testing.T) {
	t.Parallel()

	s := newSeries(t, "TEST", winningBars())
	sw := &Sweeper{Base: sim.DefaultConfig(), Workers: 2}
	grid := Grid{
		StopATR:   []float64{1, 2},
		TargetATR: []float64{2, 10},
	}

	results, err := sw.Run(context.Background(), s, grid)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, p := range grid.Points(sw.Base) {
		assert.Equal(t, p, results[i].Params)
		assert.Equal(t, 10, results[i].Bars)
	}

	// stop 1 x target 2 is the baseline winner; target 10 never fills and times out.
	assert.Equal(t, sim.ExitTarget, results[0].Sim.Trades[0].Reason)
	assert.Equal(t, sim.ExitTimeout, results[1].Sim.Trades[0].Reason)

	// Running the same point alone gives the same answer.
	eng, err := sim.NewEngine(sw.Base)
	require.NoError(t, err)
	single, err := eng.Run(s)
	require.NoError(t, err)
	assert.Equal(t, single.FinalEquity, results[0].Sim.FinalEquity)
}

func TestSweeper_Periods(t *testing.T) {
	t.Parallel()

	s := newSeries(t, "TEST", winningBars())
	sw := &Sweeper{Base: sim.DefaultConfig()}
	grid := Grid{Periods: []Period{
		{Label: "all"},
		{Label: "late", Start: t0.Add(6 * time.Hour)},
	}}

	results, err := sw.Run(context.Background(), s, grid)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 10, results[0].Bars)
	assert.Len(t, results[0].Sim.Trades, 1)
	assert.Equal(t, 4, results[1].Bars)
	assert.Empty(t, results[1].Sim.Trades)
}

func TestSweeper_Errors(t *testing.T) {
	t.Parallel()

	s := newSeries(t, "TEST", flatBars(5, 100))

	t.Run("invalid point", func(t *testing.T) {
		t.Parallel()
		sw := &Sweeper{Base: sim.DefaultConfig()}
		_, err := sw.Run(context.Background(), s, Grid{StopATR: []float64{1, -1}})
		require.ErrorIs(t, err, sim.ErrInvalidConfig)
	})

	t.Run("canceled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sw := &Sweeper{Base: sim.DefaultConfig(), Workers: 1}
		_, err := sw.Run(ctx, s, Grid{StopATR: []float64{1, 2}})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestBestBy(t *testing.T) {
	t.Parallel()

	mk := func(stop float64, sharpe *float64) SweepResult {
		rep := perf.Report{Metrics: map[string]float64{}}
		if sharpe != nil {
			rep.Metrics[perf.KeySharpe] = *sharpe
		} else {
			rep.Undefined = []string{perf.KeySharpe}
		}
		return SweepResult{Params: Params{StopATR: stop}, Report: rep}
	}
	f := func(v float64) *float64 { return &v }

	in := []SweepResult{mk(1, f(0.5)), mk(2, nil), mk(3, f(1.5)), mk(4, f(-1))}
	got := BestBy(in, perf.KeySharpe)

	var stops []float64
	for _, r := range got {
		stops = append(stops, r.Params.StopATR)
	}
	assert.Equal(t, []float64{3, 1, 4, 2}, stops)
	assert.Equal(t, 1.0, in[0].Params.StopATR)
}
