package perf

// DrawdownStats summarises the equity curve's declines from its running peak.
type DrawdownStats struct {
	Max         float64 // most negative drawdown as a fraction, e.g. -0.2
	MaxDuration int     // longest run of bars below the running peak
	AvgDuration float64
	TotalBars   int // bars spent below the running peak
	Periods     int // number of distinct drawdown runs
}

// Drawdown measures declines relative to the running maximum of the equity
// curve, including its first point. Durations are counted in bars.
func Drawdown(equity []float64) DrawdownStats {
	var st DrawdownStats
	peak := 0.0
	run := 0
	started := false

	flush := func() {
		if run == 0 {
			return
		}
		st.Periods++
		st.TotalBars += run
		if run > st.MaxDuration {
			st.MaxDuration = run
		}
		run = 0
	}

	for _, v := range equity {
		if !finite(v) {
			continue
		}
		if !started || v > peak {
			peak, started = v, true
		}
		if v < peak {
			run++
			if peak > 0 {
				if dd := (v - peak) / peak; dd < st.Max {
					st.Max = dd
				}
			}
			continue
		}
		flush()
	}
	flush()

	if st.Periods > 0 {
		st.AvgDuration = float64(st.TotalBars) / float64(st.Periods)
	}
	return st
}

// DrawdownSeries returns the drawdown fraction at every point of equity.
// Non-finite points carry the previous value.
func DrawdownSeries(equity []float64) []float64 {
	out := make([]float64, len(equity))
	peak := 0.0
	prev := 0.0
	started := false
	for i, v := range equity {
		if !finite(v) {
			out[i] = prev
			continue
		}
		if !started || v > peak {
			peak, started = v, true
		}
		if peak > 0 {
			prev = (v - peak) / peak
		} else {
			prev = 0
		}
		out[i] = prev
	}
	return out
}
