package sim

import (
	"sort"

	"github.com/rustyeddy/signaltrader/market"
)

// refATR is the median of the last window defined ATR values at or before
// index i. Only bars up to i are read. Returns 0 when none are defined.
func refATR(s *market.Series, i, window int) float64 {
	if window < 1 {
		return 0
	}
	vals := make([]float64, 0, window)
	for k := i; k >= 0 && len(vals) < window; k-- {
		if b := s.At(k); b.HasATR() {
			vals = append(vals, b.ATR)
		}
	}
	return median(vals)
}

func median(v []float64) float64 {
	n := len(v)
	if n == 0 {
		return 0
	}
	sort.Float64s(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}
