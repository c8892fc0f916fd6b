package perf

import (
	"math"
	"sort"
)

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Returns computes simple per-bar returns e[i]/e[i-1] - 1. Steps from a
// non-positive or non-finite value are dropped, so the result may be
// shorter than len(equity)-1 but never contains NaN or Inf.
func Returns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev, cur := equity[i-1], equity[i]
		if !finite(prev) || prev <= 0 || !finite(cur) {
			continue
		}
		out = append(out, cur/prev-1)
	}
	return out
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range x {
		s += v
	}
	return s / float64(len(x))
}

// stdev is the sample (n-1) standard deviation; 0 for fewer than two values.
func stdev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	m := mean(x)
	ss := 0.0
	for _, v := range x {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(x)-1))
}

// Percentile returns the p-th percentile (0..100) of x with linear
// interpolation between closest ranks. x is not modified.
func Percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return 0
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)

	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(len(s)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	return s[lo] + (s[hi]-s[lo])*(rank-float64(lo))
}
