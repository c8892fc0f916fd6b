package perf

import "math"

// Annualized volatility at or below this is treated as zero.
const volEpsilon = 1e-12

// VaR is the (1-confidence) percentile of returns: the loss threshold
// exceeded in the worst (1-confidence) share of periods. Usually negative.
func VaR(returns []float64, confidence float64) float64 {
	return Percentile(returns, (1-confidence)*100)
}

// CVaR is the mean of the returns at or below VaR. It is never greater
// than VaR for the same confidence.
func CVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	v := VaR(returns, confidence)
	sum, n := 0.0, 0
	for _, r := range returns {
		if r <= v {
			sum += r
			n++
		}
	}
	if n == 0 {
		return v
	}
	return sum / float64(n)
}

// AnnualReturn is the mean per-period return scaled by periods per year.
func AnnualReturn(returns []float64, periodsPerYear float64) float64 {
	return mean(returns) * periodsPerYear
}

// AnnualVolatility is the sample standard deviation scaled by sqrt(periods).
func AnnualVolatility(returns []float64, periodsPerYear float64) float64 {
	return stdev(returns) * math.Sqrt(periodsPerYear)
}

// Sharpe returns (annual return - rf) / annual volatility, or 0 when the
// volatility is zero.
func Sharpe(returns []float64, rf, periodsPerYear float64) float64 {
	vol := AnnualVolatility(returns, periodsPerYear)
	if vol <= volEpsilon {
		return 0
	}
	return (AnnualReturn(returns, periodsPerYear) - rf) / vol
}

// Sortino is Sharpe with only the negative returns in the denominator.
// With no negative returns and a positive excess return the ratio is
// unbounded: ok is false and the value must not be used.
func Sortino(returns []float64, rf, periodsPerYear float64) (ratio float64, ok bool) {
	excess := AnnualReturn(returns, periodsPerYear) - rf

	var down []float64
	for _, r := range returns {
		if r < 0 {
			down = append(down, r)
		}
	}
	if len(down) == 0 {
		if excess > 0 {
			return 0, false
		}
		return 0, true
	}

	dd := stdev(down) * math.Sqrt(periodsPerYear)
	if dd <= volEpsilon {
		return 0, true
	}
	return excess / dd, true
}

// Calmar is annual return over the magnitude of the max drawdown (both as
// fractions). Zero when there was no drawdown.
func Calmar(returns []float64, maxDrawdown, periodsPerYear float64) float64 {
	if maxDrawdown == 0 {
		return 0
	}
	return AnnualReturn(returns, periodsPerYear) / math.Abs(maxDrawdown)
}

// CAGR is the compound annual growth rate of the curve, treating each point
// as one period. Zero when the curve is too short or starts non-positive.
func CAGR(equity []float64, periodsPerYear float64) float64 {
	if len(equity) < 2 || periodsPerYear <= 0 {
		return 0
	}
	first, last := equity[0], equity[len(equity)-1]
	if !finite(first) || !finite(last) || first <= 0 {
		return 0
	}
	if last <= 0 {
		return -1
	}
	years := float64(len(equity)) / periodsPerYear
	return math.Pow(last/first, 1/years) - 1
}

// TotalReturn is last/first - 1, or 0 when the curve cannot be measured.
func TotalReturn(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}
	first, last := equity[0], equity[len(equity)-1]
	if !finite(first) || !finite(last) || first <= 0 {
		return 0
	}
	return last/first - 1
}
