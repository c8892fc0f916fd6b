package risk

import (
	"fmt"
	"math"
)

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// RR is the planned reward:risk multiple of a bracket.
func RR(entry, stop, target float64) float64 {
	risk := abs(entry - stop)
	reward := abs(target - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// Inputs describe one prospective entry.
type Inputs struct {
	Equity float64
	Entry  float64
	Stop   float64
	Side   int // +1 long, -1 short

	// Volatility at the signal bar and its rolling reference.
	// RefATR <= 0 disables dynamic scaling for this entry.
	ATR    float64
	RefATR float64
}

type Result struct {
	Units        float64
	Stop         float64 // stop after the minimum-distance floor
	StopDistance float64
	RiskAmount   float64
	RawUnits     float64 // before caps and flooring
	NotionalCap  float64 // tightest cap that applied to this entry

	Decision
}

// NotionalCap returns the tightest of the relative, dynamic and absolute
// caps for an entry. The dynamic cap scales inversely with ATR relative to
// refATR and is clamped to [0.1%, 50%] of equity before it is combined.
func (p Policy) NotionalCap(equity, atr, refATR float64) float64 {
	limit := equity * p.MaxNotionalFraction

	if p.DynamicNotional && refATR > 0 && atr > 0 {
		scaled := equity * p.BaseNotionalFraction * (refATR / atr)
		scaled = math.Max(math.Min(scaled, equity*DynamicMaxCapFraction), equity*DynamicMinCapFraction)
		limit = math.Min(limit, scaled)
	}
	if p.MaxAbsoluteNotional > 0 {
		limit = math.Min(limit, p.MaxAbsoluteNotional)
	}
	return limit
}

// Calculate sizes a position from the risk budget:
//
//	units = equity * RiskFraction / |entry - stop|
//
// then applies the notional caps, floors to the tradable unit and clamps
// to MaxQty. A Result that is not Allowed means "skip this trade".
func (p Policy) Calculate(in Inputs) Result {
	r := Result{Decision: Decision{Allowed: true}, Stop: in.Stop}

	if !finite(in.Equity) || in.Equity <= 0 {
		r.add(CodeNoEquity, fmt.Sprintf("equity %v must be positive", in.Equity))
		return r
	}
	if !finite(in.Entry) || in.Entry <= 0 || !finite(in.Stop) {
		r.add(CodeNoEntry, "entry/stop must be set")
		return r
	}

	side := 1.0
	if in.Side < 0 {
		side = -1.0
	}

	r.StopDistance = abs(in.Entry - in.Stop)
	if floor := in.Entry * p.MinStopDistanceFraction; r.StopDistance < floor {
		r.StopDistance = floor
		r.Stop = in.Entry - side*floor
	}
	if r.StopDistance == 0 {
		r.add(CodeZeroStopDistance, "stop distance is zero")
		return r
	}

	r.RiskAmount = in.Equity * p.RiskFraction
	r.RawUnits = r.RiskAmount / r.StopDistance

	r.NotionalCap = p.NotionalCap(in.Equity, in.ATR, in.RefATR)
	units := r.RawUnits
	if units*in.Entry > r.NotionalCap {
		units = r.NotionalCap / in.Entry
	}

	unit := p.unit()
	units = math.Floor(units/unit+1e-9) * unit
	if p.MaxQty > 0 && units > p.MaxQty {
		units = p.MaxQty
	}
	if !finite(units) {
		r.add(CodeNonFiniteQuantity, "computed quantity is not finite")
		return r
	}
	if units <= 0 {
		r.add(CodeQtyBelowMin, fmt.Sprintf("quantity %.4f below tradable unit %v", r.RawUnits, unit))
		return r
	}

	r.Units = units
	return r
}
