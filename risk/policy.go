package risk

import "fmt"

// Bounds applied to the volatility-scaled notional cap, as fractions of equity.
const (
	DynamicMinCapFraction = 0.001
	DynamicMaxCapFraction = 0.5
)

// Policy holds the position sizing limits for one simulation.
type Policy struct {
	// Risk budget
	RiskFraction float64 // 0.01 = 1% of equity lost if the stop is hit

	// Notional caps, applied in order; each may only shrink quantity.
	MaxNotionalFraction  float64 // 0.05 of equity
	DynamicNotional      bool
	BaseNotionalFraction float64 // 0.05, scaled by refATR/ATR when DynamicNotional
	MaxAbsoluteNotional  float64 // 50000 in account currency, 0 disables

	// Stops narrower than this fraction of entry are widened to it.
	MinStopDistanceFraction float64 // 0.005

	// Quantity is floored to a multiple of MinQty and clamped to MaxQty.
	MinQty float64 // 1
	MaxQty float64 // 100, 0 = unbounded
}

// DefaultPolicy mirrors the strategy's research settings.
func DefaultPolicy() Policy {
	return Policy{
		RiskFraction:            0.01,
		MaxNotionalFraction:     0.05,
		BaseNotionalFraction:    0.05,
		MaxAbsoluteNotional:     50000,
		MinStopDistanceFraction: 0.005,
		MinQty:                  1,
		MaxQty:                  100,
	}
}

func (p Policy) Validate() error {
	if p.RiskFraction <= 0 || p.RiskFraction > 1 {
		return fmt.Errorf("risk_fraction must be in (0, 1], got %v", p.RiskFraction)
	}
	if p.MaxNotionalFraction <= 0 {
		return fmt.Errorf("max_notional_fraction must be positive, got %v", p.MaxNotionalFraction)
	}
	if p.DynamicNotional && p.BaseNotionalFraction <= 0 {
		return fmt.Errorf("base_notional_fraction must be positive when dynamic notional is enabled")
	}
	if p.MaxAbsoluteNotional < 0 {
		return fmt.Errorf("max_absolute_notional must not be negative")
	}
	if p.MinStopDistanceFraction < 0 || p.MinStopDistanceFraction >= 1 {
		return fmt.Errorf("min_stop_distance_fraction must be in [0, 1), got %v", p.MinStopDistanceFraction)
	}
	if p.MinQty < 0 {
		return fmt.Errorf("min_qty must not be negative")
	}
	if p.MaxQty < 0 {
		return fmt.Errorf("max_qty must not be negative")
	}
	if p.MaxQty > 0 && p.MaxQty < p.unit() {
		return fmt.Errorf("max_qty %v is below min_qty %v", p.MaxQty, p.unit())
	}
	return nil
}

// unit is the minimum tradable quantity step.
func (p Policy) unit() float64 {
	if p.MinQty <= 0 {
		return 1
	}
	return p.MinQty
}
