package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidCost is returned for non-positive quantity or price, or
// negative cost parameters. Cost is never silently clamped to zero.
var ErrInvalidCost = errors.New("invalid cost inputs")

var two = decimal.NewFromInt(2)

// CostModel charges slippage on both legs of a round trip plus a fixed
// commission per trade.
type CostModel struct {
	Slippage   float64 // fraction of notional per leg, 0.0005 = 5 bps
	Commission float64 // per trade, account currency
}

// RoundTrip is RoundTripCost with the model's parameters.
func (m CostModel) RoundTrip(qty, entryPrice float64) (float64, error) {
	return RoundTripCost(qty, entryPrice, m.Slippage, m.Commission)
}

// RoundTripCost returns 2*qty*entryPrice*slippage + commission.
// The sum is carried out in decimal so that costs on large notionals do
// not pick up binary rounding noise before they reach the equity curve.
func RoundTripCost(qty, entryPrice, slippage, commission float64) (float64, error) {
	switch {
	case !finite(qty) || qty <= 0:
		return 0, fmt.Errorf("%w: quantity %v must be positive", ErrInvalidCost, qty)
	case !finite(entryPrice) || entryPrice <= 0:
		return 0, fmt.Errorf("%w: entry price %v must be positive", ErrInvalidCost, entryPrice)
	case !finite(slippage) || slippage < 0:
		return 0, fmt.Errorf("%w: slippage %v must not be negative", ErrInvalidCost, slippage)
	case !finite(commission) || commission < 0:
		return 0, fmt.Errorf("%w: commission %v must not be negative", ErrInvalidCost, commission)
	}

	notional := decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(entryPrice))
	total := notional.Mul(decimal.NewFromFloat(slippage)).Mul(two).
		Add(decimal.NewFromFloat(commission))

	cost, _ := total.Float64()
	return cost, nil
}
