package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/signaltrader/risk"
)

// ErrInvalidConfig is returned before any simulation state is created.
var ErrInvalidConfig = errors.New("invalid simulator config")

// Config is everything a simulation needs besides the bars. A Config is a
// plain value: nothing outlives a single Run.
type Config struct {
	StopATR   float64 // stop distance in signal-bar ATRs
	TargetATR float64 // target distance in signal-bar ATRs

	InitialCapital float64

	Cost   risk.CostModel
	Sizing risk.Policy

	// DynamicWindow is the number of defined ATR values whose median is the
	// reference volatility for the dynamic notional cap.
	DynamicWindow int

	// ExitOnReversal closes an open position at the close of a bar that
	// carries an opposing signal.
	ExitOnReversal bool

	// MaxPositions bounds open-or-pending positions across symbols in a
	// Portfolio. 0 means one per symbol with no global bound.
	MaxPositions int
}

func DefaultConfig() Config {
	return Config{
		StopATR:        1.0,
		TargetATR:      2.0,
		InitialCapital: 100000,
		Cost:           risk.CostModel{Slippage: 0.0005, Commission: 1.0},
		Sizing:         risk.DefaultPolicy(),
		DynamicWindow:  20,
	}
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func positive(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && x > 0
}

func (c Config) Validate() error {
	if !positive(c.StopATR) {
		return invalidConfig("stop_atr must be positive, got %v", c.StopATR)
	}
	if !positive(c.TargetATR) {
		return invalidConfig("target_atr must be positive, got %v", c.TargetATR)
	}
	if !positive(c.InitialCapital) {
		return invalidConfig("initial capital must be positive, got %v", c.InitialCapital)
	}
	if c.Cost.Slippage < 0 || c.Cost.Commission < 0 {
		return invalidConfig("slippage and commission must not be negative")
	}
	if err := c.Sizing.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Sizing.DynamicNotional && c.DynamicWindow < 1 {
		return invalidConfig("dynamic_window must be at least 1 when dynamic notional is enabled")
	}
	if c.MaxPositions < 0 {
		return invalidConfig("max_positions must not be negative")
	}
	return nil
}
