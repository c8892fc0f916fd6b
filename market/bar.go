package market

import (
	"fmt"
	"math"
	"time"
)

// Signal is the discrete directional annotation produced upstream for a bar.
type Signal int8

const (
	Short Signal = -1
	Flat  Signal = 0
	Long  Signal = +1
)

func (s Signal) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	case Flat:
		return "FLAT"
	}
	return fmt.Sprintf("Signal(%d)", int8(s))
}

// Valid reports whether s is one of Long, Short or Flat.
func (s Signal) Valid() bool {
	return s == Long || s == Short || s == Flat
}

// Opposes reports whether s is a non-flat signal pointing the other way from side.
func (s Signal) Opposes(side Signal) bool {
	return s != Flat && side != Flat && s == -side
}

// SignalFromFloat converts the {-1,0,1} column encoding into a Signal.
// NaN is treated as Flat.
func SignalFromFloat(v float64) (Signal, error) {
	switch {
	case math.IsNaN(v) || v == 0:
		return Flat, nil
	case v == 1:
		return Long, nil
	case v == -1:
		return Short, nil
	}
	return Flat, fmt.Errorf("signal %v not in {-1,0,1}", v)
}

// Bar is one OHLCV sample annotated with a volatility measure and a signal.
// Bars are immutable once they are part of a Series.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	ATR    float64 // NaN when undefined
	Signal Signal
}

// HasATR reports whether the volatility measure is usable for stops and sizing.
func (b Bar) HasATR() bool {
	return finite(b.ATR) && b.ATR > 0
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Finite reports whether x is neither NaN nor infinite.
func Finite(x float64) bool { return finite(x) }
