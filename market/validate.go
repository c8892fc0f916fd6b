package market

import (
	"errors"
	"fmt"
)

// ErrPrecondition marks malformed input that must be fixed by the caller.
var ErrPrecondition = errors.New("precondition violated")

// NoIndex is used in a ValidationError that is not tied to a single bar.
const NoIndex = -1

// ValidationError describes a fatal problem with the input series.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index == NoIndex {
		return fmt.Sprintf("%s: %s: %s", ErrPrecondition, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: bar %d: %s: %s", ErrPrecondition, e.Index, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrPrecondition }

func invalid(idx int, field, format string, args ...any) error {
	return &ValidationError{Index: idx, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the preconditions every simulation relies on:
// strictly increasing timestamps, non-negative prices and volume,
// high not below low, and a signal in {-1,0,1}.
//
// Non-finite prices and an undefined ATR are per-bar gaps, not
// precondition failures; the simulator skips them.
func Validate(bars []Bar) error {
	for i, b := range bars {
		if b.Time.IsZero() {
			return invalid(i, "time", "missing timestamp")
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return invalid(i, "time", "timestamp %s not after %s",
				b.Time.Format("2006-01-02T15:04:05Z07:00"),
				bars[i-1].Time.Format("2006-01-02T15:04:05Z07:00"))
		}

		prices := [...]struct {
			name string
			v    float64
		}{
			{"open", b.Open},
			{"high", b.High},
			{"low", b.Low},
			{"close", b.Close},
		}
		for _, p := range prices {
			if finite(p.v) && p.v <= 0 {
				return invalid(i, p.name, "price %v must be positive", p.v)
			}
		}
		if finite(b.Volume) && b.Volume < 0 {
			return invalid(i, "volume", "volume %v is negative", b.Volume)
		}
		if finite(b.High) && finite(b.Low) && b.High < b.Low {
			return invalid(i, "high", "high %v below low %v", b.High, b.Low)
		}
		if !b.Signal.Valid() {
			return invalid(i, "signal", "signal %d not in {-1,0,1}", b.Signal)
		}
	}
	return nil
}
