package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRR(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 2.0, RR(100, 99, 102), 1e-12)
	assert.InDelta(t, 2.0, RR(100, 101, 98), 1e-12)
	assert.Equal(t, 0.0, RR(100, 100, 102))
}

func TestCalculate_RiskBudget(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	got := p.Calculate(Inputs{Equity: 100000, Entry: 100, Stop: 99, Side: 1})

	require.True(t, got.Allowed)
	assert.InDelta(t, 1000.0, got.RiskAmount, 1e-9)
	assert.InDelta(t, 1000.0, got.RawUnits, 1e-9)
	// 5% of equity at 100 caps the raw 1000 units to 50.
	assert.InDelta(t, 50.0, got.Units, 1e-9)
	assert.InDelta(t, 5000.0, got.NotionalCap, 1e-9)
	assert.InDelta(t, 99.0, got.Stop, 1e-12)
}

func TestCalculate_StopFloor(t *testing.T) {
	t.Parallel()

	p := Policy{
		RiskFraction:            0.001,
		MaxNotionalFraction:     1,
		MinStopDistanceFraction: 0.005,
		MinQty:                  1,
	}

	tests := []struct {
		name     string
		side     int
		stop     float64
		wantStop float64
	}{
		{"long widened", 1, 99.9, 99.5},
		{"short widened", -1, 100.1, 100.5},
		{"long already wide", 1, 98, 98},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := p.Calculate(Inputs{Equity: 100000, Entry: 100, Stop: tt.stop, Side: tt.side})
			require.True(t, got.Allowed)
			assert.InDelta(t, tt.wantStop, got.Stop, 1e-9)
			assert.InDelta(t, math.Abs(100-tt.wantStop), got.StopDistance, 1e-9)
			assert.InDelta(t, 100/got.StopDistance, got.Units, 1.0)
		})
	}
}

func TestCalculate_Caps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		policy Policy
		in     Inputs
		want   float64
	}{
		{
			name:   "absolute cap tighter than relative",
			policy: Policy{RiskFraction: 0.01, MaxNotionalFraction: 0.05, MaxAbsoluteNotional: 50000, MinQty: 1},
			in:     Inputs{Equity: 10_000_000, Entry: 100, Stop: 99, Side: 1},
			want:   500,
		},
		{
			name:   "max qty clamps after caps",
			policy: Policy{RiskFraction: 0.01, MaxNotionalFraction: 0.05, MaxAbsoluteNotional: 50000, MinQty: 1, MaxQty: 100},
			in:     Inputs{Equity: 10_000_000, Entry: 100, Stop: 99, Side: 1},
			want:   100,
		},
		{
			name:   "floored to whole units",
			policy: Policy{RiskFraction: 0.01, MaxNotionalFraction: 0.05, MinQty: 10},
			in:     Inputs{Equity: 100000, Entry: 30, Stop: 29, Side: 1},
			want:   160,
		},
		{
			name:   "fractional unit",
			policy: Policy{RiskFraction: 0.01, MaxNotionalFraction: 0.05, MinQty: 0.1},
			in:     Inputs{Equity: 100000, Entry: 30, Stop: 29, Side: 1},
			want:   166.6,
		},
		{
			name:   "high volatility shrinks dynamic cap",
			policy: Policy{RiskFraction: 0.01, MaxNotionalFraction: 0.05, DynamicNotional: true, BaseNotionalFraction: 0.05, MinQty: 1},
			in:     Inputs{Equity: 100000, Entry: 100, Stop: 99, Side: 1, ATR: 2, RefATR: 1},
			want:   25,
		},
		{
			name:   "low volatility bounded by relative cap",
			policy: Policy{RiskFraction: 0.01, MaxNotionalFraction: 0.05, DynamicNotional: true, BaseNotionalFraction: 0.05, MinQty: 1},
			in:     Inputs{Equity: 100000, Entry: 100, Stop: 99, Side: 1, ATR: 0.5, RefATR: 1},
			want:   50,
		},
		{
			name:   "dynamic ignored without reference",
			policy: Policy{RiskFraction: 0.01, MaxNotionalFraction: 0.05, DynamicNotional: true, BaseNotionalFraction: 0.05, MinQty: 1},
			in:     Inputs{Equity: 100000, Entry: 100, Stop: 99, Side: 1, ATR: 2},
			want:   50,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.policy.Calculate(tt.in)
			require.True(t, got.Allowed, got.Codes())
			assert.InDelta(t, tt.want, got.Units, 1e-6)
			assert.LessOrEqual(t, got.Units*tt.in.Entry, got.NotionalCap+1e-6)
		})
	}
}

func TestNotionalCap_DynamicClamp(t *testing.T) {
	t.Parallel()

	p := Policy{MaxNotionalFraction: 1, DynamicNotional: true, BaseNotionalFraction: 0.05}

	// 0.05 * 1/1000 of equity is under the 0.1% floor.
	assert.InDelta(t, 100.0, p.NotionalCap(100000, 1000, 1), 1e-9)
	// 0.05 * 100 of equity is over the 50% ceiling.
	assert.InDelta(t, 50000.0, p.NotionalCap(100000, 0.01, 1), 1e-9)
}

func TestCalculate_Skips(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()

	tests := []struct {
		name   string
		policy Policy
		in     Inputs
		code   string
	}{
		{"zero equity", p, Inputs{Equity: 0, Entry: 100, Stop: 99, Side: 1}, CodeNoEquity},
		{"negative equity", p, Inputs{Equity: -5, Entry: 100, Stop: 99, Side: 1}, CodeNoEquity},
		{"nan entry", p, Inputs{Equity: 1000, Entry: math.NaN(), Stop: 99, Side: 1}, CodeNoEntry},
		{"zero entry", p, Inputs{Equity: 1000, Entry: 0, Stop: 99, Side: 1}, CodeNoEntry},
		{"zero stop distance", Policy{RiskFraction: 0.01, MaxNotionalFraction: 0.05, MinQty: 1}, Inputs{Equity: 1000, Entry: 100, Stop: 100, Side: 1}, CodeZeroStopDistance},
		// 0.5 units is never rounded up to the tradable unit.
		{"below min qty", p, Inputs{Equity: 1000, Entry: 100, Stop: 99, Side: 1}, CodeQtyBelowMin},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.policy.Calculate(tt.in)
			assert.False(t, got.Allowed)
			assert.Equal(t, 0.0, got.Units)
			require.Len(t, got.Violations, 1)
			assert.Equal(t, tt.code, got.Violations[0].Code)
			assert.Equal(t, tt.code, got.Codes())
		})
	}
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultPolicy().Validate())

	bad := DefaultPolicy()
	bad.RiskFraction = 0
	assert.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.MaxQty = 0.5
	assert.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.DynamicNotional = true
	bad.BaseNotionalFraction = 0
	assert.Error(t, bad.Validate())
}
