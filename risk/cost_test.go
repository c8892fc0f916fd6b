package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripCost(t *testing.T) {
	t.Parallel()

	got, err := RoundTripCost(50, 100, 0.0005, 1)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, got, 1e-12)

	got, err = CostModel{}.RoundTrip(10, 25)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestRoundTripCost_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                         string
		qty, price, slip, commission float64
	}{
		{"zero qty", 0, 100, 0.0005, 1},
		{"negative qty", -1, 100, 0.0005, 1},
		{"zero price", 10, 0, 0.0005, 1},
		{"nan price", 10, math.NaN(), 0.0005, 1},
		{"negative slippage", 10, 100, -0.1, 1},
		{"negative commission", 10, 100, 0.0005, -1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := RoundTripCost(tt.qty, tt.price, tt.slip, tt.commission)
			assert.ErrorIs(t, err, ErrInvalidCost)
		})
	}
}
