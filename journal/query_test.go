package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTrade(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	closeT := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	rec := sampleTrade("R", "R-0001", closeT, 194)
	require.NoError(t, j.RecordTrade(rec))

	got, err := j.GetTrade("R-0001")
	require.NoError(t, err)
	assert.Equal(t, rec.TradeID, got.TradeID)
	assert.Equal(t, rec.RunID, got.RunID)
	assert.Equal(t, rec.Symbol, got.Symbol)
	assert.Equal(t, rec.Side, got.Side)
	assert.InDelta(t, rec.Qty, got.Qty, 1e-9)
	assert.InDelta(t, rec.Stop, got.Stop, 1e-9)
	assert.InDelta(t, rec.Target, got.Target, 1e-9)
	assert.InDelta(t, rec.Cost, got.Cost, 1e-9)
	assert.InDelta(t, rec.RealizedPL, got.RealizedPL, 1e-9)
	assert.InDelta(t, rec.PLPct, got.PLPct, 1e-12)
	assert.True(t, got.OpenTime.Equal(rec.OpenTime))
	assert.True(t, got.CloseTime.Equal(rec.CloseTime))
	assert.Equal(t, rec.Reason, got.Reason)
}

func TestGetTradeNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	_, err := j.GetTrade("nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestListTradesClosedBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := []time.Duration{0, 24 * time.Hour, 48 * time.Hour, 72 * time.Hour}
	ids := []string{"T-0004", "T-0002", "T-0003", "T-0001"}
	for i, d := range closes {
		require.NoError(t, j.RecordTrade(sampleTrade("T", ids[i], base.Add(d), float64(i))))
	}

	tests := []struct {
		name       string
		start, end time.Time
		want       []string
	}{
		{"start inclusive end exclusive", base, base.Add(48 * time.Hour), []string{"T-0004", "T-0002"}},
		{"ordered by close", base.Add(time.Hour), base.Add(100 * time.Hour), []string{"T-0002", "T-0003", "T-0001"}},
		{"no matches", base.Add(200 * time.Hour), base.Add(300 * time.Hour), nil},
	}

	for _, tt := range tests {
		got, err := j.ListTradesClosedBetween(tt.start, tt.end)
		require.NoError(t, err, tt.name)
		var gotIDs []string
		for _, r := range got {
			gotIDs = append(gotIDs, r.TradeID)
		}
		assert.Equal(t, tt.want, gotIDs, tt.name)
	}
}

func TestListEquityBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "R", Time: base.Add(time.Duration(i) * time.Hour), Equity: float64(100 + i)}))
	}
	require.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "other", Time: base.Add(time.Hour), Equity: 1}))

	got, err := j.ListEquityBetween("R", base.Add(time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 101.0, got[0].Equity, 1e-12)
	assert.InDelta(t, 102.0, got[1].Equity, 1e-12)
}
