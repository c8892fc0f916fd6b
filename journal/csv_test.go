package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func newTestCSV(t *testing.T) (*CSVJournal, string, string) {
	t.Helper()
	dir := t.TempDir()
	tp := filepath.Join(dir, "trades.csv")
	ep := filepath.Join(dir, "equity.csv")
	j, err := NewCSV(tp, ep)
	require.NoError(t, err)
	return j, tp, ep
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	j, tp, ep := newTestCSV(t)
	require.NoError(t, j.Close())

	assert.Equal(t, [][]string{tradeHeader}, readAll(t, tp))
	assert.Equal(t, [][]string{equityHeader}, readAll(t, ep))
}

func TestCSVJournalRecordTrade(t *testing.T) {
	t.Parallel()

	j, tp, _ := newTestCSV(t)
	closeT := time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC)
	rec := sampleTrade("R1", "R1-0001", closeT, 194.005)
	rec.EntryPrice = 100.1234567

	require.NoError(t, j.RecordTrade(rec))
	require.NoError(t, j.Close())

	rows := readAll(t, tp)
	require.Len(t, rows, 2)
	row := rows[1]
	assert.Equal(t, "R1", row[0])
	assert.Equal(t, "R1-0001", row[1])
	assert.Equal(t, "LONG", row[3])
	assert.Equal(t, "50", row[4])
	assert.Equal(t, "100.123457", row[5])
	assert.Equal(t, "2024-01-02T04:05:06Z", row[10])
	assert.Equal(t, "6.00", row[11])
	assert.Equal(t, "194.01", row[12])
	assert.Equal(t, "TARGET", row[14])
}

func TestCSVJournalEquityRoundTrip(t *testing.T) {
	t.Parallel()

	j, tp, ep := newTestCSV(t)
	base := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	for i, v := range []float64{100000, 100000, 100194} {
		require.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "R", Time: base.Add(time.Duration(i) * time.Hour), Equity: v}))
	}
	require.NoError(t, j.RecordTrade(sampleTrade("R", "R-0001", base, 194)))
	require.NoError(t, j.Close())

	ef, err := os.Open(ep)
	require.NoError(t, err)
	defer ef.Close()
	eq, err := ReadEquityCSV(ef)
	require.NoError(t, err)
	require.Len(t, eq, 3)
	assert.Equal(t, "R", eq[0].RunID)
	assert.True(t, eq[2].Time.Equal(base.Add(2*time.Hour)))
	assert.InDelta(t, 100194.0, eq[2].Equity, 1e-9)

	tf, err := os.Open(tp)
	require.NoError(t, err)
	defer tf.Close()
	pnls, err := ReadTradePnLsCSV(tf)
	require.NoError(t, err)
	assert.Equal(t, []float64{194}, pnls)
}

func TestReadEquityCSV_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"missing column", "time,value\n2024-01-01T00:00:00Z,1\n"},
		{"bad time", "time,equity\nyesterday,1\n"},
		{"bad number", "time,equity\n2024-01-01T00:00:00Z,abc\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadEquityCSV(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}
