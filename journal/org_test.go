package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	closeT := time.Date(2024, 3, 15, 14, 20, 30, 0, time.UTC)
	trade := sampleTrade("01HZX3K9V7ABCDEFGHJKMNPQRS", "01HZX3K9V7ABCDEFGHJKMNPQRS-0007", closeT, 194)

	result := FormatTradeOrg(trade)

	assert.Contains(t, result, "*** Trade: SPY LONG (QRS-0007)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":TRADE_ID: 01HZX3K9V7ABCDEFGHJKMNPQRS-0007")
	assert.Contains(t, result, ":RUN_ID: 01HZX3K9V7ABCDEFGHJKMNPQRS")
	assert.Contains(t, result, ":QTY: 50")
	assert.Contains(t, result, ":ENTRY_PRICE: 100.0000")
	assert.Contains(t, result, ":STOP: 98.0000")
	assert.Contains(t, result, ":CLOSE_TIME: 2024-03-15T14:20:30Z")
	assert.Contains(t, result, ":REALIZED_PL: 194.00")
	assert.Contains(t, result, ":PL_PCT: 0.1940")
	assert.Contains(t, result, ":REASON: TARGET")
	assert.Contains(t, result, ":END:")
	assert.Contains(t, result, "**** Review")
}

func TestFormatTradeOrgNegativePL(t *testing.T) {
	t.Parallel()

	trade := sampleTrade("R", "R-0001", time.Now(), -106.5)
	trade.Reason = "STOP"
	result := FormatTradeOrg(trade)
	assert.Contains(t, result, ":REALIZED_PL: -106.50")
	assert.Contains(t, result, ":REASON: STOP")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", FormatTradesOrg(nil))

	now := time.Now()
	out := FormatTradesOrg([]TradeRecord{
		sampleTrade("R", "R-0001", now, 1),
		sampleTrade("R", "R-0002", now, 2),
	})
	assert.Equal(t, 2, strings.Count(out, ":PROPERTIES:"))
	assert.Less(t, strings.Index(out, "R-0001"), strings.Index(out, "R-0002"))
}

func TestShortID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"12345678", "12345678"},
		{"RUNID-0012", "NID-0012"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shortID(tt.in))
	}
}

func TestBacktestRunOrg(t *testing.T) {
	t.Parallel()

	run := sampleRun("R1")
	run.RR = 2
	run.Notes = []string{"stops clustered around FOMC"}
	run.NextActions = []string{"try 1.5 ATR stops"}

	s, err := run.RenderOrg()
	require.NoError(t, err)
	assert.Contains(t, s, "* BACKTEST: signal SPY")
	assert.Contains(t, s, ":START_DATE:  2024-01-02")
	assert.Contains(t, s, ":SKIPPED:     2")
	assert.Contains(t, s, ":PROFIT_FAC:  1.80")
	assert.Contains(t, s, "| R:R              | 2.00 |")
	assert.Contains(t, s, "| Risk per Trade % | 1.00 |")
	assert.Contains(t, s, "- Win Rate:         *60.00%*")
	assert.Contains(t, s, "- stops clustered around FOMC")
	assert.Contains(t, s, "- [ ] try 1.5 ATR stops")

	run.ProfitFactor = 0
	s, err = run.RenderOrg()
	require.NoError(t, err)
	assert.Contains(t, s, "(profit-factor?)")

	run.OrgPath = filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, run.WriteBacktestOrg())
	b, err := os.ReadFile(run.OrgPath)
	require.NoError(t, err)
	assert.Equal(t, s, string(b))

	run.OrgPath = ""
	assert.Error(t, run.WriteBacktestOrg())
}
