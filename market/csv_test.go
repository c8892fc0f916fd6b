package market

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Date,Open,High,Low,Close,Volume,ATR,signal
2024-01-02,100,101,99,100.5,1000,,0
2024-01-03,100.5,102,100,101,1200,1.5,1
2024-01-04,101,103,100.5,102,900,NaN,-1.0
`

func TestReadCSV(t *testing.T) {
	t.Parallel()

	s, err := ReadCSV(strings.NewReader(sampleCSV), CSVOptions{Symbol: "SPY"})
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, "SPY", s.Symbol)

	b0 := s.At(0)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), b0.Time)
	assert.True(t, math.IsNaN(b0.ATR))
	assert.False(t, b0.HasATR())
	assert.Equal(t, Flat, b0.Signal)

	b1 := s.At(1)
	assert.Equal(t, 1.5, b1.ATR)
	assert.Equal(t, Long, b1.Signal)
	assert.Equal(t, 1200.0, b1.Volume)

	assert.Equal(t, Short, s.At(2).Signal)
}

func TestReadCSVCustomSignalColumn(t *testing.T) {
	t.Parallel()

	in := "timestamp,open,high,low,close,atr,ml_signal\n" +
		"1704153600,10,11,9,10,1,1\n" +
		"1704157200,10,11,9,10,1,0\n"
	s, err := ReadCSV(strings.NewReader(in), CSVOptions{SignalColumn: "ml_signal"})
	require.NoError(t, err)
	assert.Equal(t, Long, s.At(0).Signal)
	assert.Equal(t, time.Unix(1704153600, 0).UTC(), s.At(0).Time)
	assert.Equal(t, 0.0, s.At(0).Volume)
}

func TestReadCSVMissingColumn(t *testing.T) {
	t.Parallel()

	in := "time,open,high,close,atr,signal\n2024-01-02,1,1,1,1,0\n"
	_, err := ReadCSV(strings.NewReader(in), CSVOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPrecondition))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "low", ve.Field)
	assert.Equal(t, NoIndex, ve.Index)
}

func TestReadCSVRejectsBadRows(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"bad time":       "time,open,high,low,close,atr,signal\nyesterday,1,1,1,1,1,0\n",
		"bad signal":     "time,open,high,low,close,atr,signal\n2024-01-02,1,1,1,1,1,2\n",
		"bad number":     "time,open,high,low,close,atr,signal\n2024-01-02,abc,1,1,1,1,0\n",
		"non-monotonic":  "time,open,high,low,close,atr,signal\n2024-01-03,1,1,1,1,1,0\n2024-01-02,1,1,1,1,1,0\n",
		"negative price": "time,open,high,low,close,atr,signal\n2024-01-02,1,1,1,-1,1,0\n",
	}
	for name, in := range tests {
		in := in
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadCSV(strings.NewReader(in), CSVOptions{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrPrecondition), err.Error())
		})
	}
}

func TestReadCSVWithUTF8BOM(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	buf.WriteString(sampleCSV)

	s, err := ReadCSV(&buf, CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
}

func TestLoadCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	s, err := LoadCSV(path, CSVOptions{Symbol: "QQQ"})
	require.NoError(t, err)
	assert.Equal(t, "QQQ", s.Symbol)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), CSVOptions{})
	assert.Error(t, err)
}

func TestBarQuery(t *testing.T) {
	t.Parallel()

	q, err := barQuery("market", "bars_h4")
	require.NoError(t, err)
	assert.Contains(t, q, "FROM market.bars_h4")
	assert.Contains(t, q, "ORDER BY ts ASC")

	_, err = barQuery("market", "bars; DROP TABLE x")
	assert.Error(t, err)
	_, err = barQuery("bad-db", "bars")
	assert.Error(t, err)
}
