package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	tradeHeader  = []string{"run_id", "trade_id", "symbol", "side", "qty", "entry_price", "exit_price", "stop", "target", "open_time", "close_time", "cost", "realized_pl", "pl_pct", "reason"}
	equityHeader = []string{"run_id", "time", "equity"}
)

// CSVJournal writes trades and equity points to two CSV files.
type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := tw.Write(tradeHeader); err != nil {
		return nil, err
	}
	if err := ew.Write(equityHeader); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{tw, ew, tf, ef}, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.RunID,
		t.TradeID,
		t.Symbol,
		t.Side,
		qty(t.Qty),
		price(t.EntryPrice),
		price(t.ExitPrice),
		price(t.Stop),
		price(t.Target),
		t.OpenTime.UTC().Format(time.RFC3339),
		t.CloseTime.UTC().Format(time.RFC3339),
		money(t.Cost),
		money(t.RealizedPL),
		price(t.PLPct),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.RunID,
		e.Time.UTC().Format(time.RFC3339),
		money(e.Equity),
	})
	if err != nil {
		return err
	}

	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	if err := j.ef.Close(); err != nil {
		return err
	}
	return nil
}

// Account-currency amounts are written with cents, prices with six places.
func money(x float64) string { return decimal.NewFromFloat(x).StringFixed(2) }
func price(x float64) string { return decimal.NewFromFloat(x).StringFixed(6) }
func qty(x float64) string   { return decimal.NewFromFloat(x).String() }

// ReadEquityCSV reads an equity file written by CSVJournal.
func ReadEquityCSV(r io.Reader) ([]EquitySnapshot, error) {
	rows, idx, err := readCSV(r, "time", "equity")
	if err != nil {
		return nil, err
	}
	out := make([]EquitySnapshot, 0, len(rows))
	for n, row := range rows {
		ts, err := time.Parse(time.RFC3339, row[idx["time"]])
		if err != nil {
			return nil, fmt.Errorf("equity row %d: %w", n+1, err)
		}
		eq, err := strconv.ParseFloat(row[idx["equity"]], 64)
		if err != nil {
			return nil, fmt.Errorf("equity row %d: %w", n+1, err)
		}
		e := EquitySnapshot{Time: ts, Equity: eq}
		if i, ok := idx["run_id"]; ok {
			e.RunID = row[i]
		}
		out = append(out, e)
	}
	return out, nil
}

// ReadTradePnLsCSV reads the realized_pl column of a trades file written by
// CSVJournal, in file order.
func ReadTradePnLsCSV(r io.Reader) ([]float64, error) {
	rows, idx, err := readCSV(r, "realized_pl")
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(rows))
	for n, row := range rows {
		pl, err := strconv.ParseFloat(row[idx["realized_pl"]], 64)
		if err != nil {
			return nil, fmt.Errorf("trade row %d: %w", n+1, err)
		}
		out = append(out, pl)
	}
	return out, nil
}

func readCSV(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty csv")
	}

	idx := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", col)
		}
	}

	rows := records[1:]
	for n, row := range rows {
		for _, col := range required {
			if idx[col] >= len(row) {
				return nil, nil, fmt.Errorf("row %d: missing %s", n+1, col)
			}
		}
	}
	return rows, idx, nil
}
