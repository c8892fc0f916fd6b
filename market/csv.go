package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVOptions names the columns of an annotated bar file. Column matching
// is case-insensitive. Empty fields fall back to the defaults below.
type CSVOptions struct {
	Symbol       string
	TimeColumn   string // default: first of time, timestamp, datetime, date
	SignalColumn string // default: signal
	ATRColumn    string // default: atr
}

var timeColumns = []string{"time", "timestamp", "datetime", "date"}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// LoadCSV reads an annotated bar file from disk.
func LoadCSV(path string, opts CSVOptions) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars: %w", err)
	}
	defer f.Close()

	s, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read bars %s: %w", path, err)
	}
	return s, nil
}

// ReadCSV parses a table with columns {time, Open, High, Low, Close,
// Volume, ATR, signal}. UTF-8 and UTF-16 byte order marks are honored,
// which covers spreadsheet exports. Volume is optional. Empty or "NaN"
// numeric fields become NaN and are treated as per-bar gaps downstream.
func ReadCSV(r io.Reader, opts CSVOptions) (*Series, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(dec)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, invalid(NoIndex, "header", "empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := resolveColumns(header, opts)
	if err != nil {
		return nil, err
	}

	var bars []Bar
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		b, err := cols.parse(row, rec)
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}

	return NewSeries(opts.Symbol, bars)
}

type columns struct {
	time, open, high, low, close, volume, atr, signal int
}

func resolveColumns(header []string, opts CSVOptions) (columns, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	find := func(name string) (int, error) {
		i, ok := idx[strings.ToLower(name)]
		if !ok {
			return 0, invalid(NoIndex, name, "missing required column")
		}
		return i, nil
	}

	var c columns
	var err error

	if opts.TimeColumn != "" {
		if c.time, err = find(opts.TimeColumn); err != nil {
			return c, err
		}
	} else {
		c.time = -1
		for _, name := range timeColumns {
			if i, ok := idx[name]; ok {
				c.time = i
				break
			}
		}
		if c.time < 0 {
			return c, invalid(NoIndex, "time", "missing required column")
		}
	}

	signal := opts.SignalColumn
	if signal == "" {
		signal = "signal"
	}
	atr := opts.ATRColumn
	if atr == "" {
		atr = "atr"
	}

	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"open", &c.open},
		{"high", &c.high},
		{"low", &c.low},
		{"close", &c.close},
		{atr, &c.atr},
		{signal, &c.signal},
	} {
		if *f.dst, err = find(f.name); err != nil {
			return c, err
		}
	}

	c.volume = -1
	if i, ok := idx["volume"]; ok {
		c.volume = i
	}
	return c, nil
}

func (c columns) parse(row int, rec []string) (Bar, error) {
	var b Bar

	t, err := parseTime(rec[c.time])
	if err != nil {
		return b, invalid(row, "time", "%v", err)
	}
	b.Time = t

	for _, f := range []struct {
		name string
		col  int
		dst  *float64
	}{
		{"open", c.open, &b.Open},
		{"high", c.high, &b.High},
		{"low", c.low, &b.Low},
		{"close", c.close, &b.Close},
		{"atr", c.atr, &b.ATR},
		{"volume", c.volume, &b.Volume},
	} {
		if f.col < 0 {
			continue
		}
		v, err := parseFloat(rec[f.col])
		if err != nil {
			return b, invalid(row, f.name, "%v", err)
		}
		*f.dst = v
	}

	sv, err := parseFloat(rec[c.signal])
	if err != nil {
		return b, invalid(row, "signal", "%v", err)
	}
	if b.Signal, err = SignalFromFloat(sv); err != nil {
		return b, invalid(row, "signal", "%v", err)
	}
	return b, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "na":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1_000_000_000_000 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
