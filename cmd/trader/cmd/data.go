package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/signaltrader/journal"
	"github.com/rustyeddy/signaltrader/market"
)

// sourceFlags select where bars come from.
type sourceFlags struct {
	csv        []string
	symbol     string
	clickhouse bool
	symbols    []string
	start      string
	end        string
}

func (sf *sourceFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringSliceVar(&sf.csv, "csv", nil, "annotated bar CSV file(s); several files run as one portfolio")
	fs.StringVarP(&sf.symbol, "symbol", "s", "", "symbol for a single CSV (default: file name)")
	fs.BoolVar(&sf.clickhouse, "clickhouse", false, "load bars from the configured ClickHouse table")
	fs.StringSliceVar(&sf.symbols, "symbols", nil, "ClickHouse symbols to load")
	fs.StringVar(&sf.start, "start", "", "first bar time (RFC3339 or YYYY-MM-DD)")
	fs.StringVar(&sf.end, "end", "", "end time, exclusive (RFC3339 or YYYY-MM-DD)")
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(flag, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("--%s: cannot parse %q", flag, s)
}

func symbolFromPath(path string) string {
	base := filepath.Base(path)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

// load returns the requested series, trimmed to [start, end), and a
// dataset label for the journal.
func (a *app) load(ctx context.Context, sf sourceFlags) ([]*market.Series, string, error) {
	start, err := parseTime("start", sf.start)
	if err != nil {
		return nil, "", err
	}
	end, err := parseTime("end", sf.end)
	if err != nil {
		return nil, "", err
	}

	switch {
	case sf.clickhouse && len(sf.csv) > 0:
		return nil, "", fmt.Errorf("use either --csv or --clickhouse, not both")
	case sf.clickhouse:
		return a.loadClickHouse(ctx, sf.symbols, start, end)
	case len(sf.csv) == 0:
		return nil, "", fmt.Errorf("no data: pass --csv or --clickhouse")
	}
	if sf.symbol != "" && len(sf.csv) > 1 {
		return nil, "", fmt.Errorf("--symbol only applies to a single --csv file")
	}

	out := make([]*market.Series, 0, len(sf.csv))
	for _, path := range sf.csv {
		sym := sf.symbol
		if sym == "" {
			sym = symbolFromPath(path)
		}
		s, err := market.LoadCSV(path, market.CSVOptions{
			Symbol:       sym,
			SignalColumn: a.cfg.Simulator.SignalColumn,
			ATRColumn:    a.cfg.Simulator.ATRColumn,
		})
		if err != nil {
			return nil, "", err
		}
		if !start.IsZero() || !end.IsZero() {
			s = s.Slice(start, end)
		}
		a.logger.Debug("loaded csv", zap.String("path", path), zap.Int("bars", s.Len()))
		out = append(out, s)
	}
	return out, strings.Join(sf.csv, ","), nil
}

func (a *app) loadClickHouse(ctx context.Context, symbols []string, start, end time.Time) ([]*market.Series, string, error) {
	if len(symbols) == 0 {
		return nil, "", fmt.Errorf("--clickhouse needs --symbols")
	}
	cc := a.cfg.ClickHouse
	src, err := market.OpenClickHouse(ctx, market.ClickHouseConfig{
		Addr:     cc.Addr,
		Database: cc.Database,
		Username: cc.Username,
		Password: cc.Password,
		Table:    cc.Table,
	}, a.logger)
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	out := make([]*market.Series, 0, len(symbols))
	for _, sym := range symbols {
		s, err := src.Load(ctx, sym, start, end)
		if err != nil {
			return nil, "", err
		}
		out = append(out, s)
	}
	return out, "clickhouse:" + cc.Database + "." + cc.Table, nil
}

// openJournal opens the journal named by the config. dbOverride, when set,
// forces a SQLite journal at that path.
func (a *app) openJournal(dbOverride string) (journal.Journal, error) {
	jc := a.cfg.Journal
	if dbOverride != "" {
		jc.Type, jc.DBPath = "sqlite", dbOverride
	}
	switch jc.Type {
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	case "csv":
		return journal.NewCSV(jc.TradesFile, jc.EquityFile)
	case "", "none":
		return journal.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", jc.Type)
	}
}

func (a *app) openSQLite(dbOverride string) (*journal.SQLite, error) {
	path := dbOverride
	if path == "" {
		path = a.cfg.Journal.DBPath
	}
	if path == "" {
		return nil, fmt.Errorf("no journal database: pass --db or set journal.db_path")
	}
	return journal.NewSQLite(path)
}
