package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a run or trade id is unknown.
var ErrNotFound = errors.New("not found")

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

const tradeColumns = `trade_id, run_id, symbol, side, qty, entry_price, exit_price,
	stop_price, target_price, open_time, close_time, cost, realized_pl, pl_pct, reason`

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades (`+tradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Symbol, t.Side, t.Qty, t.EntryPrice, t.ExitPrice,
		t.Stop, t.Target, t.OpenTime.UTC(), t.CloseTime.UTC(), t.Cost, t.RealizedPL, t.PLPct, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`INSERT INTO equity (run_id, time, equity) VALUES (?, ?, ?)`,
		e.RunID, e.Time.UTC(), e.Equity,
	)
	return err
}

// RecordBacktest inserts or replaces the summary row for run.RunID.
func (j *SQLite) RecordBacktest(ctx context.Context, r BacktestRun) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(run_id, created, dataset, symbol, strategy, config, stop_atr, target_atr, risk_fraction,
		 start_time, end_time, bars, trades, wins, losses, skipped,
		 start_balance, end_balance, net_pl, return_pct, win_rate, profit_factor, max_dd_pct, sharpe)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Dataset, r.Symbol, r.Strategy, string(r.Config),
		r.StopATR, r.TargetATR, r.RiskFraction,
		r.Start.UTC(), r.End.UTC(), r.Bars, r.Trades, r.Wins, r.Losses, r.Skipped,
		r.StartBalance, r.EndBalance, r.NetPL, r.ReturnPct, r.WinRate, r.ProfitFactor, r.MaxDDPct, r.Sharpe,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}
	return nil
}

const runColumns = `run_id, created, dataset, symbol, strategy, config, stop_atr, target_atr, risk_fraction,
	start_time, end_time, bars, trades, wins, losses, skipped,
	start_balance, end_balance, net_pl, return_pct, win_rate, profit_factor, max_dd_pct, sharpe`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (BacktestRun, error) {
	var (
		r   BacktestRun
		cfg string
	)
	err := s.Scan(
		&r.RunID, &r.Created, &r.Dataset, &r.Symbol, &r.Strategy, &cfg,
		&r.StopATR, &r.TargetATR, &r.RiskFraction,
		&r.Start, &r.End, &r.Bars, &r.Trades, &r.Wins, &r.Losses, &r.Skipped,
		&r.StartBalance, &r.EndBalance, &r.NetPL, &r.ReturnPct, &r.WinRate, &r.ProfitFactor, &r.MaxDDPct, &r.Sharpe,
	)
	r.Config = []byte(cfg)
	r.RR = rr(r.StopATR, r.TargetATR)
	return r, err
}

func (j *SQLite) GetBacktestRun(ctx context.Context, runID string) (BacktestRun, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BacktestRun{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	if err != nil {
		return BacktestRun{}, err
	}
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (j *SQLite) ListRuns(ctx context.Context, limit int) ([]BacktestRun, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY created DESC, run_id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BacktestRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID, &rec.RunID, &rec.Symbol, &rec.Side, &rec.Qty, &rec.EntryPrice, &rec.ExitPrice,
		&rec.Stop, &rec.Target, &rec.OpenTime, &rec.CloseTime, &rec.Cost, &rec.RealizedPL, &rec.PLPct, &rec.Reason,
	)
	return rec, err
}

func (j *SQLite) queryTrades(ctx context.Context, q string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTradesByRunID returns a run's trades in close order.
func (j *SQLite) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	return j.queryTrades(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE run_id = ?
		ORDER BY close_time ASC, trade_id ASC`, runID)
}

func (j *SQLite) ListEquityByRunID(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, equity
		FROM equity
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Equity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportBacktestOrg loads a run with its trades and returns the Org block.
func (j *SQLite) ExportBacktestOrg(ctx context.Context, runID string) (string, error) {
	r, err := j.GetBacktestRun(ctx, runID)
	if err != nil {
		return "", err
	}
	trades, err := j.ListTradesByRunID(ctx, runID)
	if err != nil {
		return "", err
	}

	org, err := r.RenderOrg()
	if err != nil {
		return "", err
	}
	if len(trades) == 0 {
		return org, nil
	}
	return org + "\n** Trades\n" + FormatTradesOrg(trades) + "\n", nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
