package market

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

// ClickHouseConfig locates an annotated bar table:
//
//	symbol String, ts DateTime64, open/high/low/close/volume Float64,
//	atr Nullable(Float64), signal Int8
type ClickHouseConfig struct {
	Addr     []string
	Database string
	Username string
	Password string
	Table    string
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ClickHouseSource loads bar series produced by the feature/labeling
// pipeline from ClickHouse.
type ClickHouseSource struct {
	conn   driver.Conn
	query  string
	logger *zap.Logger
}

// OpenClickHouse connects and pings the server.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig, logger *zap.Logger) (*ClickHouseSource, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return NewClickHouseSource(conn, cfg.Database, cfg.Table, logger)
}

// NewClickHouseSource wraps an existing connection.
func NewClickHouseSource(conn driver.Conn, database, table string, logger *zap.Logger) (*ClickHouseSource, error) {
	q, err := barQuery(database, table)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClickHouseSource{conn: conn, query: q, logger: logger}, nil
}

func barQuery(database, table string) (string, error) {
	if !identRe.MatchString(table) {
		return "", fmt.Errorf("clickhouse: invalid table name %q", table)
	}
	from := table
	if database != "" {
		if !identRe.MatchString(database) {
			return "", fmt.Errorf("clickhouse: invalid database name %q", database)
		}
		from = database + "." + table
	}
	return fmt.Sprintf(`SELECT ts, open, high, low, close, volume, atr, signal
FROM %s
WHERE symbol = ? AND ts >= ? AND ts < ?
ORDER BY ts ASC`, from), nil
}

// Load returns the bars for symbol with start <= ts < end. A zero end
// loads through the latest bar.
func (s *ClickHouseSource) Load(ctx context.Context, symbol string, start, end time.Time) (*Series, error) {
	if end.IsZero() {
		end = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	rows, err := s.conn.Query(ctx, s.query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("clickhouse query %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []Bar
	for rows.Next() {
		var (
			b   Bar
			atr *float64
			sig int8
		)
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &atr, &sig); err != nil {
			return nil, fmt.Errorf("clickhouse scan %s: %w", symbol, err)
		}
		b.Time = b.Time.UTC()
		b.ATR = math.NaN()
		if atr != nil {
			b.ATR = *atr
		}
		b.Signal = Signal(sig)
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clickhouse rows %s: %w", symbol, err)
	}

	s.logger.Debug("loaded bars from clickhouse",
		zap.String("symbol", symbol),
		zap.Int("bars", len(bars)),
		zap.Time("start", start),
	)
	return NewSeries(symbol, bars)
}

func (s *ClickHouseSource) Close() error {
	return s.conn.Close()
}
