package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/signaltrader/perf"
	"github.com/rustyeddy/signaltrader/risk"
	"github.com/rustyeddy/signaltrader/sim"
)

// Config represents the complete backtest configuration
type Config struct {
	Account    AccountConfig    `json:"account" yaml:"account"`
	Simulator  SimulatorConfig  `json:"simulator" yaml:"simulator"`
	Sizing     SizingConfig     `json:"sizing" yaml:"sizing"`
	Analyzer   AnalyzerConfig   `json:"analyzer" yaml:"analyzer"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Sweep      SweepConfig      `json:"sweep" yaml:"sweep"`
	ClickHouse ClickHouseConfig `json:"clickhouse" yaml:"clickhouse"`
	Server     ServerConfig     `json:"server" yaml:"server"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"` // initial capital
}

// SimulatorConfig holds entry/exit rules and costs.
type SimulatorConfig struct {
	SignalColumn   string  `json:"signal_column" yaml:"signal_column"`
	ATRColumn      string  `json:"atr_column" yaml:"atr_column"`
	StopATR        float64 `json:"stop_atr" yaml:"stop_atr"`
	TargetATR      float64 `json:"target_atr" yaml:"target_atr"`
	ExitOnReversal bool    `json:"exit_on_reversal" yaml:"exit_on_reversal"`
	MaxPositions   int     `json:"max_positions" yaml:"max_positions"`
	Slippage       float64 `json:"slippage" yaml:"slippage"`
	Commission     float64 `json:"commission" yaml:"commission"`
}

// SizingConfig contains the position sizing limits
type SizingConfig struct {
	RiskFraction            float64 `json:"risk_fraction" yaml:"risk_fraction"`
	MaxNotionalFraction     float64 `json:"max_notional_fraction" yaml:"max_notional_fraction"`
	MinQty                  float64 `json:"min_qty" yaml:"min_qty"`
	MaxQty                  float64 `json:"max_qty" yaml:"max_qty"`
	MinStopDistanceFraction float64 `json:"min_stop_distance_fraction" yaml:"min_stop_distance_fraction"`
	MaxAbsoluteNotional     float64 `json:"max_absolute_notional" yaml:"max_absolute_notional"`
	DynamicNotional         bool    `json:"dynamic_notional" yaml:"dynamic_notional"`
	BaseNotionalFraction    float64 `json:"base_notional_fraction" yaml:"base_notional_fraction"`
	DynamicWindow           int     `json:"dynamic_window" yaml:"dynamic_window"`
}

type AnalyzerConfig struct {
	RiskFreeRate   float64   `json:"risk_free_rate" yaml:"risk_free_rate"`
	PeriodsPerYear float64   `json:"periods_per_year" yaml:"periods_per_year"`
	Confidence     []float64 `json:"confidence" yaml:"confidence"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OrgFile    string `json:"org_file,omitempty" yaml:"org_file,omitempty"`
	ReportFile string `json:"report_file,omitempty" yaml:"report_file,omitempty"`
}

// SweepConfig is the parameter grid for sensitivity runs.
type SweepConfig struct {
	Workers      int       `json:"workers" yaml:"workers"`
	StopATR      []float64 `json:"stop_atr,omitempty" yaml:"stop_atr,omitempty"`
	TargetATR    []float64 `json:"target_atr,omitempty" yaml:"target_atr,omitempty"`
	RiskFraction []float64 `json:"risk_fraction,omitempty" yaml:"risk_fraction,omitempty"`
	Periods      []Period  `json:"periods,omitempty" yaml:"periods,omitempty"`
}

// Period is a labelled time slice; an empty End runs through the last bar.
type Period struct {
	Label string `json:"label" yaml:"label"`
	Start string `json:"start" yaml:"start"`
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
}

type ClickHouseConfig struct {
	Addr     []string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Database string   `json:"database,omitempty" yaml:"database,omitempty"`
	Username string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password string   `json:"password,omitempty" yaml:"password,omitempty"`
	Table    string   `json:"table,omitempty" yaml:"table,omitempty"`
}

type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json or console
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON).
// Fields absent from the file keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Simulator.SignalColumn == "" {
		return fmt.Errorf("simulator.signal_column is required")
	}
	if _, err := c.SimConfig(); err != nil {
		return err
	}
	if _, err := c.AnalyzerConfig(); err != nil {
		return err
	}

	switch c.Journal.Type {
	case "none", "":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	if c.Sweep.Workers < 0 {
		return fmt.Errorf("sweep.workers must not be negative")
	}
	for _, p := range c.Sweep.Periods {
		if _, _, err := p.Bounds(); err != nil {
			return err
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format must be 'json' or 'console'")
	}
	return nil
}

// SimConfig converts the simulator and sizing sections.
func (c *Config) SimConfig() (sim.Config, error) {
	sc := sim.Config{
		StopATR:        c.Simulator.StopATR,
		TargetATR:      c.Simulator.TargetATR,
		InitialCapital: c.Account.Balance,
		Cost: risk.CostModel{
			Slippage:   c.Simulator.Slippage,
			Commission: c.Simulator.Commission,
		},
		Sizing: risk.Policy{
			RiskFraction:            c.Sizing.RiskFraction,
			MaxNotionalFraction:     c.Sizing.MaxNotionalFraction,
			DynamicNotional:         c.Sizing.DynamicNotional,
			BaseNotionalFraction:    c.Sizing.BaseNotionalFraction,
			MaxAbsoluteNotional:     c.Sizing.MaxAbsoluteNotional,
			MinStopDistanceFraction: c.Sizing.MinStopDistanceFraction,
			MinQty:                  c.Sizing.MinQty,
			MaxQty:                  c.Sizing.MaxQty,
		},
		DynamicWindow:  c.Sizing.DynamicWindow,
		ExitOnReversal: c.Simulator.ExitOnReversal,
		MaxPositions:   c.Simulator.MaxPositions,
	}
	if err := sc.Validate(); err != nil {
		return sim.Config{}, err
	}
	return sc, nil
}

func (c *Config) AnalyzerConfig() (perf.Config, error) {
	pc := perf.Config{
		RiskFreeRate:   c.Analyzer.RiskFreeRate,
		PeriodsPerYear: c.Analyzer.PeriodsPerYear,
		Confidences:    append([]float64(nil), c.Analyzer.Confidence...),
	}
	if err := pc.Validate(); err != nil {
		return perf.Config{}, err
	}
	return pc, nil
}

var periodLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// Bounds parses Start and End. A zero end means "through the last bar".
func (p Period) Bounds() (start, end time.Time, err error) {
	parse := func(field, s string) (time.Time, error) {
		for _, layout := range periodLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("sweep period %q: bad %s %q", p.Label, field, s)
	}

	if p.Label == "" {
		return start, end, fmt.Errorf("sweep period label is required")
	}
	if start, err = parse("start", p.Start); err != nil {
		return
	}
	if p.End != "" {
		if end, err = parse("end", p.End); err != nil {
			return
		}
		if !end.After(start) {
			return start, end, fmt.Errorf("sweep period %q: end must be after start", p.Label)
		}
	}
	return start, end, nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:       "SIM-001",
			Currency: "USD",
			Balance:  100000,
		},
		Simulator: SimulatorConfig{
			SignalColumn: "signal",
			ATRColumn:    "atr",
			StopATR:      1.0,
			TargetATR:    2.0,
			Slippage:     0.0005,
			Commission:   1.0,
		},
		Sizing: SizingConfig{
			RiskFraction:            0.01,
			MaxNotionalFraction:     0.05,
			MinQty:                  1,
			MaxQty:                  100,
			MinStopDistanceFraction: 0.005,
			MaxAbsoluteNotional:     50000,
			BaseNotionalFraction:    0.05,
			DynamicWindow:           20,
		},
		Analyzer: AnalyzerConfig{
			RiskFreeRate:   0.02,
			PeriodsPerYear: 252,
			Confidence:     []float64{0.95, 0.99},
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
			ReportFile: "./report.json",
		},
		Sweep: SweepConfig{
			Workers:      4,
			StopATR:      []float64{0.5, 1.0, 1.5, 2.0},
			TargetATR:    []float64{1.0, 2.0, 3.0},
			RiskFraction: []float64{0.005, 0.01},
		},
		ClickHouse: ClickHouseConfig{
			Addr:     []string{"127.0.0.1:9000"},
			Database: "default",
			Username: "default",
			Table:    "bars",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
