package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rustyeddy/signaltrader/config"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgPath   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "trader",
		Short: "Signal-driven backtesting and performance analysis",
		Long: `Trader replays upstream trading signals against OHLC bars with
ATR-based stop and target brackets, risk-based position sizing and
transaction costs, then reports risk-adjusted performance.

It provides tools for:
  - Backtesting annotated bar files or ClickHouse tables
  - Parameter sweeps over stops, targets, risk and periods
  - Analyzing equity curves and trade PnLs
  - Managing run journals (SQLite, CSV, Org)
  - Serving backtests over HTTP`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: console or json (overrides config)")

	root.AddCommand(
		newBacktestCmd(a),
		newSweepCmd(a),
		newAnalyzeCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newJournalCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI with os.Args.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.cfgPath != "" {
		cfg, err := config.LoadFromFile(a.cfgPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	} else {
		a.cfg = config.Default()
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.Log.Format = a.logFormat
	}

	logger, err := newLogger(a.cfg.Log)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// newLogger builds a zap logger writing to stderr so command output on
// stdout stays clean.
func newLogger(lc config.LogConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if lc.Level != "" {
		l, err := zapcore.ParseLevel(lc.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	var zc zap.Config
	switch strings.ToLower(lc.Format) {
	case "json":
		zc = zap.NewProductionConfig()
	case "", "console":
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("log format %q: want console or json", lc.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
