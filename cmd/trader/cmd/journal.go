package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/signaltrader/backtest"
	"github.com/rustyeddy/signaltrader/journal"
)

func newJournalCmd(a *app) *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query the run journal",
		Long: `Query and display runs and trades from a SQLite journal.

Subcommands:
  runs   - List recent runs
  run    - Show one run
  trades - List the trades of a run
  trade  - Show one trade
  day    - List trades closed on a specific day
  org    - Export a run and its trades as Org-mode

Examples:
  trader journal runs --db runs.sqlite
  trader journal org <run-id> -o run.org
  trader journal day 2024-01-15`,
	}
	cmd.PersistentFlags().StringVarP(&db, "db", "d", "", "path to SQLite journal DB (overrides config)")

	withDB := func(fn func(cmd *cobra.Command, j *journal.SQLite, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			j, err := a.openSQLite(db)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer j.Close()
			return fn(cmd, j, args)
		}
	}

	var limit int
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: withDB(func(cmd *cobra.Command, j *journal.SQLite, _ []string) error {
			runs, err := j.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-26s %-20s %-12s %7s %10s %8s\n", "RUN ID", "CREATED", "SYMBOL", "TRADES", "RETURN%", "MAXDD%")
			for _, r := range runs {
				fmt.Fprintf(w, "%-26s %-20s %-12s %7d %10.2f %8.2f\n",
					r.RunID, r.Created.Format("2006-01-02 15:04:05"), r.Symbol, r.Trades, r.ReturnPct, r.MaxDDPct)
			}
			return nil
		}),
	}
	runsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs")

	runCmd := &cobra.Command{
		Use:   "run <run-id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: withDB(func(cmd *cobra.Command, j *journal.SQLite, args []string) error {
			r, err := j.GetBacktestRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			backtest.PrintBacktestRun(cmd.OutOrStdout(), r)
			return nil
		}),
	}

	tradesCmd := &cobra.Command{
		Use:   "trades <run-id>",
		Short: "List the trades of a run as Org-mode",
		Args:  cobra.ExactArgs(1),
		RunE: withDB(func(cmd *cobra.Command, j *journal.SQLite, args []string) error {
			recs, err := j.ListTradesByRunID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
			return nil
		}),
	}

	tradeCmd := &cobra.Command{
		Use:   "trade <trade-id>",
		Short: "Get details of a specific trade",
		Args:  cobra.ExactArgs(1),
		RunE: withDB(func(cmd *cobra.Command, j *journal.SQLite, args []string) error {
			rec, err := j.GetTrade(args[0])
			if err != nil {
				return fmt.Errorf("get trade: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
			return nil
		}),
	}

	dayCmd := &cobra.Command{
		Use:   "day <YYYY-MM-DD>",
		Short: "List trades closed on a specific day (UTC)",
		Args:  cobra.ExactArgs(1),
		RunE: withDB(func(cmd *cobra.Command, j *journal.SQLite, args []string) error {
			start, end, err := dayBounds(time.UTC, args[0])
			if err != nil {
				return fmt.Errorf("date: %w", err)
			}
			recs, err := j.ListTradesClosedBetween(start, end)
			if err != nil {
				return fmt.Errorf("query trades: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
			return nil
		}),
	}

	var orgOut string
	orgCmd := &cobra.Command{
		Use:   "org <run-id>",
		Short: "Export a run and its trades as Org-mode",
		Args:  cobra.ExactArgs(1),
		RunE: withDB(func(cmd *cobra.Command, j *journal.SQLite, args []string) error {
			s, err := j.ExportBacktestOrg(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if orgOut == "" {
				fmt.Fprint(cmd.OutOrStdout(), s)
				return nil
			}
			return os.WriteFile(orgOut, []byte(s), 0644)
		}),
	}
	orgCmd.Flags().StringVarP(&orgOut, "output", "o", "", "write to this file instead of stdout")

	cmd.AddCommand(runsCmd, runCmd, tradesCmd, tradeCmd, dayCmd, orgCmd)
	return cmd
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour), nil
}
