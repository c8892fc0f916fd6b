package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/signaltrader/api"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr string
		db   string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve backtests and stored runs over HTTP",
		Long: `Serve starts the JSON API:

  GET  /health
  POST /api/v1/backtest
  POST /api/v1/analyze
  GET  /api/v1/runs
  GET  /api/v1/runs/:id[/trades|/equity|/org]

Run endpoints need a SQLite journal (--db or journal.db_path).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := a.cfg.SimConfig()
			if err != nil {
				return err
			}
			pc, err := a.cfg.AnalyzerConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			if a.cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			opts := api.Options{
				Addr:           addr,
				AllowedOrigins: a.cfg.Server.AllowedOrigins,
				Sim:            sc,
				Perf:           pc,
				Logger:         a.logger,
			}
			if db != "" || a.cfg.Journal.Type == "sqlite" {
				j, err := a.openSQLite(db)
				if err != nil {
					return err
				}
				defer j.Close()
				opts.Store = j
			}

			srv, err := api.NewServer(opts)
			if err != nil {
				return err
			}

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVarP(&db, "db", "d", "", "SQLite journal for persisted runs (overrides config)")
	return cmd
}
