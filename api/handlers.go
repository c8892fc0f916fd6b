package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rustyeddy/signaltrader/backtest"
	"github.com/rustyeddy/signaltrader/market"
	"github.com/rustyeddy/signaltrader/perf"
)

const defaultRunLimit = 50

// POST /api/v1/backtest
func (s *Server) handleBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Persist && s.opts.Store == nil {
		abort(c, http.StatusServiceUnavailable, "NO_JOURNAL", "persist requested but no journal is configured")
		return
	}

	series := make([]*market.Series, len(req.Series))
	for i, sj := range req.Series {
		ser, err := sj.series()
		if err != nil {
			fail(c, err)
			return
		}
		series[i] = ser
	}

	r := &backtest.Runner{
		Config:   req.Config.apply(s.opts.Sim),
		Analyzer: s.analyzer,
		Logger:   s.log.With(zap.String("request_id", c.GetString("request_id"))),
		Dataset:  "api",
	}
	if req.Persist {
		r.Journal = s.opts.Store
	}

	var (
		out *backtest.Result
		err error
	)
	if len(series) == 1 {
		out, err = r.Run(c.Request.Context(), series[0])
	} else {
		out, err = r.RunPortfolio(c.Request.Context(), series...)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, backtestResponse(out))
}

// POST /api/v1/analyze
func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	rep, err := perf.Analyze(req.config(s.analyzer.Config()), req.Equity, req.PnLs)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) requireStore(c *gin.Context) {
	if s.opts.Store == nil {
		abort(c, http.StatusServiceUnavailable, "NO_JOURNAL", "no journal is configured")
		return
	}
	c.Next()
}

// GET /api/v1/runs?limit=n
func (s *Server) handleListRuns(c *gin.Context) {
	limit := defaultRunLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			abort(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.opts.Store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]RunJSON, len(runs))
	for i, r := range runs {
		out[i] = runJSON(r)
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

// GET /api/v1/runs/:id
func (s *Server) handleGetRun(c *gin.Context) {
	run, err := s.opts.Store.GetBacktestRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, runJSON(run))
}

// GET /api/v1/runs/:id/trades
func (s *Server) handleRunTrades(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := s.opts.Store.GetBacktestRun(ctx, id); err != nil {
		fail(c, err)
		return
	}
	trades, err := s.opts.Store.ListTradesByRunID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "trades": tradesJSON(trades)})
}

// GET /api/v1/runs/:id/equity
func (s *Server) handleRunEquity(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := s.opts.Store.GetBacktestRun(ctx, id); err != nil {
		fail(c, err)
		return
	}
	pts, err := s.opts.Store.ListEquityByRunID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "equity": equityJSON(pts)})
}

// GET /api/v1/runs/:id/org
func (s *Server) handleRunOrg(c *gin.Context) {
	org, err := s.opts.Store.ExportBacktestOrg(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.String(http.StatusOK, org)
}
