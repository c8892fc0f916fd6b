package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rustyeddy/signaltrader/journal"
	"github.com/rustyeddy/signaltrader/perf"
	"github.com/rustyeddy/signaltrader/sim"
)

// Store is the journal the server persists runs to and reads them back from.
type Store interface {
	journal.Journal
	journal.RunRecorder
	GetBacktestRun(ctx context.Context, runID string) (journal.BacktestRun, error)
	ListRuns(ctx context.Context, limit int) ([]journal.BacktestRun, error)
	ListTradesByRunID(ctx context.Context, runID string) ([]journal.TradeRecord, error)
	ListEquityByRunID(ctx context.Context, runID string) ([]journal.EquitySnapshot, error)
	ExportBacktestOrg(ctx context.Context, runID string) (string, error)
}

type Options struct {
	Addr           string
	AllowedOrigins []string
	Sim            sim.Config
	Perf           perf.Config
	Store          Store // optional; run endpoints answer 503 without it
	Logger         *zap.Logger
}

type Server struct {
	opts     Options
	analyzer *perf.Analyzer
	log      *zap.Logger
	engine   *gin.Engine
	http     *http.Server
}

func NewServer(opts Options) (*Server, error) {
	if err := opts.Sim.Validate(); err != nil {
		return nil, err
	}
	an, err := perf.NewAnalyzer(opts.Perf)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(RequestID(), Logger(log), Recovery(log), CORS(opts.AllowedOrigins))

	s := &Server{
		opts:     opts,
		analyzer: an,
		log:      log,
		engine:   engine,
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api/v1")
	{
		api.POST("/backtest", s.handleBacktest)
		api.POST("/analyze", s.handleAnalyze)

		runs := api.Group("/runs", s.requireStore)
		runs.GET("", s.handleListRuns)
		runs.GET("/:id", s.handleGetRun)
		runs.GET("/:id/trades", s.handleRunTrades)
		runs.GET("/:id/equity", s.handleRunEquity)
		runs.GET("/:id/org", s.handleRunOrg)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		abort(c, http.StatusNotFound, "NOT_FOUND", "no route for "+c.Request.URL.Path)
	})
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.opts.Addr))
		errc <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("http server shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(sctx)
}
