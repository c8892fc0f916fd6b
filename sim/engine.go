package sim

import (
	"fmt"
	"sort"

	"github.com/rustyeddy/signaltrader/market"
)

// Engine simulates one symbol: at most one position is open at a time.
// An Engine holds only its Config, so one Engine may run many series,
// concurrently if need be.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Run walks the series once, bar by bar, and returns the trade log and an
// equity curve with exactly one point per bar.
func (e *Engine) Run(s *market.Series) (*Result, error) {
	if err := checkSeries(s); err != nil {
		return nil, err
	}
	return newStepper(e.cfg, []*market.Series{s}).run()
}

// Portfolio simulates several symbols on a merged timeline with one
// independent position per symbol and a shared equity account.
type Portfolio struct {
	cfg Config
}

func NewPortfolio(cfg Config) (*Portfolio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Portfolio{cfg: cfg}, nil
}

// Run processes symbols in name order at each timestamp. The equity curve
// has one point per distinct timestamp across all series.
func (p *Portfolio) Run(series ...*market.Series) (*Result, error) {
	seen := make(map[string]bool, len(series))
	sorted := make([]*market.Series, 0, len(series))
	for _, s := range series {
		if err := checkSeries(s); err != nil {
			return nil, err
		}
		if seen[s.Symbol] {
			return nil, &market.ValidationError{
				Index:  market.NoIndex,
				Field:  "symbol",
				Reason: fmt.Sprintf("duplicate series for %q", s.Symbol),
			}
		}
		seen[s.Symbol] = true
		sorted = append(sorted, s)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	return newStepper(p.cfg, sorted).run()
}

func checkSeries(s *market.Series) error {
	if s == nil {
		return &market.ValidationError{Index: market.NoIndex, Field: "series", Reason: "nil series"}
	}
	return market.Validate(s.Bars())
}
