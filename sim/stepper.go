package sim

import (
	"fmt"
	"time"

	"github.com/rustyeddy/signaltrader/market"
	"github.com/rustyeddy/signaltrader/risk"
)

// Result is everything a run produces. The caller owns it.
type Result struct {
	InitialCapital float64
	FinalEquity    float64

	Trades []Trade
	Equity []EquityPoint // one point per timeline step
	Skips  []Skip
}

// EquityValues returns the equity curve without timestamps.
func (r *Result) EquityValues() []float64 {
	out := make([]float64, len(r.Equity))
	for i, p := range r.Equity {
		out[i] = p.Equity
	}
	return out
}

// PnLs returns realized PL per trade in log order.
func (r *Result) PnLs() []float64 {
	out := make([]float64, len(r.Trades))
	for i, t := range r.Trades {
		out[i] = t.PL
	}
	return out
}

// SkipCount counts skips with the given reason.
func (r *Result) SkipCount(reason SkipReason) int {
	n := 0
	for _, s := range r.Skips {
		if s.Reason == reason {
			n++
		}
	}
	return n
}

// slot is the per-symbol state machine: FLAT, PENDING (signal seen, waiting
// for the next open) or IN_POSITION.
type slot struct {
	series    *market.Series
	cursor    int
	pend      *pending
	pos       *Position
	lastClose float64 // last finite close seen, for timeouts on a gap bar
}

func (s *slot) symbol() string { return s.series.Symbol }
func (s *slot) last() int      { return s.series.Len() - 1 }
func (s *slot) done() bool     { return s.cursor >= s.series.Len() }

// stepper walks one or more series on a merged timeline. At each timestamp
// the symbols that have a bar are processed in slot order, in three phases:
// pending entries fill at the open, then exits, then new signals. Exits
// therefore always precede entry evaluation for the same bar, and sizing
// only ever sees equity realized before the entry bar.
type stepper struct {
	cfg    Config
	slots  []*slot
	equity float64
	res    *Result
}

func newStepper(cfg Config, series []*market.Series) *stepper {
	st := &stepper{
		cfg:    cfg,
		equity: cfg.InitialCapital,
		res:    &Result{InitialCapital: cfg.InitialCapital},
	}
	for _, s := range series {
		st.slots = append(st.slots, &slot{series: s})
	}
	return st
}

func (st *stepper) run() (*Result, error) {
	for {
		t, ok := st.next()
		if !ok {
			break
		}
		active := st.active(t)

		for _, s := range active {
			b := s.series.At(s.cursor)
			if market.Finite(b.Close) {
				s.lastClose = b.Close
			}
			st.fill(s)
		}
		for _, s := range active {
			if err := st.exit(s); err != nil {
				return nil, err
			}
		}
		for _, s := range active {
			st.signal(s)
		}
		for _, s := range active {
			s.cursor++
		}

		st.res.Equity = append(st.res.Equity, EquityPoint{Time: t, Equity: st.equity})
	}

	st.res.FinalEquity = st.equity
	return st.res, nil
}

// next returns the earliest unprocessed timestamp across all slots.
func (st *stepper) next() (time.Time, bool) {
	var t time.Time
	found := false
	for _, s := range st.slots {
		if s.done() {
			continue
		}
		bt := s.series.Time(s.cursor)
		if !found || bt.Before(t) {
			t, found = bt, true
		}
	}
	return t, found
}

func (st *stepper) active(t time.Time) []*slot {
	var out []*slot
	for _, s := range st.slots {
		if !s.done() && s.series.Time(s.cursor).Equal(t) {
			out = append(out, s)
		}
	}
	return out
}

// exposure counts open and pending positions.
func (st *stepper) exposure() int {
	n := 0
	for _, s := range st.slots {
		if s.pos != nil || s.pend != nil {
			n++
		}
	}
	return n
}

func (st *stepper) skip(s *slot, idx int, reason SkipReason, v []risk.Violation) {
	b := s.series.At(idx)
	st.res.Skips = append(st.res.Skips, Skip{
		Symbol:     s.symbol(),
		Index:      idx,
		Time:       b.Time,
		Signal:     b.Signal,
		Reason:     reason,
		Violations: v,
	})
}

// fill opens the pending position at this bar's open.
func (st *stepper) fill(s *slot) {
	if s.pend == nil {
		return
	}
	p := s.pend
	s.pend = nil

	k := s.cursor
	b := s.series.At(k)
	entry := b.Open
	if !market.Finite(entry) || entry <= 0 {
		st.skip(s, p.signalIdx, SkipBadEntryPrice, nil)
		return
	}

	stop, target := brackets(p.side, entry, p.atr, st.cfg.StopATR, st.cfg.TargetATR)
	size := st.cfg.Sizing.Calculate(risk.Inputs{
		Equity: st.equity,
		Entry:  entry,
		Stop:   stop,
		Side:   int(p.side),
		ATR:    p.atr,
		RefATR: p.refATR,
	})
	if !size.Allowed {
		st.skip(s, p.signalIdx, SkipSizing, size.Violations)
		return
	}

	s.pos = &Position{
		Side:          p.side,
		SignalIdx:     p.signalIdx,
		SignalTime:    s.series.Time(p.signalIdx),
		EntryIdx:      k,
		EntryTime:     b.Time,
		EntryPrice:    entry,
		Qty:           size.Units,
		Stop:          size.Stop,
		Target:        target,
		EquityAtEntry: st.equity,
	}
}

// exit resolves stop, target and reversal on bars after the entry bar, and
// force-closes whatever is still open on the series' final bar.
func (st *stepper) exit(s *slot) error {
	p := s.pos
	if p == nil {
		return nil
	}
	k := s.cursor
	b := s.series.At(k)

	if k > p.EntryIdx {
		if price, reason, hit := checkExit(p, b, st.cfg.ExitOnReversal); hit {
			return st.close(s, k, price, reason)
		}
	}
	if k == s.last() {
		price := b.Close
		if !market.Finite(price) {
			price = s.lastClose
		}
		if !market.Finite(price) || price <= 0 {
			price = p.EntryPrice
		}
		return st.close(s, k, price, ExitTimeout)
	}
	return nil
}

func (st *stepper) close(s *slot, k int, price float64, reason ExitReason) error {
	p := s.pos
	gross, fees, pl, err := realize(p, price, st.cfg.Cost)
	if err != nil {
		return fmt.Errorf("%s bar %d: %w", s.symbol(), k, err)
	}

	st.res.Trades = append(st.res.Trades, Trade{
		Seq:           len(st.res.Trades) + 1,
		Symbol:        s.symbol(),
		Side:          p.Side,
		SignalIdx:     p.SignalIdx,
		EntryIdx:      p.EntryIdx,
		ExitIdx:       k,
		SignalTime:    p.SignalTime,
		EntryTime:     p.EntryTime,
		ExitTime:      s.series.Time(k),
		EntryPrice:    p.EntryPrice,
		ExitPrice:     price,
		Stop:          p.Stop,
		Target:        p.Target,
		Qty:           p.Qty,
		Cost:          fees,
		GrossPL:       gross,
		PL:            pl,
		PLPct:         pl / p.EquityAtEntry,
		EquityAtEntry: p.EquityAtEntry,
		Reason:        reason,
	})
	st.equity += pl
	s.pos = nil
	return nil
}

// signal turns a non-flat signal on a flat slot into a pending entry.
func (st *stepper) signal(s *slot) {
	k := s.cursor
	b := s.series.At(k)
	if b.Signal == market.Flat || s.pos != nil || s.pend != nil {
		return
	}

	switch {
	case k == s.last():
		st.skip(s, k, SkipNoNextBar, nil)
		return
	case !b.HasATR():
		st.skip(s, k, SkipATRUndefined, nil)
		return
	case !market.Finite(b.Close):
		st.skip(s, k, SkipBadPrice, nil)
		return
	case st.cfg.MaxPositions > 0 && st.exposure() >= st.cfg.MaxPositions:
		st.skip(s, k, SkipMaxPositions, nil)
		return
	}

	p := &pending{side: b.Signal, signalIdx: k, atr: b.ATR}
	if st.cfg.Sizing.DynamicNotional {
		p.refATR = refATR(s.series, k, st.cfg.DynamicWindow)
	}
	s.pend = p
}
