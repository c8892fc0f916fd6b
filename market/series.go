package market

import (
	"sort"
	"time"
)

// Series is an ordered, validated, read-only sequence of bars for one symbol.
// Concurrent readers may share a Series; nothing mutates it after NewSeries.
type Series struct {
	Symbol string
	bars   []Bar
}

// NewSeries validates bars and takes a private copy of them.
func NewSeries(symbol string, bars []Bar) (*Series, error) {
	if err := Validate(bars); err != nil {
		return nil, err
	}
	cp := make([]Bar, len(bars))
	copy(cp, bars)
	return &Series{Symbol: symbol, bars: cp}, nil
}

func (s *Series) Len() int { return len(s.bars) }

// At returns bar i by value.
func (s *Series) At(i int) Bar { return s.bars[i] }

func (s *Series) Time(i int) time.Time { return s.bars[i].Time }

// Bars returns a copy of the underlying bars.
func (s *Series) Bars() []Bar {
	cp := make([]Bar, len(s.bars))
	copy(cp, s.bars)
	return cp
}

// Start and End return the first and last timestamps (zero for an empty series).
func (s *Series) Start() time.Time {
	if len(s.bars) == 0 {
		return time.Time{}
	}
	return s.bars[0].Time
}

func (s *Series) End() time.Time {
	if len(s.bars) == 0 {
		return time.Time{}
	}
	return s.bars[len(s.bars)-1].Time
}

// IndexOf returns the index of the bar stamped t, or -1.
func (s *Series) IndexOf(t time.Time) int {
	i := sort.Search(len(s.bars), func(i int) bool { return !s.bars[i].Time.Before(t) })
	if i < len(s.bars) && s.bars[i].Time.Equal(t) {
		return i
	}
	return -1
}

// Slice returns the bars with start <= Time < end as a new Series.
// A zero end means "through the last bar". The result shares storage
// with s, which is safe because neither is ever mutated.
func (s *Series) Slice(start, end time.Time) *Series {
	lo := sort.Search(len(s.bars), func(i int) bool { return !s.bars[i].Time.Before(start) })
	hi := len(s.bars)
	if !end.IsZero() {
		hi = sort.Search(len(s.bars), func(i int) bool { return !s.bars[i].Time.Before(end) })
	}
	if hi < lo {
		hi = lo
	}
	return &Series{Symbol: s.Symbol, bars: s.bars[lo:hi:hi]}
}
