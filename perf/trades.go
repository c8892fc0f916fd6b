package perf

import "math"

// LossFloor stands in for a zero loss sum in the profit factor.
const LossFloor = 1e-9

// TradeStats are computed from realized trade PnLs in account currency.
// A trade with pl > 0 is a win; everything else counts as a loss.
type TradeStats struct {
	Count  int
	Wins   int
	Losses int

	NetPnL       float64
	GrossProfit  float64
	GrossLoss    float64 // sum of losing pl, <= 0
	WinRate      float64
	ProfitFactor float64
	AvgWin       float64
	AvgLoss      float64 // <= 0
	Expectancy   float64
	LargestWin   float64
	LargestLoss  float64

	// WinLossRatio is AvgWin / |AvgLoss|. Undefined when there are wins
	// but no losing amount to compare them to.
	WinLossRatio        float64
	WinLossRatioDefined bool

	// RecoveryFactor is NetPnL / |worst trade|. Undefined when no trade lost.
	RecoveryFactor        float64
	RecoveryFactorDefined bool
}

func Trades(pnls []float64) TradeStats {
	st := TradeStats{WinLossRatioDefined: true, RecoveryFactorDefined: true}

	worst := math.Inf(1)
	for _, pl := range pnls {
		if !finite(pl) {
			continue
		}
		st.Count++
		st.NetPnL += pl
		if pl > 0 {
			st.Wins++
			st.GrossProfit += pl
			st.LargestWin = math.Max(st.LargestWin, pl)
		} else {
			st.Losses++
			st.GrossLoss += pl
			st.LargestLoss = math.Min(st.LargestLoss, pl)
		}
		worst = math.Min(worst, pl)
	}
	if st.Count == 0 {
		return st
	}

	st.WinRate = float64(st.Wins) / float64(st.Count)
	st.ProfitFactor = st.GrossProfit / math.Max(math.Abs(st.GrossLoss), LossFloor)
	if st.Wins > 0 {
		st.AvgWin = st.GrossProfit / float64(st.Wins)
	}
	if st.Losses > 0 {
		st.AvgLoss = st.GrossLoss / float64(st.Losses)
	}
	st.Expectancy = st.WinRate*st.AvgWin + (1-st.WinRate)*st.AvgLoss

	switch {
	case st.AvgLoss != 0:
		st.WinLossRatio = st.AvgWin / math.Abs(st.AvgLoss)
	case st.AvgWin > 0:
		st.WinLossRatioDefined = false
	}

	if worst < 0 {
		st.RecoveryFactor = st.NetPnL / math.Abs(worst)
	} else {
		st.RecoveryFactorDefined = false
	}
	return st
}
