package sim

import "github.com/rustyeddy/signaltrader/market"

// hitStop reports whether b traded through the stop. A non-finite extreme
// cannot trigger.
func hitStop(p *Position, b market.Bar) bool {
	if p.Side == market.Long {
		return market.Finite(b.Low) && b.Low <= p.Stop
	}
	return market.Finite(b.High) && b.High >= p.Stop
}

func hitTarget(p *Position, b market.Bar) bool {
	if p.Side == market.Long {
		return market.Finite(b.High) && b.High >= p.Target
	}
	return market.Finite(b.Low) && b.Low <= p.Target
}

// checkExit evaluates the resting stop and target against bar b, then the
// reversal rule. If stop and target are both inside the bar, the stop wins:
// bar data cannot tell which was touched first, so assume the adverse move.
func checkExit(p *Position, b market.Bar, reversal bool) (price float64, reason ExitReason, hit bool) {
	if hitStop(p, b) {
		return p.Stop, ExitStop, true
	}
	if hitTarget(p, b) {
		return p.Target, ExitTarget, true
	}
	if reversal && b.Signal.Opposes(p.Side) && market.Finite(b.Close) {
		return b.Close, ExitReversal, true
	}
	return 0, "", false
}
