package sim

import "github.com/rustyeddy/signaltrader/risk"

// realize computes direction * (exit - entry) * qty less the round-trip cost.
func realize(p *Position, exit float64, cost risk.CostModel) (gross, fees, pl float64, err error) {
	fees, err = cost.RoundTrip(p.Qty, p.EntryPrice)
	if err != nil {
		return 0, 0, 0, err
	}
	gross = p.dir() * (exit - p.EntryPrice) * p.Qty
	return gross, fees, gross - fees, nil
}
