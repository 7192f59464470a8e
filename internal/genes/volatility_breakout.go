package genes

import "github.com/tradingdna/evolve/pkg/types"

// volatilityBreakoutGene detects a consolidation regime (low recent
// normalized range) and signals a directional breakout when price nears
// the consolidation band's edge.
type volatilityBreakoutGene struct {
	baseGene
}

func volatilityBreakoutSchema() Schema {
	return Schema{
		"period":                {Min: 5, Max: 100},
		"multiplier":            {Min: 0.5, Max: 5.0},
		"breakout_threshold":    {Min: 0.001, Max: 0.2},
		"consolidation_periods": {Min: 2, Max: 50},
	}
}

func newVolatilityBreakout(p Params) Gene {
	defaults := Params{"period": 20.0, "multiplier": 2.0, "breakout_threshold": 0.02, "consolidation_periods": 5.0}
	g := &volatilityBreakoutGene{baseGene: newBase(VolatilityBreakout, volatilityBreakoutSchema(), defaults)}
	if p != nil {
		g.params = p.Clone()
	}
	return g
}

func (g *volatilityBreakoutGene) Clone() Gene {
	c := *g
	c.params = g.params.Clone()
	return &c
}

func (g *volatilityBreakoutGene) CalculateSignal(window []types.OHLCV) float64 {
	period := g.int("period")
	consolidationPeriods := g.int("consolidation_periods")
	c := closes(window)
	h := highs(window)
	l := lows(window)

	needed := period + consolidationPeriods
	if len(c) < needed || !allFinite(c, h, l) {
		return 0
	}
	if allZero(c) {
		return 0
	}

	normRanges := make([]float64, 0, consolidationPeriods)
	for i := len(c) - consolidationPeriods; i < len(c); i++ {
		if c[i] == 0 {
			normRanges = append(normRanges, 0)
			continue
		}
		normRanges = append(normRanges, (h[i]-l[i])/c[i])
	}
	avgNormRange := mean(normRanges)

	breakoutThreshold := g.float("breakout_threshold")
	if avgNormRange >= breakoutThreshold {
		return 0
	}

	recent := c[len(c)-period:]
	sma := mean(recent)
	std := stdDev(recent)
	multiplier := g.float("multiplier")

	upper := sma + multiplier*std
	lower := sma - multiplier*std
	close := c[len(c)-1]

	if close >= upper*(1-breakoutThreshold) {
		return 1
	}
	if close <= lower*(1+breakoutThreshold) {
		return -1
	}
	return 0
}
