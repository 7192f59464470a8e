package genes

import "github.com/tradingdna/evolve/pkg/types"

// bollingerGene signals based on price position relative to SMA +/-
// std_dev standard-deviation bands.
type bollingerGene struct {
	baseGene
}

func bollingerSchema() Schema {
	return Schema{
		"period":           {Min: 5, Max: 100},
		"std_dev":          {Min: 0.5, Max: 4.0},
		"touch_percentage": {Min: 0.01, Max: 1.0},
	}
}

func newBollinger(p Params) Gene {
	defaults := Params{"period": 20.0, "std_dev": 2.0, "touch_percentage": 1.0}
	g := &bollingerGene{baseGene: newBase(Bollinger, bollingerSchema(), defaults)}
	if p != nil {
		g.params = p.Clone()
	}
	return g
}

func (g *bollingerGene) Clone() Gene {
	c := *g
	c.params = g.params.Clone()
	return &c
}

func (g *bollingerGene) CalculateSignal(window []types.OHLCV) float64 {
	period := g.int("period")
	c := closes(window)
	if len(c) < period || !allFinite(c) {
		return 0
	}

	recent := c[len(c)-period:]
	sma := mean(recent)
	std := stdDev(recent)
	stdMul := g.float("std_dev")

	halfWidth := stdMul * std
	if halfWidth == 0 {
		return 0
	}

	price := c[len(c)-1]
	touch := g.float("touch_percentage")
	if touch == 0 {
		return 0
	}
	return clip((price-sma)/(halfWidth*touch), -1, 1)
}
