package genes

import "github.com/tradingdna/evolve/pkg/types"

// volumeGene signals from the ratio of current volume to its rolling
// average, gated by a minimum price-change threshold.
type volumeGene struct {
	baseGene
}

func volumeSchema() Schema {
	return Schema{
		"period":           {Min: 2, Max: 100},
		"threshold":        {Min: 1.01, Max: 10.0},
		"min_price_change": {Min: 0.0001, Max: 0.1},
	}
}

func newVolume(p Params) Gene {
	defaults := Params{"period": 20.0, "threshold": 1.5, "min_price_change": 0.001}
	g := &volumeGene{baseGene: newBase(Volume, volumeSchema(), defaults)}
	if p != nil {
		g.params = p.Clone()
	}
	return g
}

func (g *volumeGene) Clone() Gene {
	c := *g
	c.params = g.params.Clone()
	return &c
}

func (g *volumeGene) CalculateSignal(window []types.OHLCV) float64 {
	period := g.int("period")
	c := closes(window)
	v := volumes(window)
	if len(c) < period+1 || !allFinite(c, v) {
		return 0
	}

	last := len(v) - 1
	avgVol := mean(v[last-period : last])
	if avgVol == 0 {
		return 0
	}
	ratio := v[last] / avgVol
	threshold := g.float("threshold")

	var base float64
	switch {
	case ratio >= threshold:
		base = 1
	case ratio <= 1/threshold:
		base = -1
	default:
		base = 0
	}

	priceChange := (c[last] - c[last-1]) / c[last-1]
	minChange := g.float("min_price_change")
	if abs(priceChange) <= minChange {
		return 0
	}

	return clip(base*sign(priceChange), -1, 1)
}
