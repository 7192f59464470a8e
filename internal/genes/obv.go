package genes

import "github.com/tradingdna/evolve/pkg/types"

// obvGene tracks signed cumulative volume and flags divergence between
// volume-flow direction and price direction.
type obvGene struct {
	baseGene
}

func obvSchema() Schema {
	return Schema{
		"period":    {Min: 2, Max: 100},
		"threshold": {Min: 0.001, Max: 1.0},
	}
}

func newOBV(p Params) Gene {
	defaults := Params{"period": 20.0, "threshold": 0.05}
	g := &obvGene{baseGene: newBase(OBV, obvSchema(), defaults)}
	if p != nil {
		g.params = p.Clone()
	}
	return g
}

func (g *obvGene) Clone() Gene {
	c := *g
	c.params = g.params.Clone()
	return &c
}

func (g *obvGene) CalculateSignal(window []types.OHLCV) float64 {
	period := g.int("period")
	c := closes(window)
	v := volumes(window)
	if len(c) < period+2 || !allFinite(c, v) {
		return 0
	}

	obv := make([]float64, len(c))
	for i := 1; i < len(c); i++ {
		switch {
		case c[i] > c[i-1]:
			obv[i] = obv[i-1] + v[i]
		case c[i] < c[i-1]:
			obv[i] = obv[i-1] - v[i]
		default:
			obv[i] = obv[i-1]
		}
	}

	last := len(obv) - 1
	obvPrev := obv[last-1]
	deltaObv := obv[last] - obvPrev
	deltaPrice := c[last] - c[last-1]

	if obvPrev == 0 {
		return 0
	}
	ratio := abs(deltaObv / abs(obvPrev))
	threshold := g.float("threshold")

	obvSign := sign(deltaObv)
	priceSign := sign(deltaPrice)

	if ratio > threshold && obvSign != priceSign && obvSign != 0 {
		return clip(-priceSign, -1, 1)
	}
	if obvSign == priceSign && obvSign != 0 {
		return clip(priceSign*0.5, -1, 1)
	}
	return 0
}
