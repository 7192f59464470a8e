package genes

import "github.com/tradingdna/evolve/pkg/types"

// movingAverageGene signals based on the normalized distance between price
// and a simple or exponential moving average.
type movingAverageGene struct {
	baseGene
}

func movingAverageSchema() Schema {
	return Schema{
		"period":   {Min: 2, Max: 200},
		"type":     {Enum: []string{"SMA", "EMA"}},
		"distance": {Min: 0.001, Max: 1.0},
	}
}

func newMovingAverage(p Params) Gene {
	defaults := Params{"period": 20.0, "type": "SMA", "distance": 0.02}
	g := &movingAverageGene{baseGene: newBase(MovingAverage, movingAverageSchema(), defaults)}
	if p != nil {
		g.params = p.Clone()
	}
	return g
}

func (g *movingAverageGene) Clone() Gene {
	c := *g
	c.params = g.params.Clone()
	return &c
}

func (g *movingAverageGene) CalculateSignal(window []types.OHLCV) float64 {
	period := g.int("period")
	c := closes(window)
	if len(c) < period || !allFinite(c) {
		return 0
	}

	var ma float64
	if g.str("type") == "EMA" {
		series := emaSeededBySMA(c, period)
		ma = series[len(series)-1]
	} else {
		ma = mean(c[len(c)-period:])
	}
	if ma == 0 {
		return 0
	}

	price := c[len(c)-1]
	distance := g.float("distance")
	if distance == 0 {
		return 0
	}
	return clip((price-ma)/ma/distance, -1, 1)
}
