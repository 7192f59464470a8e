package genes

import (
	"github.com/tradingdna/evolve/pkg/types"
)

// rsiGene computes Wilder's RSI and maps it into a bounded directional
// signal: a centered linear mapping in the neutral band, and
// overshoot-proportional signals outside the overbought/oversold levels.
type rsiGene struct {
	baseGene
}

func rsiSchema() Schema {
	return Schema{
		"period":     {Min: 2, Max: 50},
		"overbought": {Min: 50, Max: 95},
		"oversold":   {Min: 5, Max: 50},
	}
}

func newRSI(p Params) Gene {
	defaults := Params{"period": 14.0, "overbought": 70.0, "oversold": 30.0}
	g := &rsiGene{baseGene: newBase(RSI, rsiSchema(), defaults)}
	if p != nil {
		g.params = p.Clone()
	}
	return g
}

func (g *rsiGene) Clone() Gene {
	c := *g
	c.params = g.params.Clone()
	return &c
}

func (g *rsiGene) CalculateSignal(window []types.OHLCV) float64 {
	period := g.int("period")
	c := closes(window)
	if len(c) < period+1 || !allFinite(c) {
		return 0
	}

	gains := make([]float64, 0, period)
	losses := make([]float64, 0, period)
	for i := 1; i <= period; i++ {
		delta := c[i] - c[i-1]
		if delta > 0 {
			gains = append(gains, delta)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -delta)
		}
	}
	avgGain := mean(gains)
	avgLoss := mean(losses)

	for i := period + 1; i < len(c); i++ {
		delta := c[i] - c[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgGain == 0 && avgLoss == 0 {
		return 0
	}

	var rsi float64
	if avgLoss == 0 {
		rsi = 100
	} else {
		rs := avgGain / avgLoss
		rsi = 100 - 100/(1+rs)
	}

	overbought := g.float("overbought")
	oversold := g.float("oversold")

	var signal float64
	switch {
	case rsi > overbought:
		signal = -1 * (rsi - overbought) / (100 - overbought)
	case rsi < oversold:
		signal = (oversold - rsi) / oversold
	default:
		mid := (overbought + oversold) / 2
		signal = (mid - rsi) / (overbought - oversold) * 2
	}
	return clip(signal, -1, 1)
}
