package genes

import "github.com/tradingdna/evolve/pkg/types"

// atrGene computes Wilder-smoothed Average True Range, positions price
// within the ATR-derived band, and modulates the base signal by the
// recent ATR trend.
type atrGene struct {
	baseGene
}

func atrSchema() Schema {
	return Schema{
		"period":     {Min: 2, Max: 50},
		"multiplier": {Min: 0.5, Max: 5.0},
	}
}

func newATR(p Params) Gene {
	defaults := Params{"period": 14.0, "multiplier": 2.0}
	g := &atrGene{baseGene: newBase(ATR, atrSchema(), defaults)}
	if p != nil {
		g.params = p.Clone()
	}
	return g
}

func (g *atrGene) Clone() Gene {
	c := *g
	c.params = g.params.Clone()
	return &c
}

func trueRange(h, l, c []float64) []float64 {
	tr := make([]float64, len(h))
	tr[0] = h[0] - l[0]
	for i := 1; i < len(h); i++ {
		hl := h[i] - l[i]
		hc := abs(h[i] - c[i-1])
		lc := abs(l[i] - c[i-1])
		tr[i] = maxOf([]float64{hl, hc, lc})
	}
	return tr
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// wilderSmooth computes Wilder's EMA recurrence, seeded by the mean of the
// first `period` samples.
func wilderSmooth(data []float64, period int) []float64 {
	out := make([]float64, len(data))
	if len(data) < period {
		return out
	}
	out[period-1] = mean(data[:period])
	for i := period; i < len(data); i++ {
		out[i] = (out[i-1]*float64(period-1) + data[i]) / float64(period)
	}
	return out
}

func (g *atrGene) CalculateSignal(window []types.OHLCV) float64 {
	period := g.int("period")
	c := closes(window)
	h := highs(window)
	l := lows(window)
	if len(c) < period+20 || !allFinite(c, h, l) {
		return 0
	}

	tr := trueRange(h, l, c)
	atr := wilderSmooth(tr, period)

	last := len(c) - 1
	atrLast := atr[last]
	close := c[last]
	multiplier := g.float("multiplier")

	upper := close + multiplier*atrLast
	lower := close - multiplier*atrLast
	if upper == lower {
		return 0
	}
	position := (close - lower) / (upper - lower)
	base := (0.5 - position) * 2

	window20 := atr[last-19 : last+1]
	avg20 := mean(window20)
	if avg20 == 0 {
		return clip(base, -1, 1)
	}
	trendMod := atrLast/avg20 - 1
	return clip(base*(1+trendMod), -1, 1)
}
