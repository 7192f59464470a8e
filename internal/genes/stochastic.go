package genes

import "github.com/tradingdna/evolve/pkg/types"

// stochasticGene computes %K from rolling high/low normalization
// (optionally smoothed), %D as the SMA of %K, and combines a
// band-position base signal with a %K-vs-%D crossover term.
type stochasticGene struct {
	baseGene
}

func stochasticSchema() Schema {
	return Schema{
		"k_period":   {Min: 2, Max: 50},
		"d_period":   {Min: 2, Max: 20},
		"smooth_k":   {Min: 1, Max: 10},
		"overbought": {Min: 50, Max: 100},
		"oversold":   {Min: 0, Max: 50},
	}
}

func newStochastic(p Params) Gene {
	defaults := Params{"k_period": 14.0, "d_period": 3.0, "smooth_k": 3.0, "overbought": 80.0, "oversold": 20.0}
	g := &stochasticGene{baseGene: newBase(Stochastic, stochasticSchema(), defaults)}
	if p != nil {
		g.params = p.Clone()
	}
	return g
}

func (g *stochasticGene) Clone() Gene {
	c := *g
	c.params = g.params.Clone()
	return &c
}

func (g *stochasticGene) CalculateSignal(window []types.OHLCV) float64 {
	kPeriod := g.int("k_period")
	dPeriod := g.int("d_period")
	smoothK := g.int("smooth_k")

	c := closes(window)
	h := highs(window)
	l := lows(window)
	needed := kPeriod + smoothK + dPeriod
	if len(c) < needed || !allFinite(c, h, l) {
		return 0
	}

	rawK := make([]float64, 0, smoothK+dPeriod)
	for i := len(c) - (smoothK + dPeriod); i < len(c); i++ {
		hh := maxOf(h[i-kPeriod+1 : i+1])
		ll := minOf(l[i-kPeriod+1 : i+1])
		if hh == ll {
			rawK = append(rawK, 50)
			continue
		}
		rawK = append(rawK, (c[i]-ll)/(hh-ll)*100)
	}

	smoothed := make([]float64, 0, dPeriod)
	for i := smoothK - 1; i < len(rawK); i++ {
		smoothed = append(smoothed, mean(rawK[i-smoothK+1:i+1]))
	}
	if len(smoothed) < dPeriod {
		return 0
	}

	k := smoothed[len(smoothed)-1]
	d := mean(smoothed[len(smoothed)-dPeriod:])

	overbought := g.float("overbought")
	oversold := g.float("oversold")

	var base float64
	switch {
	case k < oversold:
		base = (oversold - k) / oversold
	case k > overbought:
		base = -1 * (k - overbought) / (100 - overbought)
	default:
		mid := (overbought + oversold) / 2
		base = (mid - k) / (overbought - oversold) * 2
	}

	combined := 0.7*base + 0.3*sign(k-d)
	return clip(combined, -1, 1)
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, v := range xs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, v := range xs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
