package genes

import (
	"math"

	"github.com/tradingdna/evolve/pkg/types"
)

// macdGene computes MACD = EMA(fast) - EMA(slow), a signal line as the EMA
// of the MACD line, and maps the histogram (MACD - signal) to a bounded
// signal via a configured divergence normalization constant.
type macdGene struct {
	baseGene
}

func macdSchema() Schema {
	return Schema{
		"fast_period":   {Min: 2, Max: 50},
		"slow_period":   {Min: 5, Max: 100},
		"signal_period": {Min: 2, Max: 50},
		"divergence":    {Min: 0.01, Max: 1000},
	}
}

func newMACD(p Params) Gene {
	defaults := Params{"fast_period": 12.0, "slow_period": 26.0, "signal_period": 9.0, "divergence": 1.0}
	g := &macdGene{baseGene: newBase(MACD, macdSchema(), defaults)}
	if p != nil {
		g.params = p.Clone()
	}
	return g
}

func (g *macdGene) Clone() Gene {
	c := *g
	c.params = g.params.Clone()
	return &c
}

// emaSeededBySMA computes an EMA series seeded at index period-1 by the
// SMA of the first `period` samples, matching the original indicator's
// initialization so the histogram converges identically.
func emaSeededBySMA(data []float64, period int) []float64 {
	out := make([]float64, len(data))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(data) < period {
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[period-1] = mean(data[:period])
	for i := period; i < len(data); i++ {
		out[i] = data[i]*alpha + out[i-1]*(1-alpha)
	}
	return out
}

func (g *macdGene) CalculateSignal(window []types.OHLCV) float64 {
	fast := g.int("fast_period")
	slow := g.int("slow_period")
	sig := g.int("signal_period")
	c := closes(window)

	maxP := fast
	if slow > maxP {
		maxP = slow
	}
	if sig > maxP {
		maxP = sig
	}
	if len(c) < maxP || !allFinite(c) {
		return 0
	}

	emaFast := emaSeededBySMA(c, fast)
	emaSlow := emaSeededBySMA(c, slow)

	macdLine := make([]float64, len(c))
	for i := range macdLine {
		macdLine[i] = emaFast[i] - emaSlow[i]
	}

	startIdx := -1
	for i, v := range macdLine {
		if !math.IsNaN(v) {
			startIdx = i
			break
		}
	}
	if startIdx < 0 || len(macdLine)-startIdx < sig {
		return 0
	}

	signalLine := make([]float64, len(macdLine))
	for i := range signalLine {
		signalLine[i] = math.NaN()
	}
	alphaSig := 2.0 / float64(sig+1)
	signalLine[startIdx+sig-1] = mean(macdLine[startIdx : startIdx+sig])
	for i := startIdx + sig; i < len(macdLine); i++ {
		signalLine[i] = macdLine[i]*alphaSig + signalLine[i-1]*(1-alphaSig)
	}

	last := len(macdLine) - 1
	if math.IsNaN(signalLine[last]) {
		return 0
	}
	histogram := macdLine[last] - signalLine[last]

	divergence := g.float("divergence")
	if divergence == 0 {
		return 0
	}
	return clip(histogram/divergence, -1, 1)
}
