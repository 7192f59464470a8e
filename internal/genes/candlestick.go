package genes

import "github.com/tradingdna/evolve/pkg/types"

// candlestickGene detects a handful of classic reversal/continuation
// candle patterns over the last one to three bars and sums their
// configured pattern-strength contributions.
type candlestickGene struct {
	baseGene
}

func candlestickSchema() Schema {
	return Schema{
		"doji_threshold":  {Min: 0.01, Max: 0.5},
		"shadow_ratio":    {Min: 1.0, Max: 5.0},
		"engulfing_size":  {Min: 1.0, Max: 3.0},
		"star_body_size":  {Min: 0.1, Max: 1.0},
		"harami_size":     {Min: 0.1, Max: 1.0},
		"pattern_weight":  {Min: 0.1, Max: 2.0},
	}
}

func newCandlestick(p Params) Gene {
	defaults := Params{
		"doji_threshold": 0.1,
		"shadow_ratio":   2.0,
		"engulfing_size": 1.0,
		"star_body_size": 0.3,
		"harami_size":    0.5,
		"pattern_weight": 1.0,
	}
	g := &candlestickGene{baseGene: newBase(Candlestick, candlestickSchema(), defaults)}
	if p != nil {
		g.params = p.Clone()
	}
	return g
}

func (g *candlestickGene) Clone() Gene {
	c := *g
	c.params = g.params.Clone()
	return &c
}

type candle struct {
	open, high, low, close float64
}

func (c candle) body() float64  { return abs(c.close - c.open) }
func (c candle) range_() float64 {
	r := c.high - c.low
	if r == 0 {
		return 1e-9
	}
	return r
}
func (c candle) upperShadow() float64 {
	return c.high - maxOf([]float64{c.open, c.close})
}
func (c candle) lowerShadow() float64 {
	return minOf([]float64{c.open, c.close}) - c.low
}
func (c candle) bullish() bool { return c.close > c.open }

func toCandle(window []types.OHLCV, i int) candle {
	o, _ := window[i].Open.Float64()
	h, _ := window[i].High.Float64()
	l, _ := window[i].Low.Float64()
	cl, _ := window[i].Close.Float64()
	return candle{open: o, high: h, low: l, close: cl}
}

func (g *candlestickGene) CalculateSignal(window []types.OHLCV) float64 {
	if len(window) < 3 {
		return 0
	}
	n := len(window)
	cur := toCandle(window, n-1)
	prev := toCandle(window, n-2)
	prev2 := toCandle(window, n-3)

	dojiThreshold := g.float("doji_threshold")
	shadowRatio := g.float("shadow_ratio")
	engulfingSize := g.float("engulfing_size")
	starBodySize := g.float("star_body_size")
	haramiSize := g.float("harami_size")
	weight := g.float("pattern_weight")

	var score float64

	// Doji: tiny body relative to range.
	if cur.body()/cur.range_() < dojiThreshold {
		score += 0 // neutral: a doji neither adds to nor changes the other patterns' scores
	}

	// Hammer / hanging man: small body, long lower shadow, short upper shadow.
	if cur.lowerShadow() > shadowRatio*cur.body() && cur.upperShadow() < cur.body() {
		if cur.bullish() {
			score += weight
		} else {
			score -= weight * 0.5
		}
	}

	// Bullish / bearish engulfing.
	if cur.bullish() && !prev.bullish() && cur.body() > engulfingSize*prev.body() &&
		cur.open < prev.close && cur.close > prev.open {
		score += weight
	}
	if !cur.bullish() && prev.bullish() && cur.body() > engulfingSize*prev.body() &&
		cur.open > prev.close && cur.close < prev.open {
		score -= weight
	}

	// Morning / evening star: big down/up candle, small-body middle, big reversal candle.
	if !prev2.bullish() && prev.body()/prev.range_() < starBodySize && cur.bullish() &&
		cur.close > (prev2.open+prev2.close)/2 {
		score += weight
	}
	if prev2.bullish() && prev.body()/prev.range_() < starBodySize && !cur.bullish() &&
		cur.close < (prev2.open+prev2.close)/2 {
		score -= weight
	}

	// Bullish / bearish harami: small body contained within prior large body.
	if cur.body() < haramiSize*prev.body() {
		hi := maxOf([]float64{cur.open, cur.close})
		lo := minOf([]float64{cur.open, cur.close})
		prevHi := maxOf([]float64{prev.open, prev.close})
		prevLo := minOf([]float64{prev.open, prev.close})
		if hi <= prevHi && lo >= prevLo {
			if !prev.bullish() && cur.bullish() {
				score += weight * 0.5
			}
			if prev.bullish() && !cur.bullish() {
				score -= weight * 0.5
			}
		}
	}

	return clip(score, -1, 1)
}
