package genes

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradingdna/evolve/pkg/types"
)

func bar(t time.Time, price float64) types.OHLCV {
	p := decimal.NewFromFloat(price)
	return types.OHLCV{
		Timestamp: t,
		Open:      p,
		High:      p.Mul(decimal.NewFromFloat(1.001)),
		Low:       p.Mul(decimal.NewFromFloat(0.999)),
		Close:     p,
		Volume:    decimal.NewFromFloat(1000),
	}
}

func uptrendWindow(n int) []types.OHLCV {
	out := make([]types.OHLCV, n)
	price := 100.0
	t := time.Now()
	for i := 0; i < n; i++ {
		out[i] = bar(t.Add(time.Duration(i)*time.Hour), price)
		price *= 1.01
	}
	return out
}

func zeroWindow(n int) []types.OHLCV {
	out := make([]types.OHLCV, n)
	t := time.Now()
	for i := 0; i < n; i++ {
		out[i] = bar(t.Add(time.Duration(i)*time.Hour), 0)
	}
	return out
}

// S1: 50 bars of p_t = 100 * 1.01^t, RSI(14, overbought=70, oversold=30)
// must report a signal in [0.3, 1.0].
func TestRSI_S1Scenario(t *testing.T) {
	g, err := New(RSI, Params{"period": 14.0, "overbought": 70.0, "oversold": 30.0})
	require.NoError(t, err)

	window := uptrendWindow(50)
	signal := g.CalculateSignal(window)
	assert.GreaterOrEqual(t, signal, 0.3)
	assert.LessOrEqual(t, signal, 1.0)
}

func TestAllGenes_BoundedAndShortWindowZero(t *testing.T) {
	for _, typ := range AllTypes {
		g, err := New(typ, nil)
		require.NoError(t, err, typ)

		short := []types.OHLCV{bar(time.Now(), 100)}
		assert.Equal(t, 0.0, g.CalculateSignal(short), "type=%s short window", typ)

		window := uptrendWindow(200)
		signal := g.CalculateSignal(window)
		assert.GreaterOrEqual(t, signal, -1.0, "type=%s", typ)
		assert.LessOrEqual(t, signal, 1.0, "type=%s", typ)
	}
}

// An all-zero, full-length window (flat price, no gain/loss anywhere) must
// still yield a neutral signal of exactly 0, the same as the short-window
// case, for every gene type.
func TestAllGenes_AllZeroFullWindowYieldsZero(t *testing.T) {
	window := zeroWindow(200)
	for _, typ := range AllTypes {
		g, err := New(typ, nil)
		require.NoError(t, err, typ)
		assert.Equal(t, 0.0, g.CalculateSignal(window), "type=%s all-zero window", typ)
	}
}

func TestGene_MutateParameterRespectsBounds(t *testing.T) {
	r := rand.New(rand.NewSource(123))
	g, err := New(RSI, nil)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		_, err := g.MutateParameter("period", r)
		require.NoError(t, err)
		p := g.Params()["period"].(float64)
		assert.GreaterOrEqual(t, p, 2.0)
		assert.LessOrEqual(t, p, 50.0)
	}
}

func TestRandomParams_AllGeneTypes(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, typ := range AllTypes {
		params, err := RandomParams(typ, r)
		require.NoError(t, err)
		g, err := New(typ, params)
		require.NoError(t, err)
		assert.NoError(t, g.Validate())
	}
}
