package backtester

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradingdna/evolve/pkg/types"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func ohlcv(t time.Time, close float64) types.OHLCV {
	c := d(close)
	return types.OHLCV{Timestamp: t, Open: c, High: c, Low: c, Close: c, Volume: d(1000)}
}

// S2: 10 bars all closes in {99,100,101}, constant signal stream, exactly
// two trades: a long opened bar 0 closed on signal at bar 3, a short opened
// bar 3 closed on period_end at bar 9.
func TestSimulator_S2Scenario(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100}
	signals := []float64{0.5, 0.5, 0.5, -0.5, -0.5, -0.5, 0.0, 0.0, 0.0, 0.0}

	base := time.Now()
	window := make([]types.OHLCV, len(closes))
	for i, c := range closes {
		window[i] = ohlcv(base.Add(time.Duration(i)*time.Hour), c)
	}

	cfg := Config{
		SignalThreshold: d(0.2),
		StopLossPct:     d(0.1),
		TakeProfitPct:   d(0.1),
		MaxPositionSize: d(1.0),
		TrailingStopPct: decimal.Zero,
		InitialCapital:  d(10000),
		Commission:      decimal.Zero,
		Slippage:        decimal.Zero,
	}

	result := New(cfg).Run(window, signals)
	require.Len(t, result.Trades, 2)

	first := result.Trades[0]
	assert.Equal(t, types.TradeSideLong, first.Side)
	assert.Equal(t, types.ExitReasonSignal, first.Reason)

	second := result.Trades[1]
	assert.Equal(t, types.TradeSideShort, second.Side)
	assert.Equal(t, types.ExitReasonPeriodEnd, second.Reason)
}

// S4: a trades list of 5 trades against min_trades=10 must zero fitness
// regardless of returns.
func TestFitness_S4Scenario(t *testing.T) {
	metrics := &types.PerformanceMetrics{
		TotalTrades:  5,
		WinRate:      d(0.8),
		TotalReturn:  d(0.5),
		SharpeRatio:  d(2.0),
		ProfitFactor: d(3.0),
	}
	weights := FitnessWeights{"total_return": d(1.0), "sharpe_ratio": d(1.0)}
	cfg := ValidationConfig{MinTrades: 10, MinWinRate: d(0.0), MaxDrawdownAllowed: d(1.0)}

	fitness := Fitness(metrics, weights, cfg)
	assert.True(t, fitness.IsZero())
}

func TestFitness_ProfitFactorBoostAndClamp(t *testing.T) {
	metrics := &types.PerformanceMetrics{
		TotalTrades:  20,
		WinRate:      d(0.6),
		TotalReturn:  d(1.0),
		ProfitFactor: d(2.0),
	}
	weights := FitnessWeights{"total_return": d(1.0)}
	cfg := ValidationConfig{MinTrades: 10, MinWinRate: d(0.5), MaxDrawdownAllowed: d(1.0)}

	fitness := Fitness(metrics, weights, cfg)
	// base sum = 1.0, boosted by 1 + (2-1)*0.1 = 1.1
	assert.True(t, fitness.Sub(d(1.1)).Abs().LessThan(d(0.0001)))
}

func TestMetricsCalculator_EmptyTrades(t *testing.T) {
	m := NewMetricsCalculator().Calculate(nil, nil, decimal.Zero)
	assert.Equal(t, 0, m.TotalTrades)
	assert.True(t, m.ProfitFactor.IsZero())
}
