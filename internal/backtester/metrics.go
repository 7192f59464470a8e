// Package backtester provides performance metrics calculation.
package backtester

import (
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradingdna/evolve/pkg/types"
)

// MetricsCalculator reduces a trade log and equity curve into the metric
// set named in spec 4.5.
type MetricsCalculator struct {
	logger *zap.Logger
}

// NewMetricsCalculator creates a new metrics calculator.
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// Calculate computes total_return, win_rate, avg_win/avg_loss, sharpe_ratio,
// max_drawdown, and profit_factor from the trade log, per spec 4.5.
func (mc *MetricsCalculator) Calculate(
	trades []types.Trade,
	equityCurve []types.EquityCurvePoint,
	commission decimal.Decimal,
) *types.PerformanceMetrics {
	metrics := &types.PerformanceMetrics{}
	if len(trades) == 0 {
		return metrics
	}

	var winning, losing int
	var totalWins, totalLosses, totalReturn decimal.Decimal
	excess := make([]float64, 0, len(trades))

	for _, trade := range trades {
		totalReturn = totalReturn.Add(trade.PnL)
		if trade.PnL.GreaterThan(decimal.Zero) {
			winning++
			totalWins = totalWins.Add(trade.PnL)
		} else if trade.PnL.LessThan(decimal.Zero) {
			losing++
			totalLosses = totalLosses.Add(trade.PnL.Abs())
		}
		e := trade.PnL.Sub(commission)
		ef, _ := e.Float64()
		excess = append(excess, ef)
	}

	metrics.TotalTrades = len(trades)
	metrics.WinningTrades = winning
	metrics.LosingTrades = losing
	metrics.TotalReturn = totalReturn
	metrics.WinRate = decimal.NewFromInt(int64(winning)).Div(decimal.NewFromInt(int64(len(trades))))

	if winning > 0 {
		metrics.AvgWin = totalWins.Div(decimal.NewFromInt(int64(winning)))
	}
	if losing > 0 {
		metrics.AvgLoss = totalLosses.Div(decimal.NewFromInt(int64(losing)))
	}

	// profit_factor = 0 if no losses or no wins.
	if !totalLosses.IsZero() && !totalWins.IsZero() {
		metrics.ProfitFactor = totalWins.Div(totalLosses)
	}

	metrics.SharpeRatio = mc.sharpe(excess)
	metrics.MaxDrawdown = mc.maxDrawdown(equityCurve)

	return metrics
}

// sharpe annualizes the mean/stddev of per-trade excess returns with √252,
// per spec 4.5. Returns 0 if fewer than 2 trades or stddev is zero.
func (mc *MetricsCalculator) sharpe(excess []float64) decimal.Decimal {
	if len(excess) < 2 {
		return decimal.Zero
	}
	m := mc.mean(excess)
	sd := mc.stdDev(excess)
	if sd == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(m / sd * math.Sqrt(252))
}

// maxDrawdown walks the equity curve peak-to-trough.
func (mc *MetricsCalculator) maxDrawdown(curve []types.EquityCurvePoint) decimal.Decimal {
	if len(curve) == 0 {
		return decimal.Zero
	}
	var maxDD decimal.Decimal
	peak := curve[0].Equity
	for _, p := range curve {
		if p.Equity.GreaterThan(peak) {
			peak = p.Equity
		}
		if !peak.IsZero() {
			dd := peak.Sub(p.Equity).Div(peak)
			if dd.GreaterThan(maxDD) {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func (mc *MetricsCalculator) mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func (mc *MetricsCalculator) stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mc.mean(values)
	var sumSquares float64
	for _, v := range values {
		diff := v - m
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}
