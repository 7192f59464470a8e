package backtester

import (
	"github.com/shopspring/decimal"

	"github.com/tradingdna/evolve/pkg/types"
)

// ValidationConfig names the validity-gate thresholds of spec 4.5.
type ValidationConfig struct {
	MinTrades          int
	MinWinRate         decimal.Decimal
	MaxDrawdownAllowed decimal.Decimal
}

// FitnessWeights maps a metric name to its weight in the weighted-sum
// fitness formula, per the configured `fitness.weights` map.
type FitnessWeights map[string]decimal.Decimal

// metricValue resolves one named metric to the decimal value the weighted
// fitness sum reads it as.
func metricValue(m *types.PerformanceMetrics, name string) decimal.Decimal {
	switch name {
	case "total_return":
		return m.TotalReturn
	case "win_rate":
		return m.WinRate
	case "sharpe_ratio":
		return m.SharpeRatio
	case "profit_factor":
		return m.ProfitFactor
	case "avg_win":
		return m.AvgWin
	case "avg_loss":
		return m.AvgLoss
	case "max_drawdown":
		return m.MaxDrawdown
	default:
		return decimal.Zero
	}
}

// Fitness reduces a metrics map to a scalar fitness value, per spec 4.5:
// validity gates zero the fitness outright; otherwise a weighted sum of
// configured metrics is boosted for profit_factor > 1 and clamped to >= 0.
func Fitness(m *types.PerformanceMetrics, weights FitnessWeights, cfg ValidationConfig) decimal.Decimal {
	if m.TotalTrades < cfg.MinTrades {
		return decimal.Zero
	}
	if m.WinRate.LessThan(cfg.MinWinRate) {
		return decimal.Zero
	}
	if m.MaxDrawdown.GreaterThan(cfg.MaxDrawdownAllowed) {
		return decimal.Zero
	}

	var sum decimal.Decimal
	for name, weight := range weights {
		sum = sum.Add(metricValue(m, name).Mul(weight))
	}

	if m.ProfitFactor.GreaterThan(decimal.NewFromInt(1)) {
		boost := decimal.NewFromInt(1).Add(m.ProfitFactor.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromFloat(0.1)))
		sum = sum.Mul(boost)
	}

	if sum.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return sum
}
