// Package backtester implements the event-driven Backtest Simulator
// (spec 4.4) and Metrics Calculator (spec 4.5). The simulator's state
// machine — Flat/Long/Short with stop-loss, take-profit, and trailing
// stop — is adapted from the shape of the teacher's
// internal/backtester/engine.go position handling, simplified from a
// multi-symbol, multi-event-type engine to the single-chromosome,
// single-open-position model this spec calls for.
package backtester

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradingdna/evolve/pkg/types"
)

// Config enumerates the configuration inputs of spec 4.4.
type Config struct {
	SignalThreshold decimal.Decimal
	StopLossPct     decimal.Decimal
	TakeProfitPct   decimal.Decimal
	MaxPositionSize decimal.Decimal
	TrailingStopPct decimal.Decimal
	InitialCapital  decimal.Decimal
	Commission      decimal.Decimal
	Slippage        decimal.Decimal
}

type positionState string

const (
	stateFlat  positionState = "flat"
	stateLong  positionState = "long"
	stateShort positionState = "short"
)

// Simulator runs the position state machine over one OHLCV window and a
// parallel per-bar signal stream (one value per bar, as produced by the
// signal aggregator).
type Simulator struct {
	cfg Config
}

// New creates a Simulator with the given risk-management configuration.
func New(cfg Config) *Simulator {
	return &Simulator{cfg: cfg}
}

type openPosition struct {
	side         types.TradeSide
	entryPrice   decimal.Decimal
	entryTime    time.Time
	stopLoss     decimal.Decimal
	takeProfit   decimal.Decimal
	trailingStop decimal.Decimal
}

// Run executes the state machine over window/signals and returns the trade
// log, equity curve, and computed metrics. len(window) must equal
// len(signals).
func (s *Simulator) Run(window []types.OHLCV, signals []float64) *types.BacktestResult {
	result := &types.BacktestResult{}
	if len(window) == 0 || len(window) != len(signals) {
		result.Metrics = &types.PerformanceMetrics{}
		return result
	}

	state := stateFlat
	var pos openPosition
	equity := s.cfg.InitialCapital
	positionSize := s.cfg.MaxPositionSize

	trades := make([]types.Trade, 0)
	curve := make([]types.EquityCurvePoint, 0, len(window))

	threshold, _ := s.cfg.SignalThreshold.Float64()

	for i, bar := range window {
		sig := signals[i]

		if state == stateLong {
			s.updateTrailingLong(&pos, bar)
			if exit, reason, ok := s.checkLongExit(pos, bar, sig, threshold); ok {
				trade := s.closeTrade(pos, bar.Timestamp, exit, reason)
				trades = append(trades, trade)
				equity = applyPnL(equity, trade.PnL, positionSize)
				state = stateFlat
			}
		} else if state == stateShort {
			s.updateTrailingShort(&pos, bar)
			if exit, reason, ok := s.checkShortExit(pos, bar, sig, threshold); ok {
				trade := s.closeTrade(pos, bar.Timestamp, exit, reason)
				trades = append(trades, trade)
				equity = applyPnL(equity, trade.PnL, positionSize)
				state = stateFlat
			}
		}

		// A signal-driven exit may free this same bar to open the opposite
		// position: the signal that closed one side is evaluated once more
		// against the flat-state entry criteria.
		if state == stateFlat {
			switch {
			case sig > threshold:
				pos = s.openPosition(types.TradeSideLong, bar)
				state = stateLong
			case sig < -threshold:
				pos = s.openPosition(types.TradeSideShort, bar)
				state = stateShort
			}
		}

		curve = append(curve, types.EquityCurvePoint{Timestamp: bar.Timestamp, Equity: equity})
	}

	// Force-close any position still open at period end.
	if state != stateFlat {
		last := window[len(window)-1]
		trade := s.closeTrade(pos, last.Timestamp, last.Close, types.ExitReasonPeriodEnd)
		trades = append(trades, trade)
		equity = applyPnL(equity, trade.PnL, positionSize)
		if len(curve) > 0 {
			curve[len(curve)-1].Equity = equity
		}
	}

	result.Trades = trades
	result.EquityCurve = curve
	result.Metrics = NewMetricsCalculator().Calculate(trades, curve, s.cfg.Commission)
	result.Metrics.FinalEquity = equity
	return result
}

func applyPnL(equity, pnl, positionSize decimal.Decimal) decimal.Decimal {
	return equity.Mul(decimal.NewFromInt(1).Add(pnl.Mul(positionSize)))
}

func (s *Simulator) openPosition(side types.TradeSide, bar types.OHLCV) openPosition {
	slip := decimal.NewFromInt(1)
	if side == types.TradeSideLong {
		slip = slip.Add(s.cfg.Commission).Add(s.cfg.Slippage)
	} else {
		slip = slip.Sub(s.cfg.Commission).Sub(s.cfg.Slippage)
	}
	entry := bar.Close.Mul(slip)

	p := openPosition{side: side, entryPrice: entry, entryTime: bar.Timestamp}
	switch side {
	case types.TradeSideLong:
		p.stopLoss = entry.Mul(decimal.NewFromInt(1).Sub(s.cfg.StopLossPct))
		p.takeProfit = entry.Mul(decimal.NewFromInt(1).Add(s.cfg.TakeProfitPct))
		if s.cfg.TrailingStopPct.IsZero() {
			p.trailingStop = decimal.Zero // never triggers: low is never <= 0
		} else {
			p.trailingStop = entry.Mul(decimal.NewFromInt(1).Sub(s.cfg.TrailingStopPct))
		}
	case types.TradeSideShort:
		p.stopLoss = entry.Mul(decimal.NewFromInt(1).Add(s.cfg.StopLossPct))
		p.takeProfit = entry.Mul(decimal.NewFromInt(1).Sub(s.cfg.TakeProfitPct))
		if s.cfg.TrailingStopPct.IsZero() {
			p.trailingStop = decimal.NewFromInt(1 << 30) // never triggers: high never reaches this
		} else {
			p.trailingStop = entry.Mul(decimal.NewFromInt(1).Add(s.cfg.TrailingStopPct))
		}
	}
	return p
}

// updateTrailingLong ratchets the long trailing stop upward only, as
// max(trailing_stop, close * (1 - trailing_stop_pct)).
func (s *Simulator) updateTrailingLong(p *openPosition, bar types.OHLCV) {
	if s.cfg.TrailingStopPct.IsZero() {
		return
	}
	candidate := bar.Close.Mul(decimal.NewFromInt(1).Sub(s.cfg.TrailingStopPct))
	if candidate.GreaterThan(p.trailingStop) {
		p.trailingStop = candidate
	}
}

// updateTrailingShort ratchets the short trailing stop downward only.
func (s *Simulator) updateTrailingShort(p *openPosition, bar types.OHLCV) {
	if s.cfg.TrailingStopPct.IsZero() {
		return
	}
	candidate := bar.Close.Mul(decimal.NewFromInt(1).Add(s.cfg.TrailingStopPct))
	if candidate.LessThan(p.trailingStop) {
		p.trailingStop = candidate
	}
}

// checkLongExit evaluates the long-position exit conditions in the
// conservative tie-break order: stop-loss wins over take-profit when both
// would trigger on the same bar.
func (s *Simulator) checkLongExit(p openPosition, bar types.OHLCV, sig, threshold float64) (decimal.Decimal, types.ExitReason, bool) {
	if bar.Low.LessThanOrEqual(p.stopLoss) {
		return p.stopLoss, types.ExitReasonStopLoss, true
	}
	if bar.Low.LessThanOrEqual(p.trailingStop) {
		return p.trailingStop, types.ExitReasonTrailingStop, true
	}
	if bar.High.GreaterThanOrEqual(p.takeProfit) {
		return p.takeProfit, types.ExitReasonTakeProfit, true
	}
	if sig < -threshold {
		return bar.Close, types.ExitReasonSignal, true
	}
	return decimal.Zero, "", false
}

// checkShortExit is the symmetric counterpart for short positions.
func (s *Simulator) checkShortExit(p openPosition, bar types.OHLCV, sig, threshold float64) (decimal.Decimal, types.ExitReason, bool) {
	if bar.High.GreaterThanOrEqual(p.stopLoss) {
		return p.stopLoss, types.ExitReasonStopLoss, true
	}
	if bar.High.GreaterThanOrEqual(p.trailingStop) {
		return p.trailingStop, types.ExitReasonTrailingStop, true
	}
	if bar.Low.LessThanOrEqual(p.takeProfit) {
		return p.takeProfit, types.ExitReasonTakeProfit, true
	}
	if sig > threshold {
		return bar.Close, types.ExitReasonSignal, true
	}
	return decimal.Zero, "", false
}

func (s *Simulator) closeTrade(p openPosition, exitTime time.Time, exitPrice decimal.Decimal, reason types.ExitReason) types.Trade {
	var pnl decimal.Decimal
	if p.side == types.TradeSideLong {
		pnl = exitPrice.Sub(p.entryPrice).Div(p.entryPrice)
	} else {
		pnl = p.entryPrice.Sub(exitPrice).Div(p.entryPrice)
	}
	return types.Trade{
		EntryTime: p.entryTime,
		ExitTime:  exitTime,
		Side:      p.side,
		Entry:     p.entryPrice,
		Exit:      exitPrice,
		PnL:       pnl,
		Reason:    reason,
	}
}
