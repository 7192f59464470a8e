// Package types provides shared type definitions for the evolutionary
// strategy optimizer.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe represents the bar duration of an OHLCV series.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Valid reports whether the bar satisfies the OHLCV ordering and
// finiteness invariants: low <= min(open,close) <= max(open,close) <= high,
// volume >= 0.
func (b OHLCV) Valid() bool {
	if b.Open.IsZero() && b.High.IsZero() && b.Low.IsZero() && b.Close.IsZero() {
		return false
	}
	minOC := decimal.Min(b.Open, b.Close)
	maxOC := decimal.Max(b.Open, b.Close)
	if b.Low.GreaterThan(minOC) || minOC.GreaterThan(maxOC) || maxOC.GreaterThan(b.High) {
		return false
	}
	if b.Volume.LessThan(decimal.Zero) {
		return false
	}
	return true
}

// TradeSide is the direction of a backtest position.
type TradeSide string

const (
	TradeSideLong  TradeSide = "long"
	TradeSideShort TradeSide = "short"
)

// ExitReason records why a simulated position was closed.
type ExitReason string

const (
	ExitReasonStopLoss     ExitReason = "stop_loss"
	ExitReasonTakeProfit   ExitReason = "take_profit"
	ExitReasonTrailingStop ExitReason = "trailing_stop"
	ExitReasonSignal       ExitReason = "signal"
	ExitReasonPeriodEnd    ExitReason = "period_end"
)

// Trade is one closed round-trip position produced by the backtest simulator.
type Trade struct {
	EntryTime time.Time       `json:"entryTime"`
	ExitTime  time.Time       `json:"exitTime"`
	Side      TradeSide       `json:"side"`
	Entry     decimal.Decimal `json:"entry"`
	Exit      decimal.Decimal `json:"exit"`
	PnL       decimal.Decimal `json:"pnl"`
	Reason    ExitReason      `json:"reason"`
}

// PerformanceMetrics is the metrics-calculator output from a trade log.
type PerformanceMetrics struct {
	TotalReturn   decimal.Decimal `json:"totalReturn"`
	WinRate       decimal.Decimal `json:"winRate"`
	AvgWin        decimal.Decimal `json:"avgWin"`
	AvgLoss       decimal.Decimal `json:"avgLoss"`
	SharpeRatio   decimal.Decimal `json:"sharpeRatio"`
	MaxDrawdown   decimal.Decimal `json:"maxDrawdown"`
	ProfitFactor  decimal.Decimal `json:"profitFactor"`
	TotalTrades   int             `json:"totalTrades"`
	WinningTrades int             `json:"winningTrades"`
	LosingTrades  int             `json:"losingTrades"`
	FinalEquity   decimal.Decimal `json:"finalEquity"`
}

// EquityCurvePoint is one point on the backtest equity curve.
type EquityCurvePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Equity    decimal.Decimal `json:"equity"`
}

// BacktestResult bundles the trade log, equity curve, and metrics produced
// by one simulator run over one chromosome.
type BacktestResult struct {
	Trades      []Trade             `json:"trades"`
	EquityCurve []EquityCurvePoint  `json:"equityCurve"`
	Metrics     *PerformanceMetrics `json:"metrics"`
}
