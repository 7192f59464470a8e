// Package types provides configuration types for the evolutionary strategy
// optimizer.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskManagementConfig mirrors the `portfolio.risk_management`
// configuration block. The backtest simulator does not consume this type;
// it takes a backtester.Config built from internal/config.
type RiskManagementConfig struct {
	SignalThreshold decimal.Decimal `mapstructure:"signal_threshold" json:"signalThreshold"`
	StopLossPct     decimal.Decimal `mapstructure:"stop_loss_pct" json:"stopLossPct"`
	TakeProfitPct   decimal.Decimal `mapstructure:"take_profit_pct" json:"takeProfitPct"`
	MaxPositionSize decimal.Decimal `mapstructure:"max_position_size" json:"maxPositionSize"`
	TrailingStopPct decimal.Decimal `mapstructure:"trailing_stop_pct" json:"trailingStopPct"`
	InitialCapital  decimal.Decimal `mapstructure:"initial_capital" json:"initialCapital"`
	Commission      decimal.Decimal `mapstructure:"commission" json:"commission"`
	Slippage        decimal.Decimal `mapstructure:"slippage" json:"slippage"`
}

// ValidationConfig is the `population.evolution.validation` fitness-gate
// configuration block.
type ValidationConfig struct {
	MinTrades         int             `mapstructure:"min_trades" json:"minTrades"`
	MinWinRate        decimal.Decimal `mapstructure:"min_win_rate" json:"minWinRate"`
	MaxDrawdownAllowed decimal.Decimal `mapstructure:"max_drawdown" json:"maxDrawdownAllowed"`
}

// ServerConfig configures the optional read-only status/report HTTP surface.
type ServerConfig struct {
	Host          string        `mapstructure:"host" json:"host"`
	Port          int           `mapstructure:"port" json:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" json:"readTimeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" json:"writeTimeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics" json:"enableMetrics"`
}

// DataConfig configures market-data storage.
type DataConfig struct {
	DatabasePath string        `mapstructure:"database_path" json:"databasePath"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" json:"cacheTtl"`
}
