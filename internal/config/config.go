// Package config loads the optimizer's YAML configuration via viper, per
// spec 6's configuration section. The teacher's go.mod already carries
// spf13/viper but cmd/server/main.go never wires it up; this package wires
// it.
package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/tradingdna/evolve/internal/backtester"
)

// EvolutionConfig holds population.evolution's ranges and thresholds.
type EvolutionConfig struct {
	MutationRateMin       float64                    `mapstructure:"mutation_rate_min"`
	MutationRateMax       float64                    `mapstructure:"mutation_rate_max"`
	SelectionPressureMin  float64                    `mapstructure:"selection_pressure_min"`
	SelectionPressureMax  float64                    `mapstructure:"selection_pressure_max"`
	GenerationIntervalHrs float64                    `mapstructure:"generation_interval_hours"`
	DiversityThresholdMin float64                    `mapstructure:"diversity_threshold_min"`
	DiversityThresholdMax float64                    `mapstructure:"diversity_threshold_max"`
	FitnessWeights        map[string]float64         `mapstructure:"fitness_weights"`
	Validation            ValidationConfig           `mapstructure:"validation"`
}

// ValidationConfig mirrors spec 6's validation block.
type ValidationConfig struct {
	MinTrades        int     `mapstructure:"min_trades"`
	MinWinRate       float64 `mapstructure:"min_win_rate"`
	MaxDrawdown      float64 `mapstructure:"max_drawdown"`
}

// RiskManagementConfig mirrors spec 6's portfolio.risk_management block.
type RiskManagementConfig struct {
	SignalThreshold float64 `mapstructure:"signal_threshold"`
	StopLossPct     float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct   float64 `mapstructure:"take_profit_pct"`
	MaxPositionSize float64 `mapstructure:"max_position_size"`
	TrailingStopPct float64 `mapstructure:"trailing_stop_pct"`
	InitialCapital  float64 `mapstructure:"initial_capital"`
	Commission      float64 `mapstructure:"commission"`
	Slippage        float64 `mapstructure:"slippage"`
}

// ToFitnessWeights converts the YAML fitness-weights map into the
// decimal-typed map the fitness reducer consumes.
func (e EvolutionConfig) ToFitnessWeights() backtester.FitnessWeights {
	out := make(backtester.FitnessWeights, len(e.FitnessWeights))
	for k, v := range e.FitnessWeights {
		out[k] = decimal.NewFromFloat(v)
	}
	return out
}

// ToValidationConfig converts the YAML validation block into the
// decimal-typed ValidationConfig the fitness reducer consumes.
func (e EvolutionConfig) ToValidationConfig() backtester.ValidationConfig {
	return backtester.ValidationConfig{
		MinTrades:          e.Validation.MinTrades,
		MinWinRate:         decimal.NewFromFloat(e.Validation.MinWinRate),
		MaxDrawdownAllowed: decimal.NewFromFloat(e.Validation.MaxDrawdown),
	}
}

// ToBacktesterConfig converts the YAML risk-management block into the
// decimal-typed Config the simulator actually consumes.
func (r RiskManagementConfig) ToBacktesterConfig() backtester.Config {
	return backtester.Config{
		SignalThreshold: decimal.NewFromFloat(r.SignalThreshold),
		StopLossPct:     decimal.NewFromFloat(r.StopLossPct),
		TakeProfitPct:   decimal.NewFromFloat(r.TakeProfitPct),
		MaxPositionSize: decimal.NewFromFloat(r.MaxPositionSize),
		TrailingStopPct: decimal.NewFromFloat(r.TrailingStopPct),
		InitialCapital:  decimal.NewFromFloat(r.InitialCapital),
		Commission:      decimal.NewFromFloat(r.Commission),
		Slippage:        decimal.NewFromFloat(r.Slippage),
	}
}

// Config is the top-level ingested configuration.
type Config struct {
	Gene      map[string]GeneConfig `mapstructure:"gene"`
	Population struct {
		Evolution EvolutionConfig `mapstructure:"evolution"`
	} `mapstructure:"population"`
	Portfolio struct {
		RiskManagement RiskManagementConfig `mapstructure:"risk_management"`
	} `mapstructure:"portfolio"`
	DatabasePath string `mapstructure:"database_path"`
	WorkerCount  int    `mapstructure:"worker_count"`
}

// GeneConfig is one gene type's default parameters, constraints, and base
// evolution parameters, per spec 6's `gene` block.
type GeneConfig struct {
	Default     map[string]any        `mapstructure:"default"`
	Constraints map[string]Constraint `mapstructure:"constraints"`
	Base        BaseGeneParams        `mapstructure:"base"`
}

// Constraint is a single parameter's legal range or enum, as ingested from
// YAML (mirrors genes.Constraint but with mapstructure tags for viper).
type Constraint struct {
	Min   float64  `mapstructure:"min"`
	Max   float64  `mapstructure:"max"`
	Types []string `mapstructure:"types"`
}

// BaseGeneParams is the `base` block under each gene type: shared
// evolutionary defaults rather than signal-calculation parameters.
type BaseGeneParams struct {
	MutationRate   float64 `mapstructure:"mutation_rate"`
	CrossoverRate  float64 `mapstructure:"crossover_rate"`
	Weight         float64 `mapstructure:"weight"`
	RiskFactor     float64 `mapstructure:"risk_factor"`
	TestPeriodDays int     `mapstructure:"test_period_days"`
}

// Load reads path (a YAML file) via viper, applying environment variable
// overrides under the EVOLVE_ prefix, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("EVOLVE")
	v.AutomaticEnv()

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("worker_count", 4)
	v.SetDefault("database_path", "evolve.db")
	v.SetDefault("population.evolution.mutation_rate_min", 0.001)
	v.SetDefault("population.evolution.mutation_rate_max", 0.05)
	v.SetDefault("population.evolution.selection_pressure_min", 1.0)
	v.SetDefault("population.evolution.selection_pressure_max", 10.0)
	v.SetDefault("population.evolution.diversity_threshold_min", 0.5)
	v.SetDefault("population.evolution.diversity_threshold_max", 1.0)
}

// Validate enforces spec 6's documented ranges on the ingested configuration,
// per spec 7's "invalid input surfaced to caller, no partial writes" policy.
func (c *Config) Validate() error {
	e := c.Population.Evolution
	if e.MutationRateMin < 0.001 || e.MutationRateMax > 0.05 || e.MutationRateMin > e.MutationRateMax {
		return fmt.Errorf("population.evolution mutation rate range out of [0.001,0.05]")
	}
	if e.SelectionPressureMin < 1 || e.SelectionPressureMax > 10 || e.SelectionPressureMin > e.SelectionPressureMax {
		return fmt.Errorf("population.evolution selection pressure range out of [1,10]")
	}
	if e.Validation.MinTrades < 0 {
		return fmt.Errorf("population.evolution.validation.min_trades must be >= 0")
	}
	r := c.Portfolio.RiskManagement
	if r.MaxPositionSize <= 0 {
		return fmt.Errorf("portfolio.risk_management.max_position_size must be > 0")
	}
	return nil
}
