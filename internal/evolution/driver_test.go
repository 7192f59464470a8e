package evolution

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradingdna/evolve/internal/backtester"
	"github.com/tradingdna/evolve/internal/chromosome"
	"github.com/tradingdna/evolve/internal/population"
	"github.com/tradingdna/evolve/internal/workers"
	"github.com/tradingdna/evolve/pkg/types"
)

func syntheticWindow(n int) []types.OHLCV {
	out := make([]types.OHLCV, n)
	price := 100.0
	base := time.Now().Add(-time.Duration(n) * time.Hour)
	for i := 0; i < n; i++ {
		c := decimal.NewFromFloat(price)
		out[i] = types.OHLCV{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      c, High: c.Mul(decimal.NewFromFloat(1.001)),
			Low: c.Mul(decimal.NewFromFloat(0.999)), Close: c,
			Volume: decimal.NewFromFloat(1000),
		}
		price *= 1.005
	}
	return out
}

func newTestPopulation(t *testing.T, cohortSize int, seed int64) *population.Population {
	t.Helper()
	maxSize := cohortSize
	if maxSize < 50 {
		maxSize = 50
	}
	pop, err := population.New("pop-s6", "test", "BTC-USD", "1h", maxSize, seed)
	require.NoError(t, err)
	pop.GenerationInterval = time.Millisecond

	now := time.Now()
	for i := 0; i < cohortSize; i++ {
		c := newTestChromosome(t, string(rune('a'+i%26))+string(rune('0'+i/26)), 0, now)
		pop.Chromosomes = append(pop.Chromosomes, c)
	}
	return pop
}

// S6: a population of 20 over 5 generations with a fixed seed and a
// recoverable-alpha synthetic series must end with performance_score no
// worse than it started, and produce exactly 5 history rows.
func TestDriver_S6EvolutionProgress(t *testing.T) {
	pop := newTestPopulation(t, 20, 42)
	window := syntheticWindow(60)

	sim := backtester.New(backtester.Config{
		SignalThreshold: decimal.NewFromFloat(0.2),
		StopLossPct:     decimal.NewFromFloat(0.1),
		TakeProfitPct:   decimal.NewFromFloat(0.1),
		MaxPositionSize: decimal.NewFromFloat(1.0),
		InitialCapital:  decimal.NewFromFloat(10000),
	})
	weights := backtester.FitnessWeights{"total_return": decimal.NewFromFloat(1.0)}
	validation := backtester.ValidationConfig{MinTrades: 0, MinWinRate: decimal.Zero, MaxDrawdownAllowed: decimal.NewFromFloat(1.0)}
	pool := workers.NewPool(zap.NewNop(), workers.DefaultPoolConfig("test"))

	var history []HistoryRow
	driver := NewDriver(zap.NewNop(), sim, weights, validation, pool, func(ctx context.Context, p *population.Population, rows []HistoryRow) error {
		history = append(history, rows...)
		return nil
	})

	initialScore := pop.PerformanceScore
	for i := 0; i < 5; i++ {
		_, err := driver.RunGeneration(context.Background(), pop, window)
		require.NoError(t, err)
	}

	assert.Len(t, history, 5)
	assert.GreaterOrEqual(t, pop.PerformanceScore, initialScore)
	assert.Equal(t, 5, pop.CurrentGeneration)
}

// A persist failure must roll back: current_generation, performance/
// diversity scores, and chromosome statuses must all be exactly what they
// were before RunGeneration was called.
func TestDriver_FailedPersistDoesNotAdvanceGeneration(t *testing.T) {
	pop := newTestPopulation(t, 20, 42)
	window := syntheticWindow(60)

	sim := backtester.New(backtester.Config{
		SignalThreshold: decimal.NewFromFloat(0.2),
		StopLossPct:     decimal.NewFromFloat(0.1),
		TakeProfitPct:   decimal.NewFromFloat(0.1),
		MaxPositionSize: decimal.NewFromFloat(1.0),
		InitialCapital:  decimal.NewFromFloat(10000),
	})
	weights := backtester.FitnessWeights{"total_return": decimal.NewFromFloat(1.0)}
	validation := backtester.ValidationConfig{MinTrades: 0, MinWinRate: decimal.Zero, MaxDrawdownAllowed: decimal.NewFromFloat(1.0)}
	pool := workers.NewPool(zap.NewNop(), workers.DefaultPoolConfig("test"))

	persistErr := fmt.Errorf("boom")
	driver := NewDriver(zap.NewNop(), sim, weights, validation, pool, func(ctx context.Context, p *population.Population, rows []HistoryRow) error {
		return persistErr
	})

	generationBefore := pop.CurrentGeneration
	performanceBefore := pop.PerformanceScore
	diversityBefore := pop.DiversityScore
	statusesBefore := make(map[string]chromosome.Status, len(pop.Chromosomes))
	for _, c := range pop.Chromosomes {
		statusesBefore[c.ID] = c.Status
	}
	chromosomeCountBefore := len(pop.Chromosomes)

	_, err := driver.RunGeneration(context.Background(), pop, window)
	require.Error(t, err)
	require.ErrorIs(t, err, persistErr)

	assert.Equal(t, generationBefore, pop.CurrentGeneration)
	assert.Equal(t, performanceBefore, pop.PerformanceScore)
	assert.Equal(t, diversityBefore, pop.DiversityScore)
	assert.Equal(t, chromosomeCountBefore, len(pop.Chromosomes))
	for _, c := range pop.Chromosomes {
		assert.Equal(t, statusesBefore[c.ID], c.Status)
	}
}

func TestMergeSurvivors_DeduplicatesByID(t *testing.T) {
	now := time.Now()
	a := newTestChromosome(t, "a", 0.5, now)
	b := newTestChromosome(t, "b", 0.4, now)
	merged := mergeSurvivors([]*chromosome.Chromosome{a}, []*chromosome.Chromosome{a, b}, nil)
	assert.Len(t, merged, 2)
}

func TestNewReport_Rendering(t *testing.T) {
	r := NewReport("pop-1", HistoryRow{Generation: 0, BestFitness: 1.0})
	r.Record(HistoryRow{Generation: 1, BestFitness: 1.5})
	out := r.String()
	assert.Contains(t, out, "pop-1")
	assert.Contains(t, out, "improvement=50.00%")
}
