// Package signals implements the Signal Aggregator: a weight-normalized
// combination of a chromosome's active-gene signals into one per-bar
// decision stream, grounded on the weight/consensus aggregation shape of
// the teacher's internal/signals aggregator, adapted from "aggregate
// several named external sources" to "aggregate a chromosome's gene set".
package signals

import (
	"math"

	"github.com/tradingdna/evolve/internal/chromosome"
	"github.com/tradingdna/evolve/pkg/types"
)

// defaultBatchSize caps how many genes are evaluated per batch, bounding
// memory when aggregating over very large windows.
const defaultBatchSize = 5

// Aggregator combines a chromosome's active genes into one bounded
// per-bar signal stream.
type Aggregator struct {
	BatchSize int
}

// New creates an Aggregator with the default gene batch size.
func New() *Aggregator {
	return &Aggregator{BatchSize: defaultBatchSize}
}

// Aggregate computes one tanh-bounded signal per bar in window, aligned to
// window's timestamps. Returns an empty slice if the chromosome's total
// active weight is zero.
func (a *Aggregator) Aggregate(c *chromosome.Chromosome, window []types.OHLCV) []float64 {
	active := c.ActiveGenes()
	totalWeight := 0.0
	for _, g := range active {
		totalWeight += g.Weight
	}
	if totalWeight == 0 || len(window) == 0 {
		return nil
	}

	out := make([]float64, len(window))
	batchSize := a.BatchSize
	if batchSize <= 0 {
		batchSize = len(active)
	}

	for t := 0; t < len(window); t++ {
		sub := window[:t+1]
		var sum float64
		for i := 0; i < len(active); i += batchSize {
			end := i + batchSize
			if end > len(active) {
				end = len(active)
			}
			for _, g := range active[i:end] {
				s := g.Indicator.CalculateSignal(sub)
				sum += s * (g.Weight / totalWeight)
			}
		}
		out[t] = math.Tanh(sum)
	}
	return out
}
