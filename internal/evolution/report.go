package evolution

import (
	"fmt"
	"strings"

	"github.com/tradingdna/evolve/internal/data"
)

// Report accumulates per-generation statistics into the structured
// evolution report string named in spec 6's external-interfaces output
// (b): initial stats, per-generation stats, and final stats with
// improvement percentage.
type Report struct {
	PopulationID string
	Initial      HistoryRow
	Generations  []HistoryRow
	DataQuality  *data.QualityReport
}

// NewReport starts a report anchored on the population's pre-evolution
// stats.
func NewReport(populationID string, initial HistoryRow) *Report {
	return &Report{PopulationID: populationID, Initial: initial}
}

// Record appends one generation's history row.
func (r *Report) Record(row HistoryRow) {
	r.Generations = append(r.Generations, row)
}

// SetDataQuality attaches the quality assessment of the OHLCV window the
// generations in this report were evaluated against.
func (r *Report) SetDataQuality(q *data.QualityReport) {
	r.DataQuality = q
}

// String renders the accumulated report.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "evolution report: population=%s\n", r.PopulationID)
	if r.DataQuality != nil {
		fmt.Fprintf(&b, "data quality: score=%d usable=%t issues=%d bars=%d\n",
			r.DataQuality.QualityScore, r.DataQuality.IsUsable, len(r.DataQuality.Issues), r.DataQuality.TotalBars)
	}
	fmt.Fprintf(&b, "initial: generation=%d best=%.6f avg=%.6f worst=%.6f diversity=%.4f\n",
		r.Initial.Generation, r.Initial.BestFitness, r.Initial.AverageFitness, r.Initial.WorstFitness, r.Initial.Diversity)

	for _, g := range r.Generations {
		fmt.Fprintf(&b, "generation %d: best=%.6f avg=%.6f worst=%.6f diversity=%.4f mutation_rate=%.4f\n",
			g.Generation, g.BestFitness, g.AverageFitness, g.WorstFitness, g.Diversity, g.MutationRate)
	}

	if len(r.Generations) == 0 {
		b.WriteString("final: no generations run\n")
		return b.String()
	}

	final := r.Generations[len(r.Generations)-1]
	improvement := 0.0
	if r.Initial.BestFitness != 0 {
		improvement = (final.BestFitness - r.Initial.BestFitness) / absFloat(r.Initial.BestFitness) * 100
	}
	fmt.Fprintf(&b, "final: generation=%d best=%.6f improvement=%.2f%%\n", final.Generation, final.BestFitness, improvement)

	return b.String()
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
