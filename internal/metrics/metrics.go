// Package metrics exposes per-generation and per-population statistics as
// Prometheus gauges/counters under the evolve_ namespace. Grounded on the
// teacher's internal/workers.PoolMetrics throughput-tracking pattern,
// generalized from one worker pool's stats to the optimizer's evolution
// statistics, and wired onto the prometheus/client_golang dependency the
// teacher's go.mod already carries unused.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry groups the gauges/counters updated once per persisted
// generation via RecordGeneration (cmd/evolve calls it from its persist
// callback). FitnessEvalSeconds is registered, but nothing in this module
// observes it.
type Registry struct {
	GenerationsTotal   *prometheus.CounterVec
	BestFitness        *prometheus.GaugeVec
	AverageFitness     *prometheus.GaugeVec
	WorstFitness       *prometheus.GaugeVec
	DiversityScore     *prometheus.GaugeVec
	MutationRate       *prometheus.GaugeVec
	PopulationSize     *prometheus.GaugeVec
	FitnessEvalSeconds  prometheus.Histogram
}

// NewRegistry constructs and registers the evolve_ metric family against
// reg. Callers typically pass prometheus.DefaultRegisterer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		GenerationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evolve",
			Name:      "generations_total",
			Help:      "Total number of generations run, by population.",
		}, []string{"population_id"}),
		BestFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "evolve",
			Name:      "best_fitness",
			Help:      "Best fitness in the active cohort after the most recent generation.",
		}, []string{"population_id"}),
		AverageFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "evolve",
			Name:      "average_fitness",
			Help:      "Average fitness across the active cohort after the most recent generation.",
		}, []string{"population_id"}),
		WorstFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "evolve",
			Name:      "worst_fitness",
			Help:      "Worst fitness in the active cohort after the most recent generation.",
		}, []string{"population_id"}),
		DiversityScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "evolve",
			Name:      "diversity_score",
			Help:      "Mean normalized Hamming distance between survivor fingerprints.",
		}, []string{"population_id"}),
		MutationRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "evolve",
			Name:      "mutation_rate",
			Help:      "Current population mutation rate.",
		}, []string{"population_id"}),
		PopulationSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "evolve",
			Name:      "population_size",
			Help:      "Number of chromosomes in the population after survivor selection.",
		}, []string{"population_id"}),
		FitnessEvalSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "evolve",
			Name:      "fitness_eval_seconds",
			Help:      "Wall-clock duration of one generation's bounded-pool fitness evaluation.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		r.GenerationsTotal, r.BestFitness, r.AverageFitness, r.WorstFitness,
		r.DiversityScore, r.MutationRate, r.PopulationSize, r.FitnessEvalSeconds,
	)
	return r
}

// RecordGeneration updates every gauge for populationID from one
// completed generation's statistics.
func (r *Registry) RecordGeneration(populationID string, best, avg, worst, diversity, mutationRate float64, size int) {
	r.GenerationsTotal.WithLabelValues(populationID).Inc()
	r.BestFitness.WithLabelValues(populationID).Set(best)
	r.AverageFitness.WithLabelValues(populationID).Set(avg)
	r.WorstFitness.WithLabelValues(populationID).Set(worst)
	r.DiversityScore.WithLabelValues(populationID).Set(diversity)
	r.MutationRate.WithLabelValues(populationID).Set(mutationRate)
	r.PopulationSize.WithLabelValues(populationID).Set(float64(size))
}
