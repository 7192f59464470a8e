// Package population implements the Population model: a mutable
// coordinator over a cohort of chromosomes sharing a (symbol, timeframe)
// evaluation context.
package population

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tradingdna/evolve/internal/chromosome"
	"github.com/tradingdna/evolve/internal/genes"
	"github.com/tradingdna/evolve/internal/rng"
)

// Status is a population's lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusEvolving Status = "evolving"
	StatusPaused   Status = "paused"
	StatusArchived Status = "archived"
)

// Configuration groups the recognized per-population configuration
// options named in spec 3.
type Configuration struct {
	EvolutionConfig        map[string]any `json:"evolutionConfig"`
	PerformanceThresholds  map[string]any `json:"performanceThresholds"`
	OptimizationSettings   map[string]any `json:"optimizationSettings"`
	RiskProfile            map[string]any `json:"riskProfile"`
}

// Population is the mutable evolutionary coordinator described in spec 3.
type Population struct {
	ID                 string
	Name               string
	Symbol             string
	Timeframe          string
	MaxSize            int
	CurrentGeneration  int
	Status             Status
	DiversityScore     float64
	PerformanceScore   float64
	MutationRate       float64
	SelectionPressure  float64
	GenerationInterval time.Duration
	DiversityThreshold float64
	Configuration      Configuration
	RNGSeed            int64

	Chromosomes []*chromosome.Chromosome

	rngStream *rng.Stream
}

// New validates and constructs a population, per spec 3's field ranges.
func New(id, name, symbol, timeframe string, maxSize int, seed int64) (*Population, error) {
	if maxSize < 50 || maxSize > 500 {
		return nil, fmt.Errorf("max_size %d out of [50,500]", maxSize)
	}
	return &Population{
		ID:                 id,
		Name:               name,
		Symbol:             symbol,
		Timeframe:          timeframe,
		MaxSize:            maxSize,
		Status:             StatusActive,
		MutationRate:       0.01,
		SelectionPressure:  2,
		DiversityThreshold: 0.6,
		RNGSeed:            seed,
		rngStream:          rng.NewStream(seed),
	}, nil
}

// RNG returns the population's RNG stream, lazily rebuilding it from the
// stored seed if this Population was just loaded from storage.
func (p *Population) RNG() *rng.Stream {
	if p.rngStream == nil {
		p.rngStream = rng.NewStream(p.RNGSeed)
	}
	return p.rngStream
}

// ActiveChromosomes returns chromosomes whose status is active.
func (p *Population) ActiveChromosomes() []*chromosome.Chromosome {
	out := make([]*chromosome.Chromosome, 0, len(p.Chromosomes))
	for _, c := range p.Chromosomes {
		if c.Status == chromosome.StatusActive {
			out = append(out, c)
		}
	}
	return out
}

// SetMutationRate validates and sets the mutation rate, per spec 3's
// [0.001, 0.05] range.
func (p *Population) SetMutationRate(rate float64) error {
	if rate < 0.001 || rate > 0.05 {
		return fmt.Errorf("mutation_rate %v out of [0.001,0.05]", rate)
	}
	p.MutationRate = rate
	return nil
}

// SetSelectionPressure validates and sets the selection pressure, per spec
// 3's [1,10] range.
func (p *Population) SetSelectionPressure(v float64) error {
	if v < 1 || v > 10 {
		return fmt.Errorf("selection_pressure %v out of [1,10]", v)
	}
	p.SelectionPressure = v
	return nil
}

// SeedRandomCohort replaces p.Chromosomes with count freshly built random
// chromosomes, each with 2-5 active genes drawn from the ten closed gene
// types with randomized parameters, weight, and risk factor -- per spec
// 8's invariant 2 ("between 2 and 5 active genes at birth").
func (p *Population) SeedRandomCohort(count int) error {
	r := p.RNG().Rand()
	now := time.Now()
	chromosomes := make([]*chromosome.Chromosome, 0, count)
	for i := 0; i < count; i++ {
		numGenes := 2 + r.Intn(4)
		chosen := make(map[genes.Type]bool, numGenes)
		geneSlots := make([]*chromosome.Gene, 0, numGenes)
		for len(geneSlots) < numGenes {
			t := genes.AllTypes[r.Intn(len(genes.AllTypes))]
			if chosen[t] {
				continue
			}
			chosen[t] = true
			params, err := genes.RandomParams(t, r)
			if err != nil {
				return fmt.Errorf("sample random params for %s: %w", t, err)
			}
			indicator, err := genes.New(t, params)
			if err != nil {
				return fmt.Errorf("construct gene %s: %w", t, err)
			}
			geneSlots = append(geneSlots, &chromosome.Gene{
				Indicator:  indicator,
				Weight:     0.1 + r.Float64()*4.9,
				IsActive:   true,
				RiskFactor: 0.1 + r.Float64()*0.9,
			})
		}
		c := &chromosome.Chromosome{
			ID:           uuid.NewString(),
			PopulationID: p.ID,
			Generation:   p.CurrentGeneration,
			Status:       chromosome.StatusActive,
			Genes:        geneSlots,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		c.Fingerprint = chromosome.ComputeFingerprint(c.ActiveGenes(), now)
		chromosomes = append(chromosomes, c)
	}
	p.Chromosomes = chromosomes
	return nil
}
