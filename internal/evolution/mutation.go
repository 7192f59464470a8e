package evolution

import (
	"math/rand"
	"sort"
	"time"

	"github.com/tradingdna/evolve/internal/chromosome"
	"github.com/tradingdna/evolve/internal/genes"
)

// Operator names one of the four mutation operators of spec 4.8.
type Operator string

const (
	OpAddGene          Operator = "add_gene"
	OpRemoveGene       Operator = "remove_gene"
	OpModifyWeights    Operator = "modify_weights"
	OpModifyParameters Operator = "modify_parameters"
)

var operators = []Operator{OpAddGene, OpRemoveGene, OpModifyWeights, OpModifyParameters}

// MutatePopulation applies mutation to every offspring chromosome, gated
// by mutationRate, per spec 4.8: with probability mutationRate the
// chromosome is mutated by one operator chosen uniformly at random.
func MutatePopulation(r *rand.Rand, offspring []*chromosome.Chromosome, mutationRate float64, now time.Time) {
	for _, c := range offspring {
		if r.Float64() >= mutationRate {
			continue
		}
		op := operators[r.Intn(len(operators))]
		applyOperator(r, c, op, now)
	}
}

func applyOperator(r *rand.Rand, c *chromosome.Chromosome, op Operator, now time.Time) {
	switch op {
	case OpAddGene:
		addGene(r, c, now)
	case OpRemoveGene:
		removeGene(r, c)
	case OpModifyWeights:
		modifyWeights(r, c, now)
	case OpModifyParameters:
		modifyParameters(r, c, now)
	}
}

func addGene(r *rand.Rand, c *chromosome.Chromosome, now time.Time) {
	present := make(map[genes.Type]bool, len(c.Genes))
	for _, g := range c.Genes {
		present[g.Indicator.Type()] = true
	}
	absent := make([]genes.Type, 0, len(genes.AllTypes))
	for _, t := range genes.AllTypes {
		if !present[t] {
			absent = append(absent, t)
		}
	}
	if len(absent) == 0 {
		return
	}
	t := absent[r.Intn(len(absent))]
	params, err := genes.RandomParams(t, r)
	if err != nil {
		return
	}
	indicator, err := genes.New(t, params)
	if err != nil {
		return
	}
	weight := 0.1 + r.Float64()*(5.0-0.1)
	g := &chromosome.Gene{
		Indicator: indicator,
		Weight:    weight,
		IsActive:  true,
		MutationHistory: []genes.MutationEvent{{
			Timestamp: now.UnixNano(),
			Param:     "gene_type",
			NewValue:  string(t),
		}},
	}
	c.Genes = append(c.Genes, g)
}

func removeGene(r *rand.Rand, c *chromosome.Chromosome) {
	if len(c.Genes) <= 1 {
		return
	}
	idx := r.Intn(len(c.Genes))
	c.Genes = append(c.Genes[:idx], c.Genes[idx+1:]...)
}

func modifyWeights(r *rand.Rand, c *chromosome.Chromosome, now time.Time) {
	for _, g := range c.Genes {
		if r.Float64() >= 0.3 {
			continue
		}
		old := g.Weight
		delta := -0.5 + r.Float64()*1.0
		neu := clampWeight(old + delta)
		g.Weight = neu
		g.MutationHistory = append(g.MutationHistory, genes.MutationEvent{
			Timestamp: now.UnixNano(),
			Param:     "weight",
			OldValue:  old,
			NewValue:  neu,
		})
	}
}

func clampWeight(w float64) float64 {
	if w < 0.1 {
		return 0.1
	}
	if w > 5.0 {
		return 5.0
	}
	return w
}

func modifyParameters(r *rand.Rand, c *chromosome.Chromosome, now time.Time) {
	for _, g := range c.Genes {
		if r.Float64() >= 0.2 {
			continue
		}
		for _, name := range sortedParamNames(g.Indicator) {
			if r.Float64() >= 0.5 {
				continue
			}
			event, err := g.Indicator.MutateParameter(name, r)
			if err != nil {
				continue
			}
			event.Timestamp = now.UnixNano()
			g.MutationHistory = append(g.MutationHistory, event)
		}
	}
}

func sortedParamNames(g genes.Gene) []string {
	params := g.Params()
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	// Deterministic order so replaying the same RNG stream against the
	// same gene type always visits parameters in the same sequence.
	sort.Strings(names)
	return names
}
