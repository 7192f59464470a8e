package evolution

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/tradingdna/evolve/internal/chromosome"
	"github.com/tradingdna/evolve/internal/genes"
)

// Reproduce produces two children from a parent pair, per spec 4.7: child1
// treats parent1 as the primary source for ambiguous choices, child2
// reverses the roles. now is the creation timestamp recorded on both
// children and folded into their fingerprints.
func Reproduce(r *rand.Rand, pair Pair, populationID string, generation int, now time.Time) (child1, child2 *chromosome.Chromosome) {
	child1 = reproduceOne(r, pair.Parent1, pair.Parent2, populationID, generation, now)
	child2 = reproduceOne(r, pair.Parent2, pair.Parent1, populationID, generation, now)
	return child1, child2
}

func reproduceOne(r *rand.Rand, primary, secondary *chromosome.Chromosome, populationID string, generation int, now time.Time) *chromosome.Chromosome {
	byType := make(map[genes.Type]*chromosome.Gene)
	for _, g := range primary.Genes {
		byType[g.Indicator.Type()] = g
	}
	order := make([]genes.Type, 0, len(byType))
	for t := range byType {
		order = append(order, t)
	}
	for _, g := range secondary.Genes {
		if _, ok := byType[g.Indicator.Type()]; !ok {
			byType[g.Indicator.Type()] = g
			order = append(order, g.Indicator.Type())
		}
	}

	childGenes := make([]*chromosome.Gene, 0, len(order))
	for _, t := range order {
		p := findGene(primary, t)
		s := findGene(secondary, t)

		var source *chromosome.Gene
		switch {
		case p != nil && s != nil:
			if r.Float64() < 0.5 {
				source = p
			} else {
				source = s
			}
			childGenes = append(childGenes, blendGenes(r, p, s, source))
			continue
		case p != nil:
			source = p
		default:
			source = s
		}
		childGenes = append(childGenes, source.Clone())
		childGenes[len(childGenes)-1].MutationHistory = nil
	}

	child := &chromosome.Chromosome{
		ID:           uuid.NewString(),
		PopulationID: populationID,
		Generation:   generation,
		Parent1ID:    primary.ID,
		Parent2ID:    secondary.ID,
		Status:       chromosome.StatusTesting,
		Genes:        childGenes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	child.Fingerprint = chromosome.ComputeFingerprint(child.ActiveGenes(), now)
	return child
}

func findGene(c *chromosome.Chromosome, t genes.Type) *chromosome.Gene {
	for _, g := range c.Genes {
		if g.Indicator.Type() == t {
			return g
		}
	}
	return nil
}

// blendGenes performs the per-parameter weighted random blend of spec 4.7
// step 3: numeric params use r*p1+(1-r)*p2 with r~U(0,1); non-numeric
// params are coin-flipped. Weight and risk factor use the same blend
// rule. is_active is inherited from source (step 4); mutation_history
// starts empty (step 5).
func blendGenes(r *rand.Rand, p1, p2, source *chromosome.Gene) *chromosome.Gene {
	blend := r.Float64()

	p1Params := p1.Indicator.Params()
	p2Params := p2.Indicator.Params()
	merged := make(genes.Params, len(p1Params))
	for k, v1 := range p1Params {
		v2, ok := p2Params[k]
		if !ok {
			merged[k] = v1
			continue
		}
		merged[k] = blendValue(r, blend, v1, v2)
	}
	for k, v2 := range p2Params {
		if _, ok := merged[k]; !ok {
			merged[k] = v2
		}
	}

	indicator := source.Indicator.Clone()
	if err := indicator.SetParams(merged); err != nil {
		// Blend produced an out-of-schema value (shouldn't happen given
		// both parents validated); fall back to the source's own params.
		indicator = source.Indicator.Clone()
	}

	return &chromosome.Gene{
		Indicator:  indicator,
		Weight:     blend*p1.Weight + (1-blend)*p2.Weight,
		IsActive:   source.IsActive,
		RiskFactor: blend*p1.RiskFactor + (1-blend)*p2.RiskFactor,
	}
}

func blendValue(r *rand.Rand, blend float64, v1, v2 any) any {
	f1, ok1 := v1.(float64)
	f2, ok2 := v2.(float64)
	if ok1 && ok2 {
		return blend*f1 + (1-blend)*f2
	}
	if r.Float64() < 0.5 {
		return v1
	}
	return v2
}
