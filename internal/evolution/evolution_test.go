package evolution

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradingdna/evolve/internal/chromosome"
	"github.com/tradingdna/evolve/internal/genes"
)

func newTestChromosome(t *testing.T, id string, fitness float64, createdAt time.Time) *chromosome.Chromosome {
	t.Helper()
	rsi, err := genes.New(genes.RSI, nil)
	require.NoError(t, err)
	macd, err := genes.New(genes.MACD, nil)
	require.NoError(t, err)

	c := &chromosome.Chromosome{
		ID:        id,
		Status:    chromosome.StatusActive,
		Fitness:   fitness,
		CreatedAt: createdAt,
		Genes: []*chromosome.Gene{
			{Indicator: rsi, Weight: 1.0, IsActive: true, RiskFactor: 0.5},
			{Indicator: macd, Weight: 1.0, IsActive: true, RiskFactor: 0.5},
		},
	}
	c.Fingerprint = chromosome.ComputeFingerprint(c.ActiveGenes(), createdAt)
	return c
}

// S3: tournament selection over a fixed seed and fitness set must be
// deterministic -- the same seed and input population always produce the
// same parent-pair sequence.
func TestSelectParents_S3Determinism(t *testing.T) {
	base := time.Now()
	fitnesses := []float64{0.9, 0.5, 0.4, 0.1}
	build := func() []*chromosome.Chromosome {
		pop := make([]*chromosome.Chromosome, len(fitnesses))
		for i, f := range fitnesses {
			pop[i] = newTestChromosome(t, string(rune('a'+i)), f, base)
		}
		return pop
	}

	r1 := rand.New(rand.NewSource(42))
	pairs1 := SelectParents(r1, build(), 2)

	r2 := rand.New(rand.NewSource(42))
	pairs2 := SelectParents(r2, build(), 2)

	require.Len(t, pairs1, 2)
	require.Len(t, pairs2, 2)
	for i := range pairs1 {
		assert.Equal(t, pairs1[i].Parent1.ID, pairs2[i].Parent1.ID)
		assert.Equal(t, pairs1[i].Parent2.ID, pairs2[i].Parent2.ID)
	}
}

func TestTournamentSize(t *testing.T) {
	assert.Equal(t, 2, tournamentSize(4))
	assert.Equal(t, 2, tournamentSize(15))
	assert.Equal(t, 3, tournamentSize(30))
}

func TestSelectSurvivors_TieBreak(t *testing.T) {
	base := time.Now()
	old := newTestChromosome(t, "old", 0.5, base.Add(-time.Hour))
	young := newTestChromosome(t, "young", 0.5, base)

	survivors, archived := SelectSurvivors([]*chromosome.Chromosome{old, young}, nil, 1, func(c *chromosome.Chromosome) float64 {
		return base.Sub(c.CreatedAt).Seconds()
	})

	require.Len(t, survivors, 1)
	assert.Equal(t, "young", survivors[0].ID)
	require.Len(t, archived, 1)
	assert.Equal(t, "old", archived[0].ID)
}

func TestReproduce_UnionOfGeneTypesAndFingerprint(t *testing.T) {
	base := time.Now()
	r := rand.New(rand.NewSource(7))
	p1 := newTestChromosome(t, "p1", 0.8, base)
	p2 := newTestChromosome(t, "p2", 0.6, base)

	// Give p2 a third gene type absent from p1.
	bb, err := genes.New(genes.Bollinger, nil)
	require.NoError(t, err)
	p2.Genes = append(p2.Genes, &chromosome.Gene{Indicator: bb, Weight: 1.0, IsActive: true, RiskFactor: 0.5})

	c1, c2 := Reproduce(r, Pair{Parent1: p1, Parent2: p2}, "pop-1", 1, base)

	assert.Len(t, c1.ActiveGenes(), 3)
	assert.Len(t, c2.ActiveGenes(), 3)
	assert.Equal(t, "p1", c1.Parent1ID)
	assert.Equal(t, "p2", c1.Parent2ID)
	assert.NotEmpty(t, c1.Fingerprint)
	for _, g := range c1.Genes {
		assert.Empty(t, g.MutationHistory)
		assert.GreaterOrEqual(t, g.Weight, 0.0)
	}
}

// S5: applying modify_weights 10^4 times to weight=0.15 keeps the result
// in [0.1, 5.0] always, and the empirical mean is close to the expected
// value of the clamped blend of 0.15 with U(-0.5,0.5).
func TestModifyWeights_S5Boundaries(t *testing.T) {
	r := rand.New(rand.NewSource(123))
	const trials = 10000
	var sum float64
	for i := 0; i < trials; i++ {
		c := newTestChromosome(t, "x", 0, time.Now())
		for _, g := range c.Genes {
			g.Weight = 0.15
		}
		modifyWeights(r, c, time.Now())
		for _, g := range c.Genes {
			assert.GreaterOrEqual(t, g.Weight, 0.1)
			assert.LessOrEqual(t, g.Weight, 5.0)
			sum += g.Weight
		}
	}
	mean := sum / float64(trials*2)
	// Expected: with prob 0.3 weight shifts by U(-0.5,0.5) around 0.15
	// (clamped at 0.1), else stays at 0.15. A shift lands below 0.1 with
	// prob 0.45 (clamped to 0.1); otherwise it is uniform on [0.1, 0.65]
	// with mean 0.375. E = 0.7*0.15 + 0.3*(0.45*0.1 + 0.55*0.375) = 0.180375.
	assert.InDelta(t, 0.180375, mean, 0.02)
}

func TestMutatePopulation_Gated(t *testing.T) {
	base := time.Now()
	r := rand.New(rand.NewSource(1))
	offspring := []*chromosome.Chromosome{newTestChromosome(t, "o1", 0, base)}
	MutatePopulation(r, offspring, 0, base)
	assert.Empty(t, offspring[0].Genes[0].MutationHistory)
}

func TestDiversityScore_EmptyWhenNoPairs(t *testing.T) {
	assert.Equal(t, 0.0, DiversityScore(nil))
	single := newTestChromosome(t, "solo", 0.5, time.Now())
	assert.Equal(t, 0.0, DiversityScore([]*chromosome.Chromosome{single}))
}
