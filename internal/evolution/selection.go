// Package evolution implements the evolutionary pipeline: tournament
// selection, asymmetric reproduction, probabilistic mutation, and the
// generation driver that sequences them against the fitness engine.
// Grounded on the teacher's internal/optimization.Optimizer
// (tournamentSelect/crossover/mutate/evolvePopulation shape), generalized
// from float64 parameter sets to gene-typed chromosomes.
package evolution

import (
	"math"
	"math/rand"
	"sort"

	"github.com/tradingdna/evolve/internal/chromosome"
)

// Pair is one selected parent pair.
type Pair struct {
	Parent1 *chromosome.Chromosome
	Parent2 *chromosome.Chromosome
}

// tournamentSize implements spec 4.6's max(2, floor(0.1*|active|)) rule.
func tournamentSize(activeCount int) int {
	size := int(math.Floor(0.1 * float64(activeCount)))
	if size < 2 {
		size = 2
	}
	if size > activeCount {
		size = activeCount
	}
	return size
}

// tournamentPick samples tournamentSize chromosomes without replacement
// from pool (by index) and returns the highest-fitness one, removing it
// from pool's live index set.
func tournamentPick(r *rand.Rand, pool []*chromosome.Chromosome, remaining []int, size int) (*chromosome.Chromosome, []int) {
	if size > len(remaining) {
		size = len(remaining)
	}
	shuffled := append([]int(nil), remaining...)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	sample := shuffled[:size]

	best := sample[0]
	for _, idx := range sample[1:] {
		if pool[idx].Fitness > pool[best].Fitness {
			best = idx
		}
	}

	out := make([]int, 0, len(remaining)-1)
	for _, idx := range remaining {
		if idx != best {
			out = append(out, idx)
		}
	}
	return pool[best], out
}

// SelectParents draws numPairs parent pairs via tournament selection
// without replacement within each pair's draw, per spec 4.6. The pool of
// candidates resets to the full active set for every pair (each pair's
// tournaments are independent draws over the whole active population).
func SelectParents(r *rand.Rand, active []*chromosome.Chromosome, numPairs int) []Pair {
	if len(active) == 0 || numPairs <= 0 {
		return nil
	}
	size := tournamentSize(len(active))

	pairs := make([]Pair, 0, numPairs)
	for i := 0; i < numPairs; i++ {
		remaining := make([]int, len(active))
		for j := range active {
			remaining[j] = j
		}
		p1, remaining := tournamentPick(r, active, remaining, size)
		if len(remaining) == 0 {
			pairs = append(pairs, Pair{Parent1: p1, Parent2: p1})
			continue
		}
		p2, _ := tournamentPick(r, active, remaining, size)
		pairs = append(pairs, Pair{Parent1: p1, Parent2: p2})
	}
	return pairs
}

// SelectSurvivors merges active with offspring, sorts descending by
// fitness with tie-break (fitness, -age, fingerprint), and keeps the first
// maxSize; the rest are marked archived. age is measured as
// now.Sub(c.CreatedAt) via the ageOf closure so callers needn't pass a
// wall clock directly into this pure function.
func SelectSurvivors(active, offspring []*chromosome.Chromosome, maxSize int, ageOf func(*chromosome.Chromosome) float64) (survivors, archived []*chromosome.Chromosome) {
	merged := make([]*chromosome.Chromosome, 0, len(active)+len(offspring))
	merged = append(merged, active...)
	merged = append(merged, offspring...)

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Fitness != b.Fitness {
			return a.Fitness > b.Fitness
		}
		ageA, ageB := ageOf(a), ageOf(b)
		if ageA != ageB {
			return ageA < ageB // -age: younger (smaller age) sorts first
		}
		return a.Fingerprint < b.Fingerprint
	})

	if maxSize > len(merged) {
		maxSize = len(merged)
	}
	survivors = merged[:maxSize]
	archived = merged[maxSize:]
	return survivors, archived
}

// DiversityScore computes the mean normalized Hamming distance over all
// pairs of equal-length fingerprints among survivors, per spec 4.6. Pairs
// of unequal-length fingerprints are skipped; returns 0 if no pair
// qualifies.
func DiversityScore(survivors []*chromosome.Chromosome) float64 {
	var sum float64
	var count int
	for i := 0; i < len(survivors); i++ {
		for j := i + 1; j < len(survivors); j++ {
			a, b := survivors[i].Fingerprint, survivors[j].Fingerprint
			if len(a) != len(b) || len(a) == 0 {
				continue
			}
			mismatches := 0
			for k := range a {
				if a[k] != b[k] {
					mismatches++
				}
			}
			sum += float64(mismatches) / float64(len(a))
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
