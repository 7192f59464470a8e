// Package rng provides the seedable random-number derivation policy
// required for reproducible evolution: a population owns one RNG stream,
// and ForChromosome derives a fresh RNG from (population stream seed,
// chromosome id) whose sequence does not depend on evaluation order. The
// evolution operators in this module draw from the population stream
// directly via Rand; nothing in the module calls ForChromosome.
package rng

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"
)

// Stream is a population's top-level seeded RNG source.
type Stream struct {
	seed int64
	r    *rand.Rand
}

// NewStream creates a population RNG stream from an explicit seed. Callers
// needing a fresh, non-reproducible seed should derive one themselves
// (e.g. from crypto/rand) and pass it in — this package never calls
// time.Now internally, so (seed, inputs) fully determines all output.
func NewStream(seed int64) *Stream {
	return &Stream{seed: seed, r: rand.New(rand.NewSource(seed))}
}

// Seed returns the stream's originating seed.
func (s *Stream) Seed() int64 { return s.seed }

// Rand returns the underlying *rand.Rand for direct use by the
// population's operations: parent selection, reproduction, mutation and
// random cohort seeding all draw from this one shared stream.
func (s *Stream) Rand() *rand.Rand { return s.r }

// ForChromosome derives a fresh, independent RNG keyed by this stream's
// seed and a chromosome identifier. Two calls with the same stream seed
// and chromosome id always yield the same derived sequence, regardless of
// what order chromosomes are evaluated in or how many draws siblings made.
func (s *Stream) ForChromosome(chromosomeID string) *rand.Rand {
	h := fnv.New64a()
	binary.Write(h, binary.LittleEndian, s.seed)
	h.Write([]byte(chromosomeID))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}
