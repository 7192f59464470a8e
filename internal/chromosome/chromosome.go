// Package chromosome implements the Chromosome and ChromosomeGene model:
// a weighted ensemble of 2-5 active genes, deterministically fingerprinted,
// with an append-only mutation and fitness history.
package chromosome

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/tradingdna/evolve/internal/genes"
	"github.com/tradingdna/evolve/pkg/types"
)

// Status is a chromosome's lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusTesting  Status = "testing"
	StatusArchived Status = "archived"
)

// Gene is one active or inactive gene slot on a chromosome: the indicator
// instance plus its evolutionary bookkeeping (weight, risk factor,
// mutation history).
type Gene struct {
	Indicator        genes.Gene
	Weight           float64
	IsActive         bool
	RiskFactor       float64
	PerformanceContribution float64
	MutationHistory  []genes.MutationEvent
}

// Clone deep-copies a gene slot.
func (g *Gene) Clone() *Gene {
	hist := make([]genes.MutationEvent, len(g.MutationHistory))
	copy(hist, g.MutationHistory)
	return &Gene{
		Indicator:               g.Indicator.Clone(),
		Weight:                  g.Weight,
		IsActive:                g.IsActive,
		RiskFactor:              g.RiskFactor,
		PerformanceContribution: g.PerformanceContribution,
		MutationHistory:         hist,
	}
}

// FitnessPoint is one append-only entry in a chromosome's fitness history.
type FitnessPoint struct {
	Generation int       `json:"generation"`
	Fitness    float64   `json:"fitness"`
	At         time.Time `json:"at"`
}

// Chromosome is one concrete strategy instance.
type Chromosome struct {
	ID             string
	PopulationID   string
	Fingerprint    string
	Generation     int
	Parent1ID      string // weak reference by id; empty if none
	Parent2ID      string
	Status         Status
	Genes          []*Gene
	Metrics        *types.PerformanceMetrics
	Fitness        float64
	MutationStats  map[string]int
	FitnessHistory []FitnessPoint
	LastTestDate   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ActiveGenes returns the subset of genes that are active.
func (c *Chromosome) ActiveGenes() []*Gene {
	out := make([]*Gene, 0, len(c.Genes))
	for _, g := range c.Genes {
		if g.IsActive {
			out = append(out, g)
		}
	}
	return out
}

// Valid reports whether a chromosome satisfies the well-formedness
// invariants required of an `active` chromosome: 2-5 active genes, every
// gene's parameters valid, weight/risk factor in range.
func (c *Chromosome) Valid() error {
	active := c.ActiveGenes()
	if len(active) < 2 || len(active) > 5 {
		return fmt.Errorf("chromosome %s has %d active genes, want 2-5", c.ID, len(active))
	}
	for _, g := range active {
		if g.Weight < 0.1 || g.Weight > 5.0 {
			return fmt.Errorf("gene %s weight %v out of [0.1,5.0]", g.Indicator.Type(), g.Weight)
		}
		if g.RiskFactor < 0.1 || g.RiskFactor > 1.0 {
			return fmt.Errorf("gene %s risk_factor %v out of [0.1,1.0]", g.Indicator.Type(), g.RiskFactor)
		}
		if err := g.Indicator.Validate(); err != nil {
			return fmt.Errorf("gene %s: %w", g.Indicator.Type(), err)
		}
	}
	return nil
}

// Clone deep-copies a chromosome, including its gene slots.
func (c *Chromosome) Clone() *Chromosome {
	cp := *c
	cp.Genes = make([]*Gene, len(c.Genes))
	for i, g := range c.Genes {
		cp.Genes[i] = g.Clone()
	}
	cp.MutationStats = make(map[string]int, len(c.MutationStats))
	for k, v := range c.MutationStats {
		cp.MutationStats[k] = v
	}
	cp.FitnessHistory = append([]FitnessPoint(nil), c.FitnessHistory...)
	return &cp
}

// RecordFitness appends a fitness-history point and updates per-gene
// performance contribution (gene.weight * fitness), per spec 4.5.
func (c *Chromosome) RecordFitness(generation int, fitness float64, at time.Time) {
	c.Fitness = fitness
	c.FitnessHistory = append(c.FitnessHistory, FitnessPoint{Generation: generation, Fitness: fitness, At: at})
	for _, g := range c.ActiveGenes() {
		g.PerformanceContribution = g.Weight * fitness
	}
}

// ComputeFingerprint canonicalizes gene-type, parameter-key ordering, and
// floating-point formatting before hashing, so the fingerprint is stable
// regardless of map iteration order or implementation language — per the
// "deterministic fingerprinting" design note.
func ComputeFingerprint(active []*Gene, createdAt time.Time) string {
	type entry struct {
		typ    string
		params string
		weight string
	}
	entries := make([]entry, 0, len(active))
	for _, g := range active {
		params := g.Indicator.Params()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		paramStr := ""
		for _, k := range keys {
			paramStr += k + "=" + canonicalValue(params[k]) + ";"
		}
		entries = append(entries, entry{
			typ:    string(g.Indicator.Type()),
			params: paramStr,
			weight: strconv.FormatFloat(g.Weight, 'g', -1, 64),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].typ < entries[j].typ })

	h := sha256.New()
	for _, e := range entries {
		h.Write([]byte(e.typ))
		h.Write([]byte(":"))
		h.Write([]byte(e.params))
		h.Write([]byte(":"))
		h.Write([]byte(e.weight))
		h.Write([]byte("|"))
	}
	h.Write([]byte(strconv.FormatInt(createdAt.UnixNano(), 10)))
	return hex.EncodeToString(h.Sum(nil))
}

func canonicalValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}
