package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tradingdna/evolve/internal/population"
)

// SavePopulation upserts a population's scalar fields and configuration
// blob, outside any transaction. Chromosomes are persisted separately via
// SaveChromosome, which uses its own transaction per chromosome; the Store
// has no method that groups population, chromosome and history writes into
// one transaction.
func (s *Store) SavePopulation(ctx context.Context, p *population.Population) error {
	cfg, err := encodeBlob(p.Configuration)
	if err != nil {
		return fmt.Errorf("marshal configuration: %w", err)
	}
	now := time.Now().UnixNano()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO populations (
			id, name, symbol, timeframe, max_size, current_generation, status,
			diversity_score, performance_score, mutation_rate, selection_pressure,
			generation_interval, diversity_threshold, rng_seed, configuration,
			schema_version, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,1,?,?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, symbol=excluded.symbol, timeframe=excluded.timeframe,
			max_size=excluded.max_size, current_generation=excluded.current_generation,
			status=excluded.status, diversity_score=excluded.diversity_score,
			performance_score=excluded.performance_score, mutation_rate=excluded.mutation_rate,
			selection_pressure=excluded.selection_pressure, generation_interval=excluded.generation_interval,
			diversity_threshold=excluded.diversity_threshold, rng_seed=excluded.rng_seed,
			configuration=excluded.configuration, updated_at=excluded.updated_at
	`,
		p.ID, p.Name, p.Symbol, p.Timeframe, p.MaxSize, p.CurrentGeneration, string(p.Status),
		p.DiversityScore, p.PerformanceScore, p.MutationRate, p.SelectionPressure,
		int64(p.GenerationInterval), p.DiversityThreshold, p.RNGSeed, string(cfg),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert population %s: %w", p.ID, err)
	}
	return nil
}

// LoadPopulation reads a population's scalar fields and configuration, but
// not its chromosomes (use LoadChromosomes separately, then assign them to
// Chromosomes -- this mirrors the Population.RNG() lazy-rebuild pattern,
// where RNGSeed alone is enough to reconstruct the RNG stream).
func (s *Store) LoadPopulation(ctx context.Context, id string) (*population.Population, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, symbol, timeframe, max_size, current_generation, status,
		       diversity_score, performance_score, mutation_rate, selection_pressure,
		       generation_interval, diversity_threshold, rng_seed, configuration
		FROM populations WHERE id = ?
	`, id)

	var (
		p                population.Population
		status           string
		generationInterv int64
		cfg              string
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.Symbol, &p.Timeframe, &p.MaxSize, &p.CurrentGeneration, &status,
		&p.DiversityScore, &p.PerformanceScore, &p.MutationRate, &p.SelectionPressure,
		&generationInterv, &p.DiversityThreshold, &p.RNGSeed, &cfg,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("population %s not found", id)
		}
		return nil, fmt.Errorf("load population %s: %w", id, err)
	}
	p.Status = population.Status(status)
	p.GenerationInterval = time.Duration(generationInterv)
	if err := decodeBlob([]byte(cfg), &p.Configuration); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	return &p, nil
}
