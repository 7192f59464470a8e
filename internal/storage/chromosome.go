package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tradingdna/evolve/internal/chromosome"
	"github.com/tradingdna/evolve/internal/genes"
)

// SaveChromosome upserts one chromosome and replaces its gene rows. Gene
// rows are deleted and reinserted rather than diffed: a chromosome's genes
// only change via reproduction/mutation, which always produces a fresh
// Chromosome value, so there is no in-place single-gene update path to
// optimize for.
func (s *Store) SaveChromosome(ctx context.Context, c *chromosome.Chromosome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	mutationStats, err := json.Marshal(c.MutationStats)
	if err != nil {
		return fmt.Errorf("marshal mutation_stats: %w", err)
	}
	fitnessHistory, err := json.Marshal(c.FitnessHistory)
	if err != nil {
		return fmt.Errorf("marshal fitness_history: %w", err)
	}
	var metrics []byte
	if c.Metrics != nil {
		metrics, err = json.Marshal(c.Metrics)
		if err != nil {
			return fmt.Errorf("marshal metrics: %w", err)
		}
	}
	var lastTestDate sql.NullInt64
	if !c.LastTestDate.IsZero() {
		lastTestDate = sql.NullInt64{Int64: c.LastTestDate.UnixNano(), Valid: true}
	}
	now := time.Now().UnixNano()
	createdAt := c.CreatedAt.UnixNano()
	if createdAt == 0 {
		createdAt = now
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chromosomes (
			id, population_id, fingerprint, generation, parent1_id, parent2_id,
			status, fitness, mutation_stats, fitness_history, metrics, last_test_date,
			created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			fingerprint=excluded.fingerprint, generation=excluded.generation,
			status=excluded.status, fitness=excluded.fitness,
			mutation_stats=excluded.mutation_stats, fitness_history=excluded.fitness_history,
			metrics=excluded.metrics, last_test_date=excluded.last_test_date,
			updated_at=excluded.updated_at
	`,
		c.ID, c.PopulationID, c.Fingerprint, c.Generation, nullable(c.Parent1ID), nullable(c.Parent2ID),
		string(c.Status), c.Fitness, string(mutationStats), string(fitnessHistory), nullableBytes(metrics), lastTestDate,
		createdAt, now,
	)
	if err != nil {
		return fmt.Errorf("upsert chromosome %s: %w", c.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chromosome_genes WHERE chromosome_id = ?`, c.ID); err != nil {
		return fmt.Errorf("clear genes for chromosome %s: %w", c.ID, err)
	}
	for _, g := range c.Genes {
		params, err := encodeBlob(g.Indicator.Params())
		if err != nil {
			return fmt.Errorf("marshal gene params: %w", err)
		}
		history, err := json.Marshal(g.MutationHistory)
		if err != nil {
			return fmt.Errorf("marshal mutation_history: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chromosome_genes (
				chromosome_id, gene_type, parameters, weight, is_active, risk_factor,
				performance_contribution, mutation_history
			) VALUES (?,?,?,?,?,?,?,?)
		`, c.ID, string(g.Indicator.Type()), string(params), g.Weight, boolToInt(g.IsActive), g.RiskFactor,
			g.PerformanceContribution, string(history))
		if err != nil {
			return fmt.Errorf("insert gene %s for chromosome %s: %w", g.Indicator.Type(), c.ID, err)
		}
	}

	return tx.Commit()
}

// LoadChromosomes reads every chromosome belonging to populationID, genes
// included, reconstructing each gene's indicator via genes.New so the
// gene's validator and mutator behave exactly as they did before the
// round trip.
func (s *Store) LoadChromosomes(ctx context.Context, populationID string) ([]*chromosome.Chromosome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, population_id, fingerprint, generation, parent1_id, parent2_id,
		       status, fitness, mutation_stats, fitness_history, metrics, last_test_date,
		       created_at, updated_at
		FROM chromosomes WHERE population_id = ?
	`, populationID)
	if err != nil {
		return nil, fmt.Errorf("query chromosomes for %s: %w", populationID, err)
	}
	defer rows.Close()

	var out []*chromosome.Chromosome
	for rows.Next() {
		var (
			c                              chromosome.Chromosome
			status                         string
			parent1, parent2               sql.NullString
			mutationStats, fitnessHistory  string
			metrics                        sql.NullString
			lastTestDate                   sql.NullInt64
			createdAt, updatedAt           int64
		)
		if err := rows.Scan(
			&c.ID, &c.PopulationID, &c.Fingerprint, &c.Generation, &parent1, &parent2,
			&status, &c.Fitness, &mutationStats, &fitnessHistory, &metrics, &lastTestDate,
			&createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chromosome: %w", err)
		}
		c.Status = chromosome.Status(status)
		c.Parent1ID = parent1.String
		c.Parent2ID = parent2.String
		c.CreatedAt = time.Unix(0, createdAt)
		c.UpdatedAt = time.Unix(0, updatedAt)
		if lastTestDate.Valid {
			c.LastTestDate = time.Unix(0, lastTestDate.Int64)
		}
		if err := json.Unmarshal([]byte(mutationStats), &c.MutationStats); err != nil {
			return nil, fmt.Errorf("unmarshal mutation_stats: %w", err)
		}
		if err := json.Unmarshal([]byte(fitnessHistory), &c.FitnessHistory); err != nil {
			return nil, fmt.Errorf("unmarshal fitness_history: %w", err)
		}
		if metrics.Valid {
			if err := json.Unmarshal([]byte(metrics.String), &c.Metrics); err != nil {
				return nil, fmt.Errorf("unmarshal metrics: %w", err)
			}
		}

		geneRows, err := s.db.QueryContext(ctx, `
			SELECT gene_type, parameters, weight, is_active, risk_factor,
			       performance_contribution, mutation_history
			FROM chromosome_genes WHERE chromosome_id = ?
		`, c.ID)
		if err != nil {
			return nil, fmt.Errorf("query genes for chromosome %s: %w", c.ID, err)
		}
		for geneRows.Next() {
			var (
				geneType                 string
				params, mutationHistory  string
				weight, riskFactor, perf float64
				isActive                 int
			)
			if err := geneRows.Scan(&geneType, &params, &weight, &isActive, &riskFactor, &perf, &mutationHistory); err != nil {
				geneRows.Close()
				return nil, fmt.Errorf("scan gene: %w", err)
			}
			var p genes.Params
			if err := decodeBlob([]byte(params), &p); err != nil {
				geneRows.Close()
				return nil, fmt.Errorf("unmarshal gene params: %w", err)
			}
			indicator, err := genes.New(genes.Type(geneType), p)
			if err != nil {
				geneRows.Close()
				return nil, fmt.Errorf("reconstruct gene %s: %w", geneType, err)
			}
			var history []genes.MutationEvent
			if err := json.Unmarshal([]byte(mutationHistory), &history); err != nil {
				geneRows.Close()
				return nil, fmt.Errorf("unmarshal mutation_history: %w", err)
			}
			c.Genes = append(c.Genes, &chromosome.Gene{
				Indicator:               indicator,
				Weight:                  weight,
				IsActive:                isActive != 0,
				RiskFactor:              riskFactor,
				PerformanceContribution: perf,
				MutationHistory:         history,
			})
		}
		geneRows.Close()

		out = append(out, &c)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
