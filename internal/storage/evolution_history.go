package storage

import (
	"context"
	"fmt"
	"time"
)

// HistoryRow is the persisted shape of one evolution_history entry. It
// mirrors internal/evolution.HistoryRow field-for-field; storage does not
// import internal/evolution to avoid a dependency cycle (evolution's
// Driver is the one that calls SaveHistoryRow via its persist callback).
type HistoryRow struct {
	PopulationID   string
	Generation     int
	BestFitness    float64
	AverageFitness float64
	WorstFitness   float64
	Diversity      float64
	MutationRate   float64
	At             time.Time
}

// SaveHistoryRow appends one evolution_history entry. History is
// append-only: rows are never updated or deleted once written, per spec
// 6's persisted-state schema.
func (s *Store) SaveHistoryRow(ctx context.Context, row HistoryRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evolution_history (
			population_id, generation, best_fitness, average_fitness, worst_fitness,
			diversity, mutation_rate, recorded_at
		) VALUES (?,?,?,?,?,?,?,?)
	`, row.PopulationID, row.Generation, row.BestFitness, row.AverageFitness, row.WorstFitness,
		row.Diversity, row.MutationRate, row.At.UnixNano())
	if err != nil {
		return fmt.Errorf("insert evolution_history for %s gen %d: %w", row.PopulationID, row.Generation, err)
	}
	return nil
}

// LoadHistory returns every evolution_history row for populationID,
// ordered by generation ascending.
func (s *Store) LoadHistory(ctx context.Context, populationID string) ([]HistoryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT population_id, generation, best_fitness, average_fitness, worst_fitness,
		       diversity, mutation_rate, recorded_at
		FROM evolution_history WHERE population_id = ? ORDER BY generation ASC
	`, populationID)
	if err != nil {
		return nil, fmt.Errorf("query evolution_history for %s: %w", populationID, err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		var at int64
		if err := rows.Scan(&h.PopulationID, &h.Generation, &h.BestFitness, &h.AverageFitness,
			&h.WorstFitness, &h.Diversity, &h.MutationRate, &at); err != nil {
			return nil, fmt.Errorf("scan evolution_history: %w", err)
		}
		h.At = time.Unix(0, at)
		out = append(out, h)
	}
	return out, rows.Err()
}
