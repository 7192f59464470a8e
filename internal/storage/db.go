// Package storage provides relational persistence for populations,
// chromosomes, genes, evolution history, and market data, per spec 6's
// "Persisted state (relational schema)". Grounded on
// stadam23-Eve-flipper/internal/db/db.go's Open/migrate shape, adapted from
// a single-file SQLite tool database to the optimizer's wider schema.
package storage

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// currentSchemaVersion is bumped whenever migrate adds tables or columns.
// migrate is additive only: it never drops or renames a column.
const currentSchemaVersion = 1

// Store wraps a SQLite connection and the schema migrations it owns.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the SQLite database at path and runs migrations.
// WAL mode and a busy timeout are set so concurrent connections from the
// database/sql pool wait for a lock instead of failing with lock-contention
// errors.
func Open(path string, logger *zap.Logger) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Info("storage opened", zap.String("path", path))
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	var version int
	s.db.QueryRow(`SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`).Scan(&version)
	if version > currentSchemaVersion {
		return fmt.Errorf("schema_version %d is newer than supported %d", version, currentSchemaVersion)
	}

	if version < 1 {
		if _, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS exchanges (
				id   INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE
			);

			CREATE TABLE IF NOT EXISTS symbols (
				id        INTEGER PRIMARY KEY AUTOINCREMENT,
				exchange_id INTEGER NOT NULL REFERENCES exchanges(id),
				symbol    TEXT NOT NULL,
				UNIQUE(exchange_id, symbol)
			);

			CREATE TABLE IF NOT EXISTS market_data (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				exchange_id INTEGER NOT NULL REFERENCES exchanges(id),
				symbol_id   INTEGER NOT NULL REFERENCES symbols(id),
				timeframe   TEXT NOT NULL,
				timestamp   INTEGER NOT NULL,
				open        TEXT NOT NULL,
				high        TEXT NOT NULL,
				low         TEXT NOT NULL,
				close       TEXT NOT NULL,
				volume      TEXT NOT NULL,
				UNIQUE(exchange_id, symbol_id, timeframe, timestamp)
			);
			CREATE INDEX IF NOT EXISTS idx_market_data_lookup ON market_data(symbol_id, timeframe, timestamp);

			CREATE TABLE IF NOT EXISTS populations (
				id                  TEXT PRIMARY KEY,
				name                TEXT NOT NULL,
				symbol              TEXT NOT NULL,
				timeframe           TEXT NOT NULL,
				max_size            INTEGER NOT NULL,
				current_generation  INTEGER NOT NULL,
				status              TEXT NOT NULL,
				diversity_score     REAL NOT NULL,
				performance_score   REAL NOT NULL,
				mutation_rate       REAL NOT NULL,
				selection_pressure  REAL NOT NULL,
				generation_interval INTEGER NOT NULL,
				diversity_threshold REAL NOT NULL,
				rng_seed            INTEGER NOT NULL,
				configuration       TEXT NOT NULL,
				schema_version      INTEGER NOT NULL DEFAULT 1,
				created_at          INTEGER NOT NULL,
				updated_at          INTEGER NOT NULL
			);

			CREATE TABLE IF NOT EXISTS chromosomes (
				id              TEXT PRIMARY KEY,
				population_id   TEXT NOT NULL REFERENCES populations(id),
				fingerprint     TEXT NOT NULL,
				generation      INTEGER NOT NULL,
				parent1_id      TEXT,
				parent2_id      TEXT,
				status          TEXT NOT NULL,
				fitness         REAL NOT NULL,
				mutation_stats  TEXT NOT NULL,
				fitness_history TEXT NOT NULL,
				metrics         TEXT,
				last_test_date  INTEGER,
				created_at      INTEGER NOT NULL,
				updated_at      INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_chromosomes_population ON chromosomes(population_id);
			CREATE INDEX IF NOT EXISTS idx_chromosomes_fingerprint ON chromosomes(fingerprint);

			CREATE TABLE IF NOT EXISTS chromosome_genes (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				chromosome_id   TEXT NOT NULL REFERENCES chromosomes(id),
				gene_type       TEXT NOT NULL,
				parameters      TEXT NOT NULL,
				weight          REAL NOT NULL,
				is_active       INTEGER NOT NULL,
				risk_factor     REAL NOT NULL,
				performance_contribution REAL NOT NULL,
				mutation_history TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_chromosome_genes_chromosome ON chromosome_genes(chromosome_id);

			CREATE TABLE IF NOT EXISTS evolution_history (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				population_id   TEXT NOT NULL REFERENCES populations(id),
				generation      INTEGER NOT NULL,
				best_fitness    REAL NOT NULL,
				average_fitness REAL NOT NULL,
				worst_fitness   REAL NOT NULL,
				diversity       REAL NOT NULL,
				mutation_rate   REAL NOT NULL,
				recorded_at     INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_evolution_history_population ON evolution_history(population_id, generation);

			CREATE TABLE IF NOT EXISTS gene_parameters (
				gene_type      TEXT NOT NULL,
				parameter_name TEXT NOT NULL,
				min_value      REAL,
				max_value      REAL,
				enum_values    TEXT,
				PRIMARY KEY (gene_type, parameter_name)
			);

			INSERT INTO schema_version(version) VALUES (1);
		`); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}
	return nil
}
