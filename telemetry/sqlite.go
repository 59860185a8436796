package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/cavefish/config"

	_ "modernc.org/sqlite"
)

// SQLiteSink stores runs, generation records and bookmarks in a SQLite database.
// Several runs may share one database; each gets a fresh run ID.
type SQLiteSink struct {
	path  string
	runID string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteSink creates a sink for the database at path. Call Init before use.
func NewSQLiteSink(path string) *SQLiteSink {
	return &SQLiteSink{path: path}
}

// Init opens the database, creates tables and registers a new run.
func (s *SQLiteSink) Init(ctx context.Context, cfg *config.Config, seed int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	payload, err := yaml.Marshal(cfg)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("marshaling config: %w", err)
	}

	runID := uuid.NewString()
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (run_id, seed, preset, started_at, config)
		VALUES (?, ?, ?, ?, ?)
	`, runID, seed, cfg.Environment.Preset, time.Now().UTC().Format(time.RFC3339), string(payload))
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("registering run: %w", err)
	}

	s.db = db
	s.runID = runID
	return nil
}

// RunID returns the ID assigned by Init.
func (s *SQLiteSink) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// Emit inserts a generation record, replacing any earlier record for the
// same generation of this run.
func (s *SQLiteSink) Emit(stats GenerationStats) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(context.Background(), `
		INSERT INTO generations (
			run_id, generation, population_size, evaluated, viable, offspring_raw,
			mean_fitness, fitness_std, fitness_p10, fitness_p50, fitness_p90,
			mean_pigmentation, mean_eye_size, mean_metabolic_rate, mean_lateral_line, mean_olfactory_bulb,
			mean_light, mean_food, mean_temperature, resource_usage
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			population_size = excluded.population_size,
			evaluated = excluded.evaluated,
			viable = excluded.viable,
			offspring_raw = excluded.offspring_raw,
			mean_fitness = excluded.mean_fitness,
			fitness_std = excluded.fitness_std,
			fitness_p10 = excluded.fitness_p10,
			fitness_p50 = excluded.fitness_p50,
			fitness_p90 = excluded.fitness_p90,
			mean_pigmentation = excluded.mean_pigmentation,
			mean_eye_size = excluded.mean_eye_size,
			mean_metabolic_rate = excluded.mean_metabolic_rate,
			mean_lateral_line = excluded.mean_lateral_line,
			mean_olfactory_bulb = excluded.mean_olfactory_bulb,
			mean_light = excluded.mean_light,
			mean_food = excluded.mean_food,
			mean_temperature = excluded.mean_temperature,
			resource_usage = excluded.resource_usage
	`, s.RunID(), stats.Generation, stats.PopulationSize, stats.Evaluated, stats.Viable, stats.OffspringRaw,
		stats.MeanFitness, stats.FitnessStd, stats.FitnessP10, stats.FitnessP50, stats.FitnessP90,
		stats.MeanPigmentation, stats.MeanEyeSize, stats.MeanMetabolicRate, stats.MeanLateralLine, stats.MeanOlfactoryBulb,
		stats.MeanLight, stats.MeanFood, stats.MeanTemperature, stats.ResourceUsage)
	if err != nil {
		return fmt.Errorf("inserting generation %d: %w", stats.Generation, err)
	}
	return nil
}

// WriteBookmark inserts a bookmark.
func (s *SQLiteSink) WriteBookmark(b Bookmark) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(context.Background(), `
		INSERT INTO bookmarks (run_id, generation, type, description)
		VALUES (?, ?, ?, ?)
	`, s.RunID(), b.Generation, string(b.Type), b.Description)
	return err
}

// Finish records the run outcome.
func (s *SQLiteSink) Finish(ctx context.Context, outcome string, generation int, cause string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		UPDATE runs SET outcome = ?, final_generation = ?, cause = ?, finished_at = ?
		WHERE run_id = ?
	`, outcome, generation, cause, time.Now().UTC().Format(time.RFC3339), s.RunID())
	return err
}

// Generations reads back the generation records of a run in order.
func (s *SQLiteSink) Generations(ctx context.Context, runID string) ([]GenerationStats, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT generation, population_size, evaluated, viable, offspring_raw,
			mean_fitness, fitness_std, fitness_p10, fitness_p50, fitness_p90,
			mean_pigmentation, mean_eye_size, mean_metabolic_rate, mean_lateral_line, mean_olfactory_bulb,
			mean_light, mean_food, mean_temperature, resource_usage
		FROM generations WHERE run_id = ? ORDER BY generation
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GenerationStats
	for rows.Next() {
		var g GenerationStats
		if err := rows.Scan(&g.Generation, &g.PopulationSize, &g.Evaluated, &g.Viable, &g.OffspringRaw,
			&g.MeanFitness, &g.FitnessStd, &g.FitnessP10, &g.FitnessP50, &g.FitnessP90,
			&g.MeanPigmentation, &g.MeanEyeSize, &g.MeanMetabolicRate, &g.MeanLateralLine, &g.MeanOlfactoryBulb,
			&g.MeanLight, &g.MeanFood, &g.MeanTemperature, &g.ResourceUsage); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Outcome reads the recorded outcome of a run.
func (s *SQLiteSink) Outcome(ctx context.Context, runID string) (outcome string, generation int, cause string, err error) {
	db, err := s.getDB()
	if err != nil {
		return "", 0, "", err
	}
	err = db.QueryRowContext(ctx, `
		SELECT COALESCE(outcome, ''), COALESCE(final_generation, 0), COALESCE(cause, '')
		FROM runs WHERE run_id = ?
	`, runID).Scan(&outcome, &generation, &cause)
	return outcome, generation, cause, err
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteSink) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("sqlite sink is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			preset TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			outcome TEXT,
			final_generation INTEGER,
			cause TEXT,
			config TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			population_size INTEGER NOT NULL,
			evaluated INTEGER NOT NULL,
			viable INTEGER NOT NULL,
			offspring_raw INTEGER NOT NULL,
			mean_fitness REAL NOT NULL,
			fitness_std REAL NOT NULL,
			fitness_p10 REAL NOT NULL,
			fitness_p50 REAL NOT NULL,
			fitness_p90 REAL NOT NULL,
			mean_pigmentation REAL NOT NULL,
			mean_eye_size REAL NOT NULL,
			mean_metabolic_rate REAL NOT NULL,
			mean_lateral_line REAL NOT NULL,
			mean_olfactory_bulb REAL NOT NULL,
			mean_light REAL NOT NULL,
			mean_food REAL NOT NULL,
			mean_temperature REAL NOT NULL,
			resource_usage REAL NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
		CREATE TABLE IF NOT EXISTS bookmarks (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT NOT NULL
		);
	`)
	return err
}
