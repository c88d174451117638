// Package store persists the pipeline state that must survive a
// restart: the replay set of seen reports, per-domain adaptive
// thresholds, and the learner's heuristic counters.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// seenMaxAge is how long a report key blocks replays.
const seenMaxAge = 12 * time.Hour

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, migrates the schema and
// sweeps expired replay entries. Durability matters more than write
// throughput here, so synchronous stays at FULL.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA synchronous = FULL`); err != nil {
		return nil, fmt.Errorf("error setting synchronous mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating database: %w", err)
	}
	if err := s.sweepSeen(); err != nil {
		return nil, fmt.Errorf("error sweeping seen set: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS seen (
			key TEXT PRIMARY KEY,
			first_seen INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS thresholds (
			domain_key TEXT PRIMARY KEY,
			averages TEXT NOT NULL,
			variances TEXT NOT NULL,
			sigmas REAL NOT NULL
		);

		CREATE TABLE IF NOT EXISTS heuristics (
			name TEXT PRIMARY KEY,
			counter REAL NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_seen_first_seen ON seen(first_seen);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) sweepSeen() error {
	cutoff := time.Now().Add(-seenMaxAge).Unix()
	_, err := s.db.Exec(`DELETE FROM seen WHERE first_seen < ?`, cutoff)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Admit records key in the replay set and reports whether it was new.
// A key is admitted exactly once per retention window.
func (s *Store) Admit(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO seen (key, first_seen) VALUES (?, ?)`,
		key, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("error recording seen key: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error checking seen insert: %w", err)
	}
	return inserted > 0, nil
}

// ThresholdRecord is the persisted form of an adaptive threshold.
type ThresholdRecord struct {
	Averages  [24]float64
	Variances [24]float64
	Sigmas    float64
}

// SaveThreshold upserts the threshold state for a canonicalized domain
// key.
func (s *Store) SaveThreshold(ctx context.Context, key string, rec ThresholdRecord) error {
	averages, err := json.Marshal(rec.Averages)
	if err != nil {
		return fmt.Errorf("error encoding averages: %w", err)
	}
	variances, err := json.Marshal(rec.Variances)
	if err != nil {
		return fmt.Errorf("error encoding variances: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO thresholds (domain_key, averages, variances, sigmas)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(domain_key) DO UPDATE SET
			averages = excluded.averages,
			variances = excluded.variances,
			sigmas = excluded.sigmas`,
		key, string(averages), string(variances), rec.Sigmas)
	if err != nil {
		return fmt.Errorf("error saving threshold: %w", err)
	}
	return nil
}

// LoadThreshold returns the stored threshold for key, or ok=false when
// none was ever saved.
func (s *Store) LoadThreshold(ctx context.Context, key string) (ThresholdRecord, bool, error) {
	var rec ThresholdRecord
	var averages, variances string

	row := s.db.QueryRowContext(ctx,
		`SELECT averages, variances, sigmas FROM thresholds WHERE domain_key = ?`, key)
	if err := row.Scan(&averages, &variances, &rec.Sigmas); err != nil {
		if err == sql.ErrNoRows {
			return rec, false, nil
		}
		return rec, false, fmt.Errorf("error loading threshold: %w", err)
	}

	if err := json.Unmarshal([]byte(averages), &rec.Averages); err != nil {
		return rec, false, fmt.Errorf("error decoding averages: %w", err)
	}
	if err := json.Unmarshal([]byte(variances), &rec.Variances); err != nil {
		return rec, false, fmt.Errorf("error decoding variances: %w", err)
	}
	return rec, true, nil
}

// Thresholds returns every stored threshold keyed by domain key.
func (s *Store) Thresholds(ctx context.Context) (map[string]ThresholdRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain_key, averages, variances, sigmas FROM thresholds`)
	if err != nil {
		return nil, fmt.Errorf("error listing thresholds: %w", err)
	}
	defer rows.Close()

	records := make(map[string]ThresholdRecord)
	for rows.Next() {
		var key, averages, variances string
		var rec ThresholdRecord
		if err := rows.Scan(&key, &averages, &variances, &rec.Sigmas); err != nil {
			return nil, fmt.Errorf("error scanning threshold: %w", err)
		}
		if err := json.Unmarshal([]byte(averages), &rec.Averages); err != nil {
			return nil, fmt.Errorf("error decoding averages: %w", err)
		}
		if err := json.Unmarshal([]byte(variances), &rec.Variances); err != nil {
			return nil, fmt.Errorf("error decoding variances: %w", err)
		}
		records[key] = rec
	}
	return records, rows.Err()
}

// BumpStat adds delta to the named heuristic counter.
func (s *Store) BumpStat(ctx context.Context, name string, delta float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO heuristics (name, counter) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET counter = counter + excluded.counter`,
		name, delta)
	if err != nil {
		return fmt.Errorf("error updating heuristic counter: %w", err)
	}
	return nil
}

// SetStat overwrites the named counter. Used for derived ratios.
func (s *Store) SetStat(ctx context.Context, name string, value float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO heuristics (name, counter) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET counter = excluded.counter`,
		name, value)
	if err != nil {
		return fmt.Errorf("error setting heuristic counter: %w", err)
	}
	return nil
}

// Stats returns every heuristic counter.
func (s *Store) Stats(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, counter FROM heuristics`)
	if err != nil {
		return nil, fmt.Errorf("error listing heuristic counters: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]float64)
	for rows.Next() {
		var name string
		var counter float64
		if err := rows.Scan(&name, &counter); err != nil {
			return nil, fmt.Errorf("error scanning heuristic counter: %w", err)
		}
		stats[name] = counter
	}
	return stats, rows.Err()
}
