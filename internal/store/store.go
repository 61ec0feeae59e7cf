// Package store keeps a SQLite record of contour runs: the samples each
// region was interpolated from and the contours extracted from them, so
// runs can be compared and re-plotted without re-harvesting.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/exclusion.report/internal/contour"
	"github.com/banshee-data/exclusion.report/internal/timeutil"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps the run database.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Run is one invocation of the pipeline.
type Run struct {
	ID         string          `json:"run_id"`
	CreatedAt  time.Time       `json:"created_at"`
	Version    string          `json:"version"`
	ConfigJSON json.RawMessage `json:"config,omitempty"`
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema. ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection keeps the pragmas and an in-memory database alive;
	// writers from several regions queue on it.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SetClock replaces the time source used to stamp new runs.
func (s *Store) SetClock(c timeutil.Clock) {
	s.clock = c
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertRun persists a run. An empty ID is filled with a new UUID and a
// zero CreatedAt with the current time.
func (s *Store) InsertRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.clock.Now()
	}
	var cfg interface{}
	if len(run.ConfigJSON) > 0 {
		cfg = string(run.ConfigJSON)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, version, config_json) VALUES (?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixNano(), run.Version, cfg)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Runs returns every run, newest first.
func (s *Store) Runs(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, created_at, version, config_json
		FROM runs
		ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var created int64
		var cfg sql.NullString
		if err := rows.Scan(&r.ID, &created, &r.Version, &cfg); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt = time.Unix(0, created)
		if cfg.Valid {
			r.ConfigJSON = json.RawMessage(cfg.String)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// InsertSamples stores the samples a region was interpolated from,
// replacing any stored earlier for the same run and region.
func (s *Store) InsertSamples(ctx context.Context, runID, region string, samples []contour.Sample) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM samples WHERE run_id = ? AND region = ?`, runID, region); err != nil {
		return fmt.Errorf("clear samples: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (run_id, region, seq, x, y, metrics_json)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare samples: %w", err)
	}
	defer stmt.Close()

	for i, smp := range samples {
		metrics, err := json.Marshal(finiteMetrics(smp.Metrics))
		if err != nil {
			return fmt.Errorf("encode sample %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, region, i, smp.X, smp.Y, string(metrics)); err != nil {
			return fmt.Errorf("insert sample %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Samples returns the stored samples of a region in insertion order.
func (s *Store) Samples(ctx context.Context, runID, region string) ([]contour.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT x, y, metrics_json
		FROM samples
		WHERE run_id = ? AND region = ?
		ORDER BY seq`, runID, region)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []contour.Sample
	for rows.Next() {
		var smp contour.Sample
		var metrics string
		if err := rows.Scan(&smp.X, &smp.Y, &metrics); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		if err := json.Unmarshal([]byte(metrics), &smp.Metrics); err != nil {
			return nil, fmt.Errorf("decode sample metrics: %w", err)
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}

// InsertContour stores one contour of a region, replacing an earlier one
// of the same name.
func (s *Store) InsertContour(ctx context.Context, runID, region string, c *contour.Contour) error {
	polys := c.Polygons
	if polys == nil {
		polys = []contour.Polygon{}
	}
	data, err := json.Marshal(polys)
	if err != nil {
		return fmt.Errorf("encode contour %s: %w", c.Name, err)
	}
	area := 0.0
	for _, p := range c.Polygons {
		area += p.Area()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO contours (run_id, region, name, level, area, polygons_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, region, c.Name, c.Level, area, string(data))
	if err != nil {
		return fmt.Errorf("insert contour %s: %w", c.Name, err)
	}
	return nil
}

// Contours returns the stored contours of a region, ordered by name.
func (s *Store) Contours(ctx context.Context, runID, region string) ([]*contour.Contour, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, level, polygons_json
		FROM contours
		WHERE run_id = ? AND region = ?
		ORDER BY name`, runID, region)
	if err != nil {
		return nil, fmt.Errorf("query contours: %w", err)
	}
	defer rows.Close()

	var out []*contour.Contour
	for rows.Next() {
		var c contour.Contour
		var polys string
		if err := rows.Scan(&c.Name, &c.Level, &polys); err != nil {
			return nil, fmt.Errorf("scan contour: %w", err)
		}
		if err := json.Unmarshal([]byte(polys), &c.Polygons); err != nil {
			return nil, fmt.Errorf("decode contour %s: %w", c.Name, err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Regions lists the regions with stored samples or contours for a run.
func (s *Store) Regions(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT region FROM samples WHERE run_id = ?
		UNION
		SELECT region FROM contours WHERE run_id = ?
		ORDER BY region`, runID, runID)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// finiteMetrics drops NaN and infinite values, which JSON cannot carry.
func finiteMetrics(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}
