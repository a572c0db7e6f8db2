package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Archive is a sqlite3-backed history of trend_test run summaries per
// series (pruned by age via PruneOlderThan), adapted from the teacher's LocalCellDatabase
// (table-per-concern schema, retention by age, accuracy-style filtering
// generalized to a minimum-confidence filter).
type Archive struct {
	db     *sql.DB
	path   string
	config ArchiveConfig
}

// ArchiveConfig mirrors the teacher's LocalCellDatabaseConfig shape.
type ArchiveConfig struct {
	DatabasePath   string
	RetentionDays  int
	MinConfidence  float64 // skip archiving analyses below this confidence
}

// DefaultArchiveConfig returns conservative defaults.
func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		DatabasePath:  "/var/lib/mktrend/archive.db",
		RetentionDays: 365,
		MinConfidence: 0,
	}
}

// OpenArchive opens (creating if absent) the sqlite3 archive database.
func OpenArchive(cfg ArchiveConfig) (*Archive, error) {
	dir := filepath.Dir(cfg.DatabasePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create archive directory: %w", err)
	}
	db, err := sql.Open("sqlite3", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("store: open archive database: %w", err)
	}
	a := &Archive{db: db, path: cfg.DatabasePath, config: cfg}
	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trend_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		series_key TEXT NOT NULL,
		n INTEGER NOT NULL,
		s REAL NOT NULL,
		var_s REAL NOT NULL,
		z REAL NOT NULL,
		p REAL NOT NULL,
		slope REAL NOT NULL,
		ci_lower REAL,
		ci_upper REAL,
		confidence REAL NOT NULL,
		classification TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trend_runs_series ON trend_runs(series_key);
	CREATE INDEX IF NOT EXISTS idx_trend_runs_run_at ON trend_runs(run_at);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (a *Archive) Close() error { return a.db.Close() }

// RunRecord is one archived trend_test outcome.
type RunRecord struct {
	SeriesKey      string
	N              int
	S              float64
	VarS           float64
	Z              float64
	P              float64
	Slope          float64
	CILower        float64
	CIUpper        float64
	Confidence     float64
	Classification string
}

// Append inserts one run record, skipping records below
// cfg.MinConfidence (the accuracy-filter idiom of the teacher's
// StoreObservation).
func (a *Archive) Append(r RunRecord) error {
	if r.Confidence < a.config.MinConfidence {
		return nil
	}
	_, err := a.db.Exec(
		`INSERT INTO trend_runs (series_key, n, s, var_s, z, p, slope, ci_lower, ci_upper, confidence, classification)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SeriesKey, r.N, r.S, r.VarS, r.Z, r.P, r.Slope, r.CILower, r.CIUpper, r.Confidence, r.Classification,
	)
	if err != nil {
		return fmt.Errorf("store: append run record: %w", err)
	}
	return nil
}

// History returns up to limit archived runs for seriesKey, most recent
// first.
func (a *Archive) History(seriesKey string, limit int) ([]RunRecord, error) {
	rows, err := a.db.Query(
		`SELECT series_key, n, s, var_s, z, p, slope, ci_lower, ci_upper, confidence, classification
		 FROM trend_runs WHERE series_key = ? ORDER BY run_at DESC, id DESC LIMIT ?`,
		seriesKey, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query history: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.SeriesKey, &r.N, &r.S, &r.VarS, &r.Z, &r.P, &r.Slope, &r.CILower, &r.CIUpper, &r.Confidence, &r.Classification); err != nil {
			return nil, fmt.Errorf("store: scan history row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delta reports the change in slope and classification between the two
// most recent archived runs for seriesKey, a drift-detection helper for
// dashboards watching a series over repeated analyses.
func (a *Archive) Delta(seriesKey string) (slopeDelta float64, changed bool, err error) {
	hist, err := a.History(seriesKey, 2)
	if err != nil {
		return 0, false, err
	}
	if len(hist) < 2 {
		return 0, false, nil
	}
	slopeDelta = hist[0].Slope - hist[1].Slope
	changed = hist[0].Classification != hist[1].Classification
	return slopeDelta, changed, nil
}

// PruneOlderThan deletes archived runs older than cfg.RetentionDays.
func (a *Archive) PruneOlderThan(now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -a.config.RetentionDays)
	res, err := a.db.Exec(`DELETE FROM trend_runs WHERE run_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: prune: %w", err)
	}
	return res.RowsAffected()
}
