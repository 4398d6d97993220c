package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"PairWatch/internal/model"
)

// SQLiteRecorder persists analysis cycles to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance while the server writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS correlation_snapshots (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			timeframe     TEXT NOT NULL,
			correlation   REAL,
			p_value       REAL,
			lead_lag      INTEGER,
			lead_lag_corr REAL,
			strength      TEXT,
			leader        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_corr_ts ON correlation_snapshots(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_corr_tf ON correlation_snapshots(timeframe, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordCycle writes one row per timeframe for the completed cycle.
func (r *SQLiteRecorder) RecordCycle(ts time.Time, result model.MultiTimeframeResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	labels := make([]string, 0, len(result))
	for label := range result {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	unix := ts.Unix()
	for _, label := range labels {
		res := result[label]
		_, err := r.db.Exec(`INSERT INTO correlation_snapshots
			(timestamp, timeframe, correlation, p_value, lead_lag, lead_lag_corr, strength, leader)
			VALUES (?,?,?,?,?,?,?,?)`,
			unix, label, res.Correlation, res.PValue,
			res.LeadLag, res.LeadLagCorr, res.Strength, res.Leader,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
