// Package benchstore persists selection-harness measurements in a SQLite
// database so throughput can be compared across runs, datasets, and
// machines.
package benchstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database of throughput measurements.
type Store struct {
	conn *sql.DB
	path string
}

// Measurement is one recorded selection-harness result.
type Measurement struct {
	ID          int64
	Dataset     string
	Algorithm   string
	Cardinality int
	Throughput  float64 // queries per second
	Selected    bool    // whether the harness picked this algorithm
	MeasuredAt  time.Time
}

// Open creates or opens the measurement database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Store{conn: conn, path: dbPath}, nil
}

func migrate(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS measurements (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			dataset     TEXT NOT NULL,
			algorithm   TEXT NOT NULL,
			cardinality INTEGER NOT NULL,
			throughput  REAL NOT NULL,
			selected    INTEGER NOT NULL DEFAULT 0,
			measured_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_measurements_dataset
			ON measurements(dataset, measured_at);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Record inserts one measurement and returns its row ID.
func (s *Store) Record(m Measurement) (int64, error) {
	if m.MeasuredAt.IsZero() {
		m.MeasuredAt = time.Now().UTC()
	}
	res, err := s.conn.Exec(
		`INSERT INTO measurements (dataset, algorithm, cardinality, throughput, selected, measured_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.Dataset, m.Algorithm, m.Cardinality, m.Throughput, m.Selected, m.MeasuredAt,
	)
	if err != nil {
		return 0, fmt.Errorf("recording measurement: %w", err)
	}
	return res.LastInsertId()
}

// History returns the measurements for a dataset, newest first, up to
// limit rows.
func (s *Store) History(dataset string, limit int) ([]Measurement, error) {
	rows, err := s.conn.Query(
		`SELECT id, dataset, algorithm, cardinality, throughput, selected, measured_at
		 FROM measurements WHERE dataset = ?
		 ORDER BY measured_at DESC, id DESC LIMIT ?`,
		dataset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []Measurement
	for rows.Next() {
		var m Measurement
		if err := rows.Scan(&m.ID, &m.Dataset, &m.Algorithm, &m.Cardinality, &m.Throughput, &m.Selected, &m.MeasuredAt); err != nil {
			return nil, fmt.Errorf("scanning measurement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Best returns the highest-throughput measurement for a dataset.
func (s *Store) Best(dataset string) (Measurement, error) {
	var m Measurement
	err := s.conn.QueryRow(
		`SELECT id, dataset, algorithm, cardinality, throughput, selected, measured_at
		 FROM measurements WHERE dataset = ?
		 ORDER BY throughput DESC LIMIT 1`,
		dataset,
	).Scan(&m.ID, &m.Dataset, &m.Algorithm, &m.Cardinality, &m.Throughput, &m.Selected, &m.MeasuredAt)
	if err != nil {
		return m, fmt.Errorf("querying best measurement: %w", err)
	}
	return m, nil
}
