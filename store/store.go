// Package store records conformance runs in a SQL database. SQLite is the
// default; DuckDB is available in cgo builds.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/yield/conformance"
)

// ErrRunNotFound indicates the requested run doesn't exist
var ErrRunNotFound = errors.New("run not found")

// Drivers, as named in yield.toml.
const (
	DriverSQLite = "sqlite"
	DriverDuckDB = "duckdb"
)

// Summary is the listing form of a stored run.
type Summary struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Cases    int
	Checks   int
	Failed   int
}

// Store handles SQL storage for conformance reports
type Store struct {
	db     *sql.DB
	driver string
	path   string
	log    commonlog.Logger
	mu     sync.Mutex
}

// Open opens or creates the database at path.
func Open(driver, path string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverDuckDB:
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: creating directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	s := &Store{db: db, driver: driver, path: path, log: commonlog.GetLogger("yield.store")}

	if driver == DriverSQLite {
		// One connection: the pragma is per connection and SQLite has a
		// single writer anyway.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: setting busy timeout: %w", err)
		}
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started BIGINT NOT NULL,
		duration BIGINT NOT NULL,
		cases INTEGER NOT NULL,
		checks INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		report BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating table: %w", err)
	}

	s.log.Debugf("opened %s store at %s", driver, path)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Driver returns the driver name.
func (s *Store) Driver() string { return s.driver }

// Save persists a report, replacing any run with the same id.
func (s *Store) Save(r *conformance.Report) error {
	if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("store: invalid run id %q: %w", r.ID, err)
	}
	data, err := conformance.MarshalReport(r)
	if err != nil {
		return fmt.Errorf("store: encoding report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO runs (id, started, duration, cases, checks, failed, report) VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.Started, int64(r.Duration), r.Cases, r.Checks, r.Failed, data,
	)
	if err != nil {
		return fmt.Errorf("store: saving run: %w", err)
	}
	s.log.Debugf("saved run %s (%d checks, %d failed)", r.ID, r.Checks, r.Failed)
	return nil
}

// Load retrieves a report by id.
func (s *Store) Load(id string) (*conformance.Report, error) {
	var data []byte
	err := s.db.QueryRow("SELECT report FROM runs WHERE id = ?", id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("store: querying run: %w", err)
	}
	return conformance.UnmarshalReport(data)
}

// List returns the most recent runs first. limit <= 0 lists everything.
func (s *Store) List(limit int) ([]Summary, error) {
	query := "SELECT id, started, duration, cases, checks, failed FROM runs ORDER BY started DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: listing runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum      Summary
			started  int64
			duration int64
		)
		if err := rows.Scan(&sum.ID, &started, &duration, &sum.Cases, &sum.Checks, &sum.Failed); err != nil {
			return nil, fmt.Errorf("store: scanning run: %w", err)
		}
		sum.Started = time.Unix(0, started)
		sum.Duration = time.Duration(duration)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a run.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("store: deleting run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}
