// Package history persists a record of every delivered prediction in
// SQLite. It exists for debugging tuning questions ("why did it fire
// there?") and for the `typeahead history` command; the daemon works fine
// with it disabled.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"typeahead/internal/logging"
	"typeahead/internal/predict"
)

// Entry is one recorded prediction.
type Entry struct {
	ID          string
	RequestedAt time.Time
	Trigger     string
	Content     string
	Completion  string
	ElapsedMS   int64
	Accepted    bool
}

// Store is the SQLite-backed prediction log.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	id           TEXT PRIMARY KEY,
	requested_at INTEGER NOT NULL,
	trigger      TEXT NOT NULL,
	content      TEXT NOT NULL,
	completion   TEXT NOT NULL,
	elapsed_ms   INTEGER NOT NULL,
	accepted     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_predictions_requested_at
	ON predictions(requested_at DESC);
`

// Open initializes the store at the given path, creating the file and
// schema as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("history: create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Get(logging.CategoryStore).Debug("set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.Get(logging.CategoryStore).Debug("set journal_mode: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}

	logging.Get(logging.CategoryStore).Info("history store open at %s", path)
	return &Store{db: db, dbPath: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record logs one delivered prediction against the content snapshot that
// produced it.
func (s *Store) Record(id string, requestedAt time.Time, content string, result predict.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO predictions (id, requested_at, trigger, content, completion, elapsed_ms, accepted)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		id, requestedAt.UnixMilli(), string(result.Meta.Trigger), content,
		result.Text, result.Meta.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

// MarkAccepted flags a prediction the user accepted with the trigger key.
func (s *Store) MarkAccepted(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE predictions SET accepted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("history: mark accepted: %w", err)
	}
	return nil
}

// Recent returns the newest n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, requested_at, trigger, content, completion, elapsed_ms, accepted
		 FROM predictions ORDER BY requested_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at int64
		var accepted int
		if err := rows.Scan(&e.ID, &at, &e.Trigger, &e.Content, &e.Completion, &e.ElapsedMS, &accepted); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.RequestedAt = time.UnixMilli(at)
		e.Accepted = accepted != 0
		out = append(out, e)
	}
	return out, rows.Err()
}
