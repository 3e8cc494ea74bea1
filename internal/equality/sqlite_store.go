package equality

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/stwalsh4118/git-check-rebase/internal/db"
	"github.com/stwalsh4118/git-check-rebase/internal/logging"
)

// DefaultDatabaseName is the sqlite file name inside the git common directory
const DefaultDatabaseName = "commit-equality.db"

// SQLiteStore keeps verdicts in a sqlite table, one row per canonical pair
type SQLiteStore struct {
	db     *sql.DB
	path   string
	runID  string
	logger logging.Logger
}

// OpenSQLiteStore opens (and migrates) the database at path. A file that
// cannot be opened as the equality database is removed and recreated empty.
// Rows holding an unknown verdict make the whole table untrustworthy, so it
// is emptied.
func OpenSQLiteStore(path, runID string, logger logging.Logger) (*SQLiteStore, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	s := &SQLiteStore{
		path:   path,
		runID:  runID,
		logger: logger.With("component", "equality_sqlite_store"),
	}

	err := s.open()
	if err == nil {
		return s, nil
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, err
	}

	s.logger.Warn("discarding corrupt equality database", "path", path, "error", err)
	if err := removeDatabase(path); err != nil {
		return nil, err
	}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) open() error {
	database, err := db.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open equality database: %w", err)
	}

	var bad int
	err = database.QueryRow(`
		SELECT COUNT(*) FROM commit_equality
		WHERE verdict NOT IN (?, ?, ?)
	`, Equal.String(), Differs.String(), FullEqual.String()).Scan(&bad)
	if err != nil {
		database.Close()
		return fmt.Errorf("failed to validate equality database: %w", err)
	}
	s.db = database

	if bad > 0 {
		s.logger.Warn("discarding corrupt equality rows", "path", s.path, "bad_rows", bad)
		if err := s.Clear(); err != nil {
			database.Close()
			return err
		}
	}
	return nil
}

// removeDatabase deletes the database file and its journal side files
func removeDatabase(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove corrupt equality database: %w", err)
		}
	}
	return nil
}

// Get looks the pair up in either order
func (s *SQLiteStore) Get(id1, id2 string) (Verdict, bool, error) {
	pair := SortedPair(id1, id2)

	var name string
	err := s.db.QueryRow(`SELECT verdict FROM commit_equality WHERE id1 = ? AND id2 = ?`, pair.First, pair.Second).Scan(&name)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query verdict: %w", err)
	}

	v, err := ParseVerdict(name)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse stored verdict: %w", err)
	}
	return v, true, nil
}

// Put stores the verdict, replacing any previous row for the pair
func (s *SQLiteStore) Put(id1, id2 string, v Verdict) error {
	pair := SortedPair(id1, id2)

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO commit_equality (id1, id2, verdict, run_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, pair.First, pair.Second, v.String(), s.runID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store verdict: %w", err)
	}
	return nil
}

// Stats counts rows per verdict
func (s *SQLiteStore) Stats() (Stats, error) {
	stats := Stats{
		Backend:   "sqlite",
		Location:  s.path,
		ByVerdict: make(map[string]int),
	}

	rows, err := s.db.Query(`SELECT verdict, COUNT(*) FROM commit_equality GROUP BY verdict`)
	if err != nil {
		return stats, fmt.Errorf("failed to query verdict counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return stats, fmt.Errorf("failed to scan verdict count: %w", err)
		}
		stats.ByVerdict[name] = count
		stats.Entries += count
	}

	return stats, rows.Err()
}

// Clear deletes every stored verdict
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM commit_equality`); err != nil {
		return fmt.Errorf("failed to clear equality database: %w", err)
	}
	s.logger.Info("equality database cleared", "path", s.path)
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
