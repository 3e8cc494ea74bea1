package equality

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/stwalsh4118/git-check-rebase/internal/logging"
)

// DefaultFileName is the cache file name inside the git common directory
const DefaultFileName = "commit-equality-cache"

// Store persists verdicts keyed by an unordered commit pair
type Store interface {
	Get(id1, id2 string) (Verdict, bool, error)
	Put(id1, id2 string, v Verdict) error
	Stats() (Stats, error)
	Clear() error
	Close() error
}

// Stats describes the content of a store
type Stats struct {
	Backend   string         `json:"backend" yaml:"backend"`
	Location  string         `json:"location" yaml:"location"`
	Entries   int            `json:"entries" yaml:"entries"`
	ByVerdict map[string]int `json:"by_verdict" yaml:"by_verdict"`
}

// FileStore is the append-only text backend. Each line holds
// "<id1> <id2> <VERDICT>" with id1 <= id2; replay folds top to bottom so the
// last line for a pair wins.
type FileStore struct {
	path    string
	entries map[Pair]Verdict
	logger  logging.Logger
}

// errCorrupt marks a store that must be discarded as a whole
var errCorrupt = errors.New("corrupt equality cache")

// OpenFileStore replays the file at path. A missing file gives an empty
// store; a file with any unparseable line is removed and the store starts
// empty.
func OpenFileStore(path string, logger logging.Logger) (*FileStore, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	s := &FileStore{
		path:    path,
		entries: make(map[Pair]Verdict),
		logger:  logger.With("component", "equality_file_store"),
	}

	entries, err := replay(path)
	switch {
	case err == nil:
		s.entries = entries
	case os.IsNotExist(err):
		s.logger.Debug("equality cache file does not exist, starting empty", "path", path)
	case errors.Is(err, errCorrupt):
		s.logger.Warn("discarding corrupt equality cache", "path", path, "error", err)
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("failed to remove corrupt equality cache: %w", rmErr)
		}
	default:
		return nil, fmt.Errorf("failed to read equality cache: %w", err)
	}

	s.logger.Debug("equality cache loaded", "path", path, "entries", len(s.entries))
	return s, nil
}

func replay(path string) (map[Pair]Verdict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries := make(map[Pair]Verdict)
	r := bufio.NewReader(f)
	lineNo := 0
	for {
		raw, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("%w: %v", errCorrupt, err)
		}
		if raw == "" && err == io.EOF {
			break
		}
		lineNo++

		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, " ", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: line %d: expected 3 fields", errCorrupt, lineNo)
		}

		v, perr := ParseVerdict(fields[2])
		if perr != nil {
			return nil, fmt.Errorf("%w: line %d: %v", errCorrupt, lineNo, perr)
		}

		entries[SortedPair(fields[0], fields[1])] = v
	}

	return entries, nil
}

// Get looks the pair up in either order
func (s *FileStore) Get(id1, id2 string) (Verdict, bool, error) {
	v, ok := s.entries[SortedPair(id1, id2)]
	return v, ok, nil
}

// Put records the verdict in memory and appends it to the file, synced
// before returning.
func (s *FileStore) Put(id1, id2 string, v Verdict) error {
	pair := SortedPair(id1, id2)
	s.entries[pair] = v

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open equality cache: %w", err)
	}

	if _, err := fmt.Fprintf(f, "%s %s %s\n", pair.First, pair.Second, v); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to equality cache: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync equality cache: %w", err)
	}

	return f.Close()
}

// Stats counts the replayed entries
func (s *FileStore) Stats() (Stats, error) {
	stats := Stats{
		Backend:   "file",
		Location:  s.path,
		Entries:   len(s.entries),
		ByVerdict: make(map[string]int),
	}
	for _, v := range s.entries {
		stats.ByVerdict[v.String()]++
	}
	return stats, nil
}

// Clear forgets every verdict and removes the file
func (s *FileStore) Clear() error {
	s.entries = make(map[Pair]Verdict)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove equality cache: %w", err)
	}
	s.logger.Info("equality cache cleared", "path", s.path)
	return nil
}

// Close is a no-op, every Put is already durable
func (s *FileStore) Close() error {
	return nil
}
