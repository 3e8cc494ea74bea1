// Package meta reads and updates the review metadata file: per-commit
// comments, confirmed-equal hash pairs, drop and feature tags.
package meta

import (
	"fmt"
	"os"
	"strings"

	"github.com/stwalsh4118/git-check-rebase/internal/logging"
	"github.com/stwalsh4118/git-check-rebase/internal/subject"
)

// Pair is a reviewer-confirmed pair of equal commits
type Pair struct {
	First  string
	Second string
}

// CommitMeta holds everything recorded about one commit subject
type CommitMeta struct {
	Subject     string // as written in the file
	Feature     string
	Drop        string // "", "drop" or "drop-<reason>"
	Upstreaming string
	Comment     string // lines joined by '\n', no trailing newline
	Checked     []Pair
}

// ParseError reports a malformed line of the metadata file
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("meta line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// DoubleDefinitionError is returned when two subject lines share a key
type DoubleDefinitionError struct {
	Line    int
	Subject string
	Key     string
}

func (e *DoubleDefinitionError) Error() string {
	return fmt.Sprintf("meta line %d: double definition of %q (key %q)", e.Line, e.Subject, e.Key)
}

// Store is the parsed metadata file
type Store struct {
	path    string
	byKey   map[string]*CommitMeta
	aliases map[string]string
	logger  logging.Logger
}

// Load reads and parses the metadata file at path
func Load(path string, logger logging.Logger) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read meta file: %w", err)
	}

	s, err := Parse(string(data), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse meta file %s: %w", path, err)
	}
	s.path = path
	return s, nil
}

// Path returns the backing file, empty for stores parsed from memory
func (s *Store) Path() string {
	return s.path
}

// AliasToKey maps a renamed subject key to the key the commit is recorded under
func (s *Store) AliasToKey(key string) string {
	if target, ok := s.aliases[key]; ok {
		return target
	}
	return key
}

// Key normalizes subject and resolves aliases
func (s *Store) Key(subj string) string {
	return subject.Key(subj, s)
}

// Lookup returns the metadata recorded for subject
func (s *Store) Lookup(subj string) (*CommitMeta, bool) {
	cm, ok := s.byKey[s.Key(subj)]
	return cm, ok
}

// LookupKey returns the metadata recorded under an already normalized key
func (s *Store) LookupKey(key string) (*CommitMeta, bool) {
	cm, ok := s.byKey[key]
	return cm, ok
}

// GetComment returns the comment recorded for subject or ""
func (s *Store) GetComment(subj string) string {
	if cm, ok := s.Lookup(subj); ok {
		return cm.Comment
	}
	return ""
}

// Len returns the number of recorded commits
func (s *Store) Len() int {
	return len(s.byKey)
}

// TextAddIndent prefixes every line of text with indent spaces, keeping a
// single trailing newline if there was one
func TextAddIndent(text string, indent int) string {
	if indent <= 0 {
		return text
	}

	ws := strings.Repeat(" ", indent)
	ending := ""
	if strings.HasSuffix(text, "\n") {
		text = strings.TrimSuffix(text, "\n")
		ending = "\n"
	}

	return ws + strings.ReplaceAll(text, "\n", "\n"+ws) + ending
}
