// Package ranges turns range expressions into named, key-indexed commit
// lists.
package ranges

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stwalsh4118/git-check-rebase/internal/git"
	"github.com/stwalsh4118/git-check-rebase/internal/subject"
)

// minusRegex matches "<rev><~N|^N>...-", e.g. "abc~5-" or "v1.0^2~3-"
var minusRegex = regexp.MustCompile(`^([^^~]+)(\^\d*|~\d*)+-$`)

// NoBaseError is returned for "..top" expressions when no default base is set
type NoBaseError struct {
	Expr string
}

func (e *NoBaseError) Error() string {
	return fmt.Sprintf("range %q has no base and no default base is configured", e.Expr)
}

// RangeError reports a malformed range expression
type RangeError struct {
	Expr   string
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range %q: %s", e.Expr, e.Reason)
}

// Parse converts a single range expression into a (base, top) pair:
//
//	commit         -> (commit~, commit)
//	..commit       -> (defaultBase, commit)
//	commit1..commit2
//	commit..       -> (commit, HEAD)
//	rev~5-         -> (rev~5, rev)   any run of ~N / ^N before the dash
func Parse(expr, defaultBase string) (base, top string, err error) {
	switch {
	case expr == "":
		return "", "", &RangeError{Expr: expr, Reason: "empty expression"}
	case strings.Contains(expr, ","):
		return "", "", &RangeError{Expr: expr, Reason: "unexpected ','"}
	case strings.Contains(expr, ":"):
		return "", "", &RangeError{Expr: expr, Reason: "unexpected ':'"}
	}

	if m := minusRegex.FindStringSubmatch(expr); m != nil {
		return strings.TrimSuffix(expr, "-"), m[1], nil
	}

	if !strings.Contains(expr, "..") {
		return expr + "~", expr, nil
	}

	parts := strings.Split(expr, "..")
	if len(parts) != 2 {
		return "", "", &RangeError{Expr: expr, Reason: "more than one '..'"}
	}
	base, top = parts[0], parts[1]

	if base == "" {
		if defaultBase == "" {
			return "", "", &NoBaseError{Expr: expr}
		}
		base = defaultBase
	}
	if top == "" {
		top = "HEAD"
	}

	return base, top, nil
}

// Lister lists the commits of base..top, oldest first
type Lister interface {
	Log(base, top string) ([]git.Commit, error)
}

// Entry is a commit together with its position in the range
type Entry struct {
	Index  int
	Commit git.Commit
}

// MultiRange is a named range built from one or more comma separated
// expressions
type MultiRange struct {
	Name   string
	Legend string // "name = expr" when the name was given explicitly
	Base   string // empty for multi-expression ranges
	Top    string
	// Commits holds all sub-ranges concatenated in order
	Commits []git.Commit
	ByKey   map[string]Entry
}

// New builds a MultiRange from "name:expr,expr,..." or "expr,expr,...".
// Without a name the definition itself, with '.' and '/' replaced by '-',
// names the range.
func New(definition string, repo Lister, aliases subject.AliasLookup, defaultBase string) (*MultiRange, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository cannot be nil")
	}

	r := &MultiRange{}
	if name, def, ok := strings.Cut(definition, ":"); ok {
		r.Name = name
		r.Legend = fmt.Sprintf("%s = %s", name, def)
		definition = def
	} else {
		r.Name = strings.NewReplacer(".", "-", "/", "-").Replace(definition)
	}

	if !strings.Contains(definition, ",") {
		base, top, err := Parse(definition, defaultBase)
		if err != nil {
			return nil, err
		}
		r.Base, r.Top = base, top
	}

	for _, expr := range strings.Split(definition, ",") {
		base, top, err := Parse(expr, defaultBase)
		if err != nil {
			return nil, err
		}
		commits, err := repo.Log(base, top)
		if err != nil {
			return nil, fmt.Errorf("failed to read range %s: %w", r.Name, err)
		}
		r.Commits = append(r.Commits, commits...)
	}

	r.ByKey = make(map[string]Entry, len(r.Commits))
	for i, c := range r.Commits {
		r.ByKey[subject.Key(c.Subject, aliases)] = Entry{Index: i, Commit: c}
	}

	return r, nil
}

// Lookup returns the entry for key
func (r *MultiRange) Lookup(key string) (Entry, bool) {
	e, ok := r.ByKey[key]
	return e, ok
}
