// Package correlation lines up commits of several ranges by subject key and
// classifies every cell against the row's base commit.
package correlation

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/git-check-rebase/internal/logging"
	"github.com/stwalsh4118/git-check-rebase/internal/meta"
	"github.com/stwalsh4118/git-check-rebase/internal/ranges"
	"github.com/stwalsh4118/git-check-rebase/internal/tracker"
	"github.com/stwalsh4118/git-check-rebase/internal/view"
)

// Range names with special display rules
const (
	RangeUp  = "up"
	RangeNew = "new"
)

// LogSource provides the full "git log -1" text of a commit
type LogSource interface {
	LogEntry(id string) (string, error)
}

// Equaler decides commit equality, normally an *equality.Comparator
type Equaler interface {
	AreCommitsEqual(c1, c2 string, ignoreMessage bool) (bool, error)
}

// Cell is a commit found in one range
type Cell struct {
	Hash  string
	State view.CompState
	InTag string
}

// Row is one subject across all ranges. Cells has one entry per range, nil
// where the range has no such commit.
type Row struct {
	Cells       []*Cell
	Issues      []view.Issue
	Date        string
	Author      string
	Subject     string
	Key         string
	Cherry      bool
	MsgIssues   []string
	Feature     string
	Upstreaming string

	table *Table
}

// Meta returns the current metadata of the row's subject, nil if none.
// It is looked up on every call so updates made during review show up.
func (r *Row) Meta() *meta.CommitMeta {
	cm, ok := r.table.meta.LookupKey(r.Key)
	if !ok {
		return nil
	}
	return cm
}

// Comment returns the reviewer comment of the row
func (r *Row) Comment() string {
	if cm := r.Meta(); cm != nil {
		return cm.Comment
	}
	return ""
}

// AllOK reports whether every range has a commit classified other than NONE
func (r *Row) AllOK() bool {
	for _, c := range r.Cells {
		if c == nil || c.State == view.StateNone {
			return false
		}
	}
	return true
}

// AllEqual reports whether every range has a commit that is the base or
// automatically equal to it
func (r *Row) AllEqual() bool {
	for _, c := range r.Cells {
		if c == nil || (c.State != view.StateBase && c.State != view.StateEqual) {
			return false
		}
	}
	return true
}

// Table is the correlation of several ranges. Rows follow the last range.
type Table struct {
	Ranges []*ranges.MultiRange
	Rows   []*Row

	meta   *meta.Store
	upInd  int
	newInd int
	logger logging.Logger
}

// Build correlates ranges. The last range is the reference: it defines the
// rows, every other range is searched by key. store may be nil.
func Build(rs []*ranges.MultiRange, store *meta.Store, repo LogSource, logger logging.Logger) (*Table, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if repo == nil {
		return nil, fmt.Errorf("repository cannot be nil")
	}
	if len(rs) == 0 {
		return nil, fmt.Errorf("at least one range is required")
	}
	if store == nil {
		var err error
		if store, err = meta.Parse("", logger); err != nil {
			return nil, err
		}
	}

	t := &Table{
		Ranges: rs,
		meta:   store,
		upInd:  -1,
		newInd: -1,
		logger: logger.With("component", "correlation"),
	}
	for i, r := range rs {
		switch r.Name {
		case RangeUp:
			t.upInd = i
		case RangeNew:
			t.newInd = i
		}
	}

	last := rs[len(rs)-1]
	others := rs[:len(rs)-1]

	corresponding := make([]bool, len(others))
	for i, r := range others {
		corresponding[i] = len(r.Commits) == len(last.Commits)
	}

	for i, c := range last.Commits {
		row, err := t.newRow(c.Hash, c.Subject, c.Date, c.Author, repo)
		if err != nil {
			return nil, err
		}
		row.Cells[len(rs)-1] = &Cell{Hash: c.Hash, InTag: t.inTag(len(rs)-1, c.InTag)}

		for ri, r := range others {
			e, ok := r.Lookup(row.Key)
			if !ok {
				continue
			}
			row.Cells[ri] = &Cell{Hash: e.Commit.Hash, InTag: t.inTag(ri, e.Commit.InTag)}
			if e.Index != i && corresponding[ri] {
				t.logger.Debug("positional correspondence disabled", "range", r.Name, "subject", c.Subject)
				corresponding[ri] = false
			}
		}

		t.Rows = append(t.Rows, row)
	}

	// Ranges of equal length whose matches all sit at the same position are
	// assumed to differ only by renamed commits.
	for ri, r := range others {
		if !corresponding[ri] {
			continue
		}
		for j, row := range t.Rows {
			if row.Cells[ri] == nil {
				row.Cells[ri] = &Cell{Hash: r.Commits[j].Hash}
			}
		}
	}

	t.logger.Debug("built table", "rows", len(t.Rows), "ranges", len(rs))
	return t, nil
}

func (t *Table) inTag(rangeInd int, tag string) string {
	if rangeInd == t.upInd || rangeInd == t.newInd {
		return tag
	}
	return ""
}

func (t *Table) newRow(hash, subj, date, author string, repo LogSource) (*Row, error) {
	row := &Row{
		Cells:   make([]*Cell, len(t.Ranges)),
		Date:    date,
		Author:  author,
		Subject: subj,
		Key:     t.meta.Key(subj),
		table:   t,
	}

	msg, err := repo.LogEntry(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to read log of %s: %w", hash, err)
	}
	attrs := parseLogEntry(msg)
	row.Cherry = attrs.cherry
	row.MsgIssues = attrs.issues

	cm := row.Meta()
	row.Feature = attrs.feature
	if !attrs.hasFeature && cm != nil {
		row.Feature = cm.Feature
	}
	row.Upstreaming = attrs.upstreaming
	if !attrs.hasUpstreaming && cm != nil {
		row.Upstreaming = cm.Upstreaming
	}

	return row, nil
}

// Meta returns the metadata store the table was built with
func (t *Table) Meta() *meta.Store {
	return t.meta
}

// Legends returns the legends of explicitly named ranges
func (t *Table) Legends() []string {
	var out []string
	for _, r := range t.Ranges {
		if r.Legend != "" {
			out = append(out, r.Legend)
		}
	}
	return out
}

// BaseIndex returns the index of the row's base cell: the first cell when
// present, otherwise the last one
func (r *Row) BaseIndex() int {
	if r.Cells[0] != nil {
		return 0
	}
	return len(r.Cells) - 1
}

// Compare classifies every cell. The base cell is always BASE. Other cells
// are EQUAL when equal to the base, CHECKED when a confirmed pair of the row
// matches (other, base) in either orientation, NONE otherwise.
func (t *Table) Compare(eq Equaler, ignoreMessage bool) error {
	if eq == nil {
		return fmt.Errorf("equaler cannot be nil")
	}

	for _, row := range t.Rows {
		bi := row.BaseIndex()
		base := row.Cells[bi]
		base.State = view.StateBase

		for i, c := range row.Cells {
			if c == nil || i == bi {
				continue
			}
			state, err := compareCell(eq, base.Hash, c.Hash, row.Meta(), ignoreMessage)
			if err != nil {
				return fmt.Errorf("failed to compare %s with %s: %w", c.Hash, base.Hash, err)
			}
			c.State = state
		}
	}
	return nil
}

func compareCell(eq Equaler, base, other string, cm *meta.CommitMeta, ignoreMessage bool) (view.CompState, error) {
	equal, err := eq.AreCommitsEqual(base, other, ignoreMessage)
	if err != nil {
		return view.StateNone, err
	}
	if equal {
		return view.StateEqual, nil
	}
	if cm == nil {
		return view.StateNone, nil
	}

	for _, p := range cm.Checked {
		for _, o := range [][2]string{{p.First, p.Second}, {p.Second, p.First}} {
			ok, err := eq.AreCommitsEqual(o[0], other, ignoreMessage)
			if err != nil {
				return view.StateNone, err
			}
			if !ok {
				continue
			}
			ok, err = eq.AreCommitsEqual(o[1], base, ignoreMessage)
			if err != nil {
				return view.StateNone, err
			}
			if ok {
				return view.StateChecked, nil
			}
		}
	}
	return view.StateNone, nil
}

// AddPortingIssues scans the root issues and attaches every issue whose
// description mentions a row subject to that row
func (t *Table) AddPortingIssues(ctx context.Context, tr tracker.Tracker, roots []string) error {
	subjects := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		subjects[i] = row.Subject
	}

	found, err := tracker.ParseIssues(ctx, tr, roots, subjects)
	if err != nil {
		return fmt.Errorf("failed to parse porting issues: %w", err)
	}

	for _, row := range t.Rows {
		issues := found[row.Subject]
		if len(issues) == 0 {
			continue
		}
		row.Issues = make([]view.Issue, len(issues))
		for i, is := range issues {
			row.Issues[i] = is
		}
	}
	return nil
}
