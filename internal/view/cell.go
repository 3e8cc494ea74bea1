// Package view turns a correlation table into text or HTML
package view

import "strings"

// CompState classifies one commit cell against the row's base commit
type CompState int

const (
	StateNone    CompState = iota
	StateBase              // base of the row, other cells are compared to it
	StateEqual             // equal to the base, detected automatically
	StateChecked           // equal to the base, confirmed by a reviewer
)

func (s CompState) String() string {
	switch s {
	case StateBase:
		return "base"
	case StateEqual:
		return "equal"
	case StateChecked:
		return "checked"
	default:
		return "none"
	}
}

// Class names the colour class of a span
type Class string

const (
	ClassNone        Class = ""
	ClassBugCritical Class = "bug-critical"
	ClassBugFixed    Class = "bug-fixed"
	ClassBug         Class = "bug"
	ClassUnknown     Class = "unknown"
	ClassEqual       Class = "equal"
	ClassBase        Class = "base"
	ClassChecked     Class = "checked"
	ClassInTag       Class = "in-tag"
	ClassDrop        Class = "drop"
)

func stateClass(s CompState) Class {
	if s == StateNone {
		return ClassNone
	}
	return Class(s.String())
}

// Issue is the part of a tracker issue a cell shows
type Issue interface {
	Key() string
	IsCritical() bool
	IsFixed() bool
}

func issueClass(is Issue) Class {
	switch {
	case is.IsFixed():
		return ClassBugFixed
	case is.IsCritical():
		return ClassBugCritical
	default:
		return ClassBug
	}
}

// Cell is one table cell. The concrete types are Empty, CommitRef, Text,
// TextList, IssueList and Span.
type Cell interface {
	isCell()
}

type Empty struct{}

// CommitRef is a commit hash with its comparison state
type CommitRef struct {
	Hash  string
	State CompState
	InTag string
}

type Text string

// TextList is shown one entry per line (text) or concatenated (HTML)
type TextList []string

type IssueList []Issue

// Span is text with a colour class
type Span struct {
	Text  string
	Class Class
}

func (Empty) isCell()     {}
func (CommitRef) isCell() {}
func (Text) isCell()      {}
func (TextList) isCell()  {}
func (IssueList) isCell() {}
func (Span) isCell()      {}

// Table is the viewer input. Header may be nil.
type Table struct {
	Header []string
	Rows   [][]Cell
}

// PlainText returns the uncoloured text of a cell, as used by row filters
func PlainText(c Cell) string {
	switch v := c.(type) {
	case CommitRef:
		if v.InTag != "" {
			return v.Hash + " (in " + v.InTag + ")"
		}
		return v.Hash
	case Text:
		return string(v)
	case TextList:
		return strings.Join(v, "\n")
	case IssueList:
		keys := make([]string, len(v))
		for i, is := range v {
			keys[i] = is.Key()
		}
		return strings.Join(keys, "\n")
	case Span:
		return v.Text
	default:
		return ""
	}
}

// formatter renders the leaves of a cell for one output format
type formatter interface {
	span(text string, class Class) string
	commit(ref CommitRef) string
	text(s string) string
	splitter() string
}

func renderCell(f formatter, c Cell) string {
	switch v := c.(type) {
	case CommitRef:
		return f.commit(v)
	case Text:
		return f.text(string(v))
	case TextList:
		parts := make([]string, len(v))
		for i, s := range v {
			parts[i] = f.text(s)
		}
		return strings.Join(parts, f.splitter())
	case IssueList:
		parts := make([]string, len(v))
		for i, is := range v {
			parts[i] = f.span(is.Key(), issueClass(is))
		}
		return strings.Join(parts, f.splitter())
	case Span:
		return f.span(v.Text, v.Class)
	default:
		return ""
	}
}

func renderRows(f formatter, rows [][]Cell) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, c := range row {
			out[i][j] = renderCell(f, c)
		}
	}
	return out
}
