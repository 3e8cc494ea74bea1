package correlation

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/stwalsh4118/git-check-rebase/internal/filter"
	"github.com/stwalsh4118/git-check-rebase/internal/meta"
	"github.com/stwalsh4118/git-check-rebase/internal/view"
)

// UnknownMark fills the "new" cell of rows nothing is known about
const UnknownMark = "███???███"

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DisplayCells returns the commit cells as shown, with the special rules of
// the "up" and "new" ranges applied
func (r *Row) DisplayCells() []view.Cell {
	t := r.table
	out := make([]view.Cell, len(r.Cells))
	for i, c := range r.Cells {
		if c != nil {
			out[i] = view.CommitRef{Hash: c.Hash, State: c.State, InTag: c.InTag}
		}
	}

	if t.upInd != -1 && out[t.upInd] == nil && r.Upstreaming != "" {
		out[t.upInd] = view.Text(r.Upstreaming)
	}

	if cm := r.Meta(); cm != nil && cm.Drop != "" {
		sp := view.Span{Text: cm.Drop, Class: view.ClassDrop}
		if t.newInd != -1 && out[t.newInd] == nil {
			out[t.newInd] = sp
		} else if t.upInd != -1 && out[t.upInd] == nil {
			out[t.upInd] = sp
		}
	}

	if t.newInd != -1 && out[t.newInd] == nil {
		if len(r.Issues) > 0 {
			out[t.newInd] = view.IssueList(r.Issues)
		} else {
			out[t.newInd] = view.Span{Text: UnknownMark, Class: view.ClassUnknown}
		}
	}

	for i := range out {
		if out[i] == nil {
			out[i] = view.Empty{}
		}
	}
	return out
}

func optional(s string) filter.Value {
	if s == "" {
		return filter.None()
	}
	return filter.String(s)
}

func cellValue(c view.Cell) filter.Value {
	switch v := c.(type) {
	case view.CommitRef:
		return filter.String(v.Hash)
	case view.Text:
		return filter.String(string(v))
	case view.Span:
		return filter.String(v.Text)
	case view.IssueList:
		return filter.List(issueKeys(v))
	default:
		return filter.None()
	}
}

func issueKeys(issues []view.Issue) []string {
	keys := make([]string, len(issues))
	for i, is := range issues {
		keys[i] = is.Key()
	}
	return keys
}

// FilterEnv returns the attributes a row filter expression can use
func (r *Row) FilterEnv() filter.MapEnv {
	env := filter.MapEnv{
		"subject":     filter.String(r.Subject),
		"author":      filter.String(r.Author),
		"date":        filter.String(r.Date),
		"feature":     optional(r.Feature),
		"upstreaming": optional(r.Upstreaming),
		"cherry":      filter.Bool(r.Cherry),
		"msg_issues":  filter.List(r.MsgIssues),
		"issues":      filter.List(issueKeys(r.Issues)),
		"all_ok":      filter.Bool(r.AllOK()),
		"all_equal":   filter.Bool(r.AllEqual()),
	}

	cells := r.DisplayCells()
	for i, rng := range r.table.Ranges {
		if identifierRegex.MatchString(rng.Name) {
			env[rng.Name] = cellValue(cells[i])
		}
	}
	return env
}

// ViewOptions controls which rows and columns View produces
type ViewOptions struct {
	Columns   []Column
	Headers   bool
	HideLevel HideLevel
	Filter    *filter.Expr // nil keeps every row
}

// View converts the table into viewer cells. A row with a comment is
// followed by a row holding only the indented comment in the last column.
func (t *Table) View(opts ViewOptions) (view.Table, error) {
	columns := opts.Columns
	if len(columns) == 0 {
		columns = DefaultColumns
	}

	var out view.Table
	if opts.Headers {
		for _, c := range columns {
			if c == ColumnCommits {
				for _, r := range t.Ranges {
					out.Header = append(out.Header, r.Name)
				}
				continue
			}
			out.Header = append(out.Header, c.String())
		}
	}

	indexLen := len(strconv.Itoa(len(t.Rows)))
	for i, row := range t.Rows {
		ok, err := opts.Filter.Match(row.FilterEnv())
		if err != nil {
			return view.Table{}, fmt.Errorf("failed to filter row %q: %w", row.Subject, err)
		}
		if !ok || opts.HideLevel.hides(row) {
			continue
		}

		line := row.cells(columns, fmt.Sprintf("%0*d", indexLen, i+1))
		out.Rows = append(out.Rows, line)

		if comment := row.Comment(); comment != "" {
			commentLine := make([]view.Cell, len(line))
			for j := range commentLine {
				commentLine[j] = view.Empty{}
			}
			commentLine[len(line)-1] = view.Text(meta.TextAddIndent(comment, 2))
			out.Rows = append(out.Rows, commentLine)
		}
	}

	return out, nil
}

func (r *Row) cells(columns []Column, index string) []view.Cell {
	var line []view.Cell
	for _, c := range columns {
		switch c {
		case ColumnIndex:
			line = append(line, view.Text(index))
		case ColumnFeature:
			line = append(line, view.Text(r.Feature))
		case ColumnCommits:
			line = append(line, r.DisplayCells()...)
		case ColumnCherry:
			if r.Cherry {
				line = append(line, view.Text("V"))
			} else {
				line = append(line, view.Empty{})
			}
		case ColumnDate:
			line = append(line, view.Text(r.Date))
		case ColumnAuthor:
			line = append(line, view.Text(r.Author))
		case ColumnMsgIssues:
			line = append(line, view.TextList(r.MsgIssues))
		case ColumnSubject:
			line = append(line, view.Text(r.Subject))
		}
	}
	return line
}
