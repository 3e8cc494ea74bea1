package correlation

import (
	"fmt"
	"strings"
)

// Column is a column kind of the rendered table
type Column int

const (
	ColumnIndex Column = iota + 1
	ColumnFeature
	ColumnCommits // expands to one column per range
	ColumnCherry
	ColumnDate
	ColumnAuthor
	ColumnMsgIssues
	ColumnSubject
)

var columnNames = map[Column]string{
	ColumnIndex:     "INDEX",
	ColumnFeature:   "FEATURE",
	ColumnCommits:   "COMMITS",
	ColumnCherry:    "CHERRY",
	ColumnDate:      "DATE",
	ColumnAuthor:    "AUTHOR",
	ColumnMsgIssues: "MSG_ISSUES",
	ColumnSubject:   "SUBJECT",
}

// DefaultColumns is used when no columns are requested
var DefaultColumns = []Column{
	ColumnIndex, ColumnFeature, ColumnCommits, ColumnDate, ColumnAuthor, ColumnMsgIssues, ColumnSubject,
}

func (c Column) String() string {
	if name, ok := columnNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Column(%d)", int(c))
}

// ParseColumns parses a comma separated, case insensitive column list
func ParseColumns(s string) ([]Column, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultColumns, nil
	}

	var out []Column
	for _, part := range strings.Split(s, ",") {
		name := strings.ToUpper(strings.TrimSpace(part))
		found := false
		for c, n := range columnNames {
			if n == name {
				out = append(out, c)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown column %q", strings.TrimSpace(part))
		}
	}
	return out, nil
}

// HideLevel selects rows left out of the rendered table
type HideLevel int

const (
	ShowAll     HideLevel = iota + 1
	HideEqual             // rows where every cell is BASE or EQUAL
	HideChecked           // additionally rows where every cell is classified
)

// ParseHideLevel accepts show_all, hide_equal and hide_checked in any case
func ParseHideLevel(s string) (HideLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "show_all":
		return ShowAll, nil
	case "hide_equal":
		return HideEqual, nil
	case "hide_checked":
		return HideChecked, nil
	default:
		return 0, fmt.Errorf("unknown rows hide level %q (allowed: show_all, hide_equal, hide_checked)", s)
	}
}

func (l HideLevel) hides(r *Row) bool {
	if l >= HideChecked && r.AllOK() {
		return true
	}
	return l >= HideEqual && r.AllEqual()
}
